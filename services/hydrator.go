package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/omora14/roomiesChore/models"
)

// TaskHydrator composes a raw task record into a fully resolved view model.
// It never returns an error: the creator and group fall back to placeholders
// and assignees that fail to resolve are dropped from the list. The
// distinction is deliberate — a task always shows who it belongs to and
// where, but a deleted assignee simply disappears from the display.
type TaskHydrator struct {
	resolver *ReferenceResolver
}

func NewTaskHydrator(resolver *ReferenceResolver) *TaskHydrator {
	return &TaskHydrator{resolver: resolver}
}

// HydrateTask resolves the creator, every assignee and the group of a task
// concurrently. Resolutions within one pass are unordered with respect to
// each other; assignee display order still follows the stored array.
func (h *TaskHydrator) HydrateTask(ctx context.Context, task models.Task) models.ResolvedTask {
	resolved := models.ResolvedTask{
		ID:          task.ID,
		Description: task.Description,
		DueDate:     models.FormatDueDate(task.DueDate),
		IsDone:      task.IsDone,
		Priority:    task.Priority,
	}
	if resolved.Description == "" {
		resolved.Description = "Untitled Task"
	}

	assignees := make([]*models.ResolvedUser, len(task.Assignees))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if task.Creator.IsZero() {
			resolved.Creator = models.UnknownUser()
			return nil
		}
		resolved.Creator = h.resolver.ResolveUser(gctx, task.Creator)
		return nil
	})
	g.Go(func() error {
		if task.Group.IsZero() {
			resolved.Group = models.UncategorizedGroup("")
			return nil
		}
		resolved.Group = h.resolver.ResolveGroup(gctx, task.Group)
		return nil
	})
	for i, ref := range task.Assignees {
		i, ref := i, ref
		g.Go(func() error {
			if user, err := h.resolver.LookupUser(gctx, ref); err == nil {
				assignees[i] = &user
			}
			return nil
		})
	}
	_ = g.Wait() // workers absorb their own failures

	resolved.Assignees = make([]models.ResolvedUser, 0, len(assignees))
	for _, user := range assignees {
		if user != nil {
			resolved.Assignees = append(resolved.Assignees, *user)
		}
	}
	return resolved
}
