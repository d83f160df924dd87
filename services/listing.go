package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

// TaskFilter selects which completion states a task listing returns.
type TaskFilter int

const (
	// FilterAll returns every hydrated task regardless of completion.
	FilterAll TaskFilter = iota
	// FilterIncomplete drops completed tasks before hydration.
	FilterIncomplete
)

// ListingService produces the "my groups" / "my tasks" listings. Instead of
// scanning whole collections and filtering by membership, it walks the small
// back-reference arrays already stored on the user or group document, so a
// listing costs O(that user's own groups/tasks) reads.
type ListingService struct {
	store    store.Store
	resolver *ReferenceResolver
	hydrator *TaskHydrator
}

func NewListingService(s store.Store, resolver *ReferenceResolver, hydrator *TaskHydrator) *ListingService {
	return &ListingService{store: s, resolver: resolver, hydrator: hydrator}
}

// ListGroupsForUser resolves the user's assigned_groups into group cards.
// Stale references to deleted groups are dropped, not placeholdered.
func (s *ListingService) ListGroupsForUser(ctx context.Context, userID string) ([]models.GroupSummary, error) {
	var user models.User
	if err := s.store.Get(ctx, models.UsersCollection, userID, &user); err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	groups := make([]models.GroupSummary, 0, len(user.AssignedGroups))
	for _, ref := range user.AssignedGroups {
		group, err := s.resolver.LookupGroup(ctx, ref)
		if err != nil {
			continue
		}
		groups = append(groups, models.GroupSummary{ID: group.ID, Name: group.Name, Color: group.Color})
	}
	return groups, nil
}

// ListUpcomingTasksForUser resolves the user's assigned_tasks, drops
// references whose task no longer exists, hydrates the rest and sorts them
// ascending by due date with undated tasks last. The completion filter is an
// explicit parameter: "upcoming" means "assigned to this user", not "not
// done".
func (s *ListingService) ListUpcomingTasksForUser(ctx context.Context, userID string, filter TaskFilter) ([]models.ResolvedTask, error) {
	var user models.User
	if err := s.store.Get(ctx, models.UsersCollection, userID, &user); err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	tasks := make([]models.Task, 0, len(user.AssignedTasks))
	for _, ref := range user.AssignedTasks {
		task, err := s.resolver.LookupTask(ctx, ref)
		if err != nil {
			continue
		}
		if filter == FilterIncomplete && task.IsDone {
			continue
		}
		tasks = append(tasks, task)
	}
	return s.hydrateSorted(ctx, tasks), nil
}

// ListGroupMembers resolves a group's member references into member rows.
// Members whose user document is missing are silently omitted. A missing
// group yields an empty list, not an error.
func (s *ListingService) ListGroupMembers(ctx context.Context, groupID string) ([]models.UserSummary, error) {
	var group models.Group
	if err := s.store.Get(ctx, models.GroupsCollection, groupID, &group); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return []models.UserSummary{}, nil
		}
		return nil, fmt.Errorf("failed to load group %s: %w", groupID, err)
	}

	members := make([]models.UserSummary, 0, len(group.GroupMembers))
	for _, ref := range group.GroupMembers {
		user, err := s.resolver.LookupUser(ctx, ref)
		if err != nil {
			continue
		}
		members = append(members, models.UserSummary{ID: user.ID, Name: user.Name})
	}
	return members, nil
}

// ListGroupTasks queries tasks belonging to a group by reference equality.
// Tasks are deliberately not indexed on the group document, so this is the
// one listing that goes through a query instead of a back-reference array.
func (s *ListingService) ListGroupTasks(ctx context.Context, groupID string, filter TaskFilter) ([]models.ResolvedTask, error) {
	var tasks []models.Task
	err := s.store.Query(ctx, models.TasksCollection, "group", store.OpEqual, models.GroupRef(groupID), &tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks for group %s: %w", groupID, err)
	}
	return s.hydrateSorted(ctx, applyFilter(tasks, filter)), nil
}

// ListIndividualTasks queries tasks assigned to a user across all groups.
func (s *ListingService) ListIndividualTasks(ctx context.Context, userID string, filter TaskFilter) ([]models.ResolvedTask, error) {
	var tasks []models.Task
	err := s.store.Query(ctx, models.TasksCollection, "assignees", store.OpArrayContains, models.UserRef(userID), &tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks for user %s: %w", userID, err)
	}
	return s.hydrateSorted(ctx, applyFilter(tasks, filter)), nil
}

// hydrateSorted orders raw tasks ascending by due date (undated last,
// stable) and hydrates them in that order.
func (s *ListingService) hydrateSorted(ctx context.Context, tasks []models.Task) []models.ResolvedTask {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	resolved := make([]models.ResolvedTask, 0, len(tasks))
	for _, task := range tasks {
		resolved = append(resolved, s.hydrator.HydrateTask(ctx, task))
	}
	return resolved
}

func applyFilter(tasks []models.Task, filter TaskFilter) []models.Task {
	if filter == FilterAll {
		return tasks
	}
	kept := tasks[:0]
	for _, task := range tasks {
		if !task.IsDone {
			kept = append(kept, task)
		}
	}
	return kept
}
