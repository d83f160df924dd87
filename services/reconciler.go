package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/omora14/roomiesChore/logging"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

// Reconciler is the compensation path for the maintainer's non-atomic
// creation sagas. It sweeps the tasks collection and re-issues every
// back-reference append; because appends are idempotent set-unions, tasks
// that are already fully linked are untouched and orphans get repaired. The
// sweep is safe to run concurrently with live writes.
type Reconciler struct {
	store store.Store
	cron  *cron.Cron
}

func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{store: s, cron: cron.New()}
}

// Start schedules the sweep on a cron expression (e.g. "@every 5m") and
// launches the scheduler.
func (r *Reconciler) Start(schedule string) error {
	_, err := r.cron.AddFunc(schedule, func() {
		if err := r.SweepOnce(context.Background()); err != nil {
			logging.Logger.Errorf("Event ID: RECONCILE_SWEEP_FAILED, Description: Reconciliation sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation sweep: %w", err)
	}
	r.cron.Start()
	logging.Logger.Infof("Event ID: RECONCILER_STARTED, Description: Reconciliation sweep scheduled at %q", schedule)
	return nil
}

// Stop halts the scheduler; a sweep already underway finishes.
func (r *Reconciler) Stop() {
	r.cron.Stop()
}

// SweepOnce walks every task and re-appends its reference into the
// creator's created_tasks and each assignee's assigned_tasks. Appends whose
// target user no longer exists are skipped: the task's reference to a
// deleted user is stale data the hydrator already tolerates.
func (r *Reconciler) SweepOnce(ctx context.Context) error {
	var tasks []models.Task
	if err := r.store.Query(ctx, models.TasksCollection, "", "", nil, &tasks); err != nil {
		return fmt.Errorf("failed to scan tasks: %w", err)
	}

	var failures int
	for _, task := range tasks {
		taskRef := models.TaskRef(task.ID)
		for _, assignee := range task.Assignees {
			if err := r.append(ctx, assignee, "assigned_tasks", taskRef); err != nil {
				failures++
			}
		}
		if !task.Creator.IsZero() {
			if err := r.append(ctx, task.Creator, "created_tasks", taskRef); err != nil {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("reconciliation sweep: %d append(s) failed across %d task(s)", failures, len(tasks))
	}
	logging.Logger.Infof("Event ID: RECONCILE_SWEEP_DONE, Description: Reconciliation sweep covered %d task(s)", len(tasks))
	return nil
}

func (r *Reconciler) append(ctx context.Context, user models.Ref, field string, taskRef models.Ref) error {
	user = user.In(models.UsersCollection)
	err := r.store.AppendUnique(ctx, user.Collection, user.ID, field, taskRef)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}
	logging.Logger.Warnf("Event ID: RECONCILE_APPEND_FAILED, Description: Re-append of %s into %s.%s failed: %v", taskRef, user, field, err)
	return err
}
