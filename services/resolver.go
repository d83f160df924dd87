package services

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/omora14/roomiesChore/logging"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

// ReferenceResolver turns stored references into the referenced document's
// data or a well-defined placeholder. Absence is data on this path: a
// missing document, a transport failure or an open breaker all degrade to
// the placeholder instead of surfacing an error, because partially hydrated
// lists beat a list blocked on one bad reference.
type ReferenceResolver struct {
	store   store.Store
	breaker *gobreaker.CircuitBreaker
}

func NewReferenceResolver(s store.Store) *ReferenceResolver {
	return &ReferenceResolver{
		store: s,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "StoreReadsCB",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
			},
		}),
	}
}

// ResolveUser resolves a user reference, degrading to the Unknown
// placeholder when the document is missing or unreachable.
func (r *ReferenceResolver) ResolveUser(ctx context.Context, ref models.Ref) models.ResolvedUser {
	resolved, err := r.LookupUser(ctx, ref)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.Logger.Warnf("Event ID: REFERENCE_RESOLVE_DEGRADED, Description: Resolving user %s degraded to placeholder: %v", ref.ID, err)
		}
		return models.UnknownUser()
	}
	return resolved
}

// LookupUser resolves a user reference strictly, returning an error when the
// document is missing. Callers that drop unresolvable entries (assignee
// lists, member lists) use this instead of ResolveUser.
func (r *ReferenceResolver) LookupUser(ctx context.Context, ref models.Ref) (models.ResolvedUser, error) {
	ref = ref.In(models.UsersCollection)
	var user models.User
	if err := r.fetch(ctx, ref, &user); err != nil {
		return models.ResolvedUser{}, err
	}
	if user.ID == "" {
		user.ID = ref.ID
	}
	return models.ResolvedUser{
		ID:        user.ID,
		Name:      user.DisplayName(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Username:  user.Username,
	}, nil
}

// ResolveGroup resolves a group reference, degrading to the Uncategorized
// placeholder (which keeps the reference id) when the document is missing or
// unreachable.
func (r *ReferenceResolver) ResolveGroup(ctx context.Context, ref models.Ref) models.ResolvedGroup {
	resolved, err := r.LookupGroup(ctx, ref)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logging.Logger.Warnf("Event ID: REFERENCE_RESOLVE_DEGRADED, Description: Resolving group %s degraded to placeholder: %v", ref.ID, err)
		}
		return models.UncategorizedGroup(ref.ID)
	}
	return resolved
}

// LookupGroup resolves a group reference strictly.
func (r *ReferenceResolver) LookupGroup(ctx context.Context, ref models.Ref) (models.ResolvedGroup, error) {
	ref = ref.In(models.GroupsCollection)
	var group models.Group
	if err := r.fetch(ctx, ref, &group); err != nil {
		return models.ResolvedGroup{}, err
	}
	if group.ID == "" {
		group.ID = ref.ID
	}
	return models.ResolvedGroup{
		ID:    group.ID,
		Name:  group.DisplayName(),
		Color: group.Color,
	}, nil
}

// LookupTask fetches the task a back-reference points at. Listings drop
// entries whose task no longer exists.
func (r *ReferenceResolver) LookupTask(ctx context.Context, ref models.Ref) (models.Task, error) {
	ref = ref.In(models.TasksCollection)
	var task models.Task
	if err := r.fetch(ctx, ref, &task); err != nil {
		return models.Task{}, err
	}
	if task.ID == "" {
		task.ID = ref.ID
	}
	return task, nil
}

// fetch runs a store read through the circuit breaker. A missing document is
// not a transport failure and must not trip the breaker.
func (r *ReferenceResolver) fetch(ctx context.Context, ref models.Ref, out interface{}) error {
	var notFound error
	_, err := r.breaker.Execute(func() (interface{}, error) {
		err := r.store.Get(ctx, ref.Collection, ref.ID, out)
		if errors.Is(err, store.ErrNotFound) {
			notFound = err
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}
	return notFound
}
