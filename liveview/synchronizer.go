// Package liveview keeps per-screen view models in sync with the store.
// Each synchronizer owns one change subscription at a time and re-runs a
// full fetch-and-hydrate pass on every notification, replacing the held
// snapshot wholesale — there is no incremental patching.
package liveview

import (
	"context"
	"errors"
	"sync"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/logging"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/services"
	"github.com/omora14/roomiesChore/store"
)

// State of a screen's view model.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
	// StateUnauthenticated is distinct from StateError so the caller can
	// redirect to sign-in instead of showing an empty list.
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Snapshot is the wholesale view model for the dashboard screen.
type Snapshot struct {
	State  State
	UserID string
	Groups []models.GroupSummary
	Tasks  []models.ResolvedTask
	Err    error
}

// Synchronizer drives the dashboard: on Focus it acquires the current
// identity, runs a full listing pass and then subscribes to the user's own
// document so server-side changes to the back-reference arrays (a task
// assigned from another device, say) re-trigger the pass.
//
// Passes carry a generation token. Any state transition — Focus, Blur,
// Retry — bumps the generation, and a pass only commits its result if its
// token is still current, so a slow stale pass can never overwrite a newer
// view. "Last notification processed wins" is the only ordering guarantee.
type Synchronizer struct {
	identity auth.IdentityProvider
	listing  *services.ListingService
	store    store.Store
	filter   services.TaskFilter

	mu       sync.Mutex
	gen      uint64
	cancel   store.CancelFunc
	snapshot Snapshot
	onUpdate func(Snapshot)
}

func NewSynchronizer(s store.Store, identity auth.IdentityProvider, listing *services.ListingService, filter services.TaskFilter) *Synchronizer {
	return &Synchronizer{
		identity: identity,
		listing:  listing,
		store:    s,
		filter:   filter,
		snapshot: Snapshot{State: StateIdle},
	}
}

// OnUpdate registers a callback invoked after every committed snapshot
// replacement. Register before Focus.
func (s *Synchronizer) OnUpdate(fn func(Snapshot)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

// Snapshot returns the current view model.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Focus enters Loading, runs the initial fetch-and-hydrate pass and opens
// the change subscription. Calling Focus while already focused supersedes
// the previous subscription.
func (s *Synchronizer) Focus(ctx context.Context) error {
	gen, stale := s.begin()
	if stale != nil {
		stale()
	}
	s.commit(gen, Snapshot{State: StateLoading})

	userID, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			s.commit(gen, Snapshot{State: StateUnauthenticated, Err: err})
			return err
		}
		s.commit(gen, Snapshot{State: StateError, Err: err})
		return err
	}

	if err := s.refresh(ctx, gen, userID); err != nil {
		return err
	}

	cancel := s.store.Subscribe(ctx, store.Doc(models.UsersCollection, userID), func() {
		// full re-hydration on every notification; the generation check in
		// commit discards results that lost the race with a newer pass
		if err := s.refresh(ctx, gen, userID); err != nil {
			logging.Logger.Warnf("Event ID: LIVE_REFRESH_FAILED, Description: Live refresh for user %s failed: %v", userID, err)
		}
	}, func(err error) {
		s.commit(gen, Snapshot{State: StateError, UserID: userID, Err: err})
	})

	s.adopt(gen, cancel)
	return nil
}

// Retry re-enters Loading from Ready or Error.
func (s *Synchronizer) Retry(ctx context.Context) error {
	return s.Focus(ctx)
}

// Blur tears down the subscription and returns to Idle. Blurring an already
// blurred synchronizer is a no-op, as is double-invoking the underlying
// cancellation handle.
func (s *Synchronizer) Blur() {
	s.mu.Lock()
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	s.snapshot = Snapshot{State: StateIdle}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// refresh runs one full fetch-and-hydrate pass and commits it.
func (s *Synchronizer) refresh(ctx context.Context, gen uint64, userID string) error {
	groups, err := s.listing.ListGroupsForUser(ctx, userID)
	if err != nil {
		s.commit(gen, Snapshot{State: StateError, UserID: userID, Err: err})
		return err
	}
	tasks, err := s.listing.ListUpcomingTasksForUser(ctx, userID, s.filter)
	if err != nil {
		s.commit(gen, Snapshot{State: StateError, UserID: userID, Err: err})
		return err
	}
	s.commit(gen, Snapshot{State: StateReady, UserID: userID, Groups: groups, Tasks: tasks})
	return nil
}

// begin starts a new generation, returning the token and any previous
// cancellation handle for the caller to invoke outside the lock.
func (s *Synchronizer) begin() (uint64, store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	cancel := s.cancel
	s.cancel = nil
	return s.gen, cancel
}

// adopt installs the subscription's cancellation handle, unless the
// generation was superseded while subscribing, in which case the fresh
// subscription is closed immediately.
func (s *Synchronizer) adopt(gen uint64, cancel store.CancelFunc) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		cancel()
		return
	}
	s.cancel = cancel
	s.mu.Unlock()
}

// commit replaces the snapshot wholesale if the pass's generation is still
// current; stale passes are discarded.
func (s *Synchronizer) commit(gen uint64, snap Snapshot) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.snapshot = snap
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}
