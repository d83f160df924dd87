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

// GroupSnapshot is the wholesale view model for a single group's screen.
type GroupSnapshot struct {
	State           State
	GroupID         string
	GroupName       string
	GroupTasks      []models.ResolvedTask
	IndividualTasks []models.ResolvedTask
	Err             error
}

// GroupSynchronizer drives the group screen. It watches two task queries —
// tasks whose group field equals this group, and tasks whose assignees
// contain the current user — and re-runs the full listing pass when either
// notifies. Both subscriptions share one generation and are torn down
// together.
type GroupSynchronizer struct {
	identity auth.IdentityProvider
	listing  *services.ListingService
	store    store.Store
	filter   services.TaskFilter
	groupID  string

	mu       sync.Mutex
	gen      uint64
	cancels  []store.CancelFunc
	snapshot GroupSnapshot
	onUpdate func(GroupSnapshot)
}

func NewGroupSynchronizer(s store.Store, identity auth.IdentityProvider, listing *services.ListingService, groupID string, filter services.TaskFilter) *GroupSynchronizer {
	return &GroupSynchronizer{
		identity: identity,
		listing:  listing,
		store:    s,
		filter:   filter,
		groupID:  groupID,
		snapshot: GroupSnapshot{State: StateIdle, GroupID: groupID},
	}
}

func (s *GroupSynchronizer) OnUpdate(fn func(GroupSnapshot)) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *GroupSynchronizer) Snapshot() GroupSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Focus enters Loading, runs the initial pass and opens the two query
// subscriptions.
func (s *GroupSynchronizer) Focus(ctx context.Context) error {
	gen, stale := s.begin()
	for _, cancel := range stale {
		cancel()
	}
	s.commit(gen, GroupSnapshot{State: StateLoading, GroupID: s.groupID})

	userID, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			s.commit(gen, GroupSnapshot{State: StateUnauthenticated, GroupID: s.groupID, Err: err})
			return err
		}
		s.commit(gen, GroupSnapshot{State: StateError, GroupID: s.groupID, Err: err})
		return err
	}

	if err := s.refresh(ctx, gen, userID); err != nil {
		return err
	}

	onChange := func() {
		if err := s.refresh(ctx, gen, userID); err != nil {
			logging.Logger.Warnf("Event ID: LIVE_REFRESH_FAILED, Description: Live refresh for group %s failed: %v", s.groupID, err)
		}
	}
	onError := func(err error) {
		s.commit(gen, GroupSnapshot{State: StateError, GroupID: s.groupID, Err: err})
	}

	groupTasks := store.Matching(models.TasksCollection, "group", store.OpEqual, models.GroupRef(s.groupID))
	individual := store.Matching(models.TasksCollection, "assignees", store.OpArrayContains, models.UserRef(userID))
	cancels := []store.CancelFunc{
		s.store.Subscribe(ctx, groupTasks, onChange, onError),
		s.store.Subscribe(ctx, individual, onChange, onError),
	}

	s.adopt(gen, cancels)
	return nil
}

func (s *GroupSynchronizer) Retry(ctx context.Context) error {
	return s.Focus(ctx)
}

// Blur tears down both subscriptions; safe to call repeatedly.
func (s *GroupSynchronizer) Blur() {
	s.mu.Lock()
	s.gen++
	cancels := s.cancels
	s.cancels = nil
	s.snapshot = GroupSnapshot{State: StateIdle, GroupID: s.groupID}
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (s *GroupSynchronizer) refresh(ctx context.Context, gen uint64, userID string) error {
	groupName := "Group"
	var group models.Group
	if err := s.store.Get(ctx, models.GroupsCollection, s.groupID, &group); err == nil {
		groupName = group.DisplayName()
	}

	groupTasks, err := s.listing.ListGroupTasks(ctx, s.groupID, s.filter)
	if err != nil {
		s.commit(gen, GroupSnapshot{State: StateError, GroupID: s.groupID, GroupName: groupName, Err: err})
		return err
	}
	individualTasks, err := s.listing.ListIndividualTasks(ctx, userID, s.filter)
	if err != nil {
		s.commit(gen, GroupSnapshot{State: StateError, GroupID: s.groupID, GroupName: groupName, Err: err})
		return err
	}
	s.commit(gen, GroupSnapshot{
		State:           StateReady,
		GroupID:         s.groupID,
		GroupName:       groupName,
		GroupTasks:      groupTasks,
		IndividualTasks: individualTasks,
	})
	return nil
}

func (s *GroupSynchronizer) begin() (uint64, []store.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	cancels := s.cancels
	s.cancels = nil
	return s.gen, cancels
}

func (s *GroupSynchronizer) adopt(gen uint64, cancels []store.CancelFunc) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		for _, cancel := range cancels {
			cancel()
		}
		return
	}
	s.cancels = cancels
	s.mu.Unlock()
}

func (s *GroupSynchronizer) commit(gen uint64, snap GroupSnapshot) {
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
