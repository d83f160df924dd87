package liveview

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/services"
	"github.com/omora14/roomiesChore/store"
)

// fixture wires the whole read path against the in-memory store, whose
// change notifications fire synchronously and make the live behaviour
// directly assertable.
type fixture struct {
	store      *store.Memory
	listing    *services.ListingService
	maintainer *services.RelationshipMaintainer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	resolver := services.NewReferenceResolver(mem)
	return &fixture{
		store:      mem,
		listing:    services.NewListingService(mem, resolver, services.NewTaskHydrator(resolver)),
		maintainer: services.NewRelationshipMaintainer(mem),
	}
}

func (f *fixture) seedUser(t *testing.T, id string, user models.User) {
	t.Helper()
	if err := f.store.Set(context.Background(), models.UsersCollection, id, user); err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
}

func TestSynchronizer_FocusLoadsDashboard(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{FirstName: "Alice"})
	f.seedUser(t, "bob", models.User{FirstName: "Bob"})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)
	is.Equal(sync.Snapshot().State, StateIdle)

	is.NoErr(sync.Focus(ctx))
	defer sync.Blur()

	snap := sync.Snapshot()
	is.Equal(snap.State, StateReady)
	is.Equal(snap.UserID, "alice")
	is.Equal(len(snap.Groups), 0)
	is.Equal(len(snap.Tasks), 0)
}

func TestSynchronizer_LiveUpdateOnTaskAssignment(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{FirstName: "Alice"})
	f.seedUser(t, "bob", models.User{FirstName: "Bob"})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)
	is.NoErr(sync.Focus(ctx))
	defer sync.Blur()

	// a task assigned to alice from elsewhere appends into her
	// assigned_tasks, which her dashboard subscription watches
	taskID, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Take out the trash",
		Creator:     "bob",
		Assignees:   []string{"alice"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	snap := sync.Snapshot()
	is.Equal(snap.State, StateReady)
	is.Equal(len(snap.Tasks), 1)
	is.Equal(snap.Tasks[0].ID, taskID)
	is.Equal(snap.Tasks[0].Description, "Take out the trash")
}

func TestSynchronizer_GroupMembershipAppearsLive(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})
	f.seedUser(t, "bob", models.User{})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)
	is.NoErr(sync.Focus(ctx))
	defer sync.Blur()

	_, err := f.maintainer.CreateGroup(ctx, services.CreateGroupInput{
		GroupName: "Kitchen",
		Color:     "#FF6B6B",
		Creator:   "bob",
		Members:   []string{"bob", "alice"},
	})
	is.NoErr(err)

	snap := sync.Snapshot()
	is.Equal(snap.State, StateReady)
	is.Equal(len(snap.Groups), 1)
	is.Equal(snap.Groups[0].Name, "Kitchen")
}

func TestSynchronizer_BlurStopsUpdates(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})
	f.seedUser(t, "bob", models.User{})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)
	is.NoErr(sync.Focus(ctx))

	sync.Blur()
	is.Equal(sync.Snapshot().State, StateIdle)

	_, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Dishes",
		Creator:     "bob",
		Assignees:   []string{"alice"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	// no pass runs after blur; the snapshot stays idle
	is.Equal(sync.Snapshot().State, StateIdle)
	is.Equal(len(sync.Snapshot().Tasks), 0)

	sync.Blur() // repeated blur is a safe no-op
}

func TestSynchronizer_UnauthenticatedIsDistinctFromError(t *testing.T) {
	is := is.New(t)
	f := newFixture(t)

	sync := NewSynchronizer(f.store, auth.Static(""), f.listing, services.FilterAll)
	err := sync.Focus(context.Background())
	is.True(errors.Is(err, auth.ErrUnauthenticated))

	snap := sync.Snapshot()
	is.Equal(snap.State, StateUnauthenticated)
	is.True(snap.Err != nil)
}

func TestSynchronizer_OnUpdateSeesEveryCommit(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)

	var states []State
	sync.OnUpdate(func(snap Snapshot) { states = append(states, snap.State) })

	is.NoErr(sync.Focus(ctx))
	defer sync.Blur()

	is.True(len(states) >= 2)
	is.Equal(states[0], StateLoading)
	is.Equal(states[len(states)-1], StateReady)
}

func TestSynchronizer_RefocusSupersedesOldSubscription(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})
	f.seedUser(t, "bob", models.User{})

	sync := NewSynchronizer(f.store, auth.Static("alice"), f.listing, services.FilterAll)
	is.NoErr(sync.Focus(ctx))
	is.NoErr(sync.Focus(ctx)) // second focus replaces the first subscription
	defer sync.Blur()

	taskID, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Sweep",
		Creator:     "bob",
		Assignees:   []string{"alice"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	// exactly one live subscription serves the refocused screen
	snap := sync.Snapshot()
	is.Equal(snap.State, StateReady)
	is.Equal(len(snap.Tasks), 1)
	is.Equal(snap.Tasks[0].ID, taskID)
}

func TestGroupSynchronizer_FocusAndLiveUpdates(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})
	f.seedUser(t, "bob", models.User{})
	if err := f.store.Set(ctx, models.GroupsCollection, "kitchen", models.Group{GroupName: "Kitchen"}); err != nil {
		t.Fatalf("seeding group: %v", err)
	}

	sync := NewGroupSynchronizer(f.store, auth.Static("bob"), f.listing, "kitchen", services.FilterAll)
	is.NoErr(sync.Focus(ctx))
	defer sync.Blur()

	snap := sync.Snapshot()
	is.Equal(snap.State, StateReady)
	is.Equal(snap.GroupName, "Kitchen")
	is.Equal(len(snap.GroupTasks), 0)
	is.Equal(len(snap.IndividualTasks), 0)

	// a new task in this group lands in the group pane
	groupTaskID, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Clean counters",
		Creator:     "alice",
		Assignees:   []string{"alice"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	snap = sync.Snapshot()
	is.Equal(len(snap.GroupTasks), 1)
	is.Equal(snap.GroupTasks[0].ID, groupTaskID)

	// a task assigned to the current user in another group lands in the
	// individual pane
	individualID, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Water plants",
		Creator:     "alice",
		Assignees:   []string{"bob"},
		Group:       "balcony",
	})
	is.NoErr(err)

	snap = sync.Snapshot()
	is.Equal(len(snap.GroupTasks), 1)
	is.Equal(len(snap.IndividualTasks), 1)
	is.Equal(snap.IndividualTasks[0].ID, individualID)
}

func TestGroupSynchronizer_BlurTearsDownBothSubscriptions(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	f := newFixture(t)

	f.seedUser(t, "alice", models.User{})
	f.seedUser(t, "bob", models.User{})

	sync := NewGroupSynchronizer(f.store, auth.Static("bob"), f.listing, "kitchen", services.FilterAll)
	is.NoErr(sync.Focus(ctx))
	sync.Blur()

	_, err := f.maintainer.CreateTask(ctx, services.CreateTaskInput{
		Description: "Mop",
		Creator:     "alice",
		Assignees:   []string{"bob"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	is.Equal(sync.Snapshot().State, StateIdle)
	sync.Blur()
}
