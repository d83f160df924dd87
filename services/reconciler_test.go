package services

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

func TestReconciler_SweepRepairsOrphanedTask(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	mem := store.NewMemory()

	seedUser(t, mem, "alice", models.User{})
	seedUser(t, mem, "bob", models.User{})

	// a creation saga that died after the task write: the document exists
	// but no back-reference was ever appended
	seedTask(t, mem, "orphan", models.Task{
		Description: "Dishes",
		Creator:     models.UserRef("alice"),
		Assignees:   []models.Ref{models.UserRef("bob")},
		Group:       models.GroupRef("kitchen"),
	})

	is.NoErr(NewReconciler(mem).SweepOnce(ctx))

	var alice, bob models.User
	is.NoErr(mem.Get(ctx, models.UsersCollection, "alice", &alice))
	is.NoErr(mem.Get(ctx, models.UsersCollection, "bob", &bob))
	is.Equal(alice.CreatedTasks, []models.Ref{models.TaskRef("orphan")})
	is.Equal(bob.AssignedTasks, []models.Ref{models.TaskRef("orphan")})
}

func TestReconciler_SweepIsIdempotent(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	mem := store.NewMemory()
	maintainer := NewRelationshipMaintainer(mem)

	seedUser(t, mem, "alice", models.User{})
	seedUser(t, mem, "bob", models.User{})

	taskID, err := maintainer.CreateTask(ctx, CreateTaskInput{
		Description: "Trash",
		Creator:     "alice",
		Assignees:   []string{"bob"},
		Group:       "kitchen",
	})
	is.NoErr(err)

	reconciler := NewReconciler(mem)
	is.NoErr(reconciler.SweepOnce(ctx))
	is.NoErr(reconciler.SweepOnce(ctx))

	// a fully linked task is untouched: still exactly one reference each
	var alice, bob models.User
	is.NoErr(mem.Get(ctx, models.UsersCollection, "alice", &alice))
	is.NoErr(mem.Get(ctx, models.UsersCollection, "bob", &bob))
	is.Equal(alice.CreatedTasks, []models.Ref{models.TaskRef(taskID)})
	is.Equal(bob.AssignedTasks, []models.Ref{models.TaskRef(taskID)})
}

func TestReconciler_SweepSkipsDeletedUsers(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	mem := store.NewMemory()

	seedUser(t, mem, "bob", models.User{})
	seedTask(t, mem, "t1", models.Task{
		Description: "Mop",
		Creator:     models.UserRef("deleted-user"),
		Assignees:   []models.Ref{models.UserRef("bob"), models.UserRef("another-deleted")},
	})

	// references into deleted users are stale data, not sweep failures
	is.NoErr(NewReconciler(mem).SweepOnce(ctx))

	var bob models.User
	is.NoErr(mem.Get(ctx, models.UsersCollection, "bob", &bob))
	is.Equal(bob.AssignedTasks, []models.Ref{models.TaskRef("t1")})
}
