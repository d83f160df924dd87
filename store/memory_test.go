package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/omora14/roomiesChore/models"
)

func TestMemory_GetSet(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	is.NoErr(m.Set(ctx, "users", "u1", models.User{Username: "ada"}))

	var user models.User
	is.NoErr(m.Get(ctx, "users", "u1", &user))
	is.Equal(user.ID, "u1")
	is.Equal(user.Username, "ada")

	err := m.Get(ctx, "users", "missing", &user)
	is.True(errors.Is(err, ErrNotFound))
}

func TestMemory_AppendUniqueIsIdempotent(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	is.NoErr(m.Set(ctx, "users", "u1", models.User{}))

	ref := models.TaskRef("t1")
	is.NoErr(m.AppendUnique(ctx, "users", "u1", "assigned_tasks", ref))
	is.NoErr(m.AppendUnique(ctx, "users", "u1", "assigned_tasks", ref))

	var user models.User
	is.NoErr(m.Get(ctx, "users", "u1", &user))
	is.Equal(len(user.AssignedTasks), 1)
	is.Equal(user.AssignedTasks[0], ref)

	is.NoErr(m.AppendUnique(ctx, "users", "u1", "assigned_tasks", models.TaskRef("t2")))
	is.NoErr(m.Get(ctx, "users", "u1", &user))
	is.Equal(len(user.AssignedTasks), 2)
}

func TestMemory_AppendUniqueToMissingDocument(t *testing.T) {
	is := is.New(t)

	m := NewMemory()
	err := m.AppendUnique(context.Background(), "users", "ghost", "assigned_tasks", models.TaskRef("t1"))
	is.True(errors.Is(err, ErrNotFound))
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	is.NoErr(m.Set(ctx, "tasks", "t1", models.Task{Description: "trash", IsDone: false}))
	is.NoErr(m.Update(ctx, "tasks", "t1", map[string]interface{}{"is_done": true}))

	var task models.Task
	is.NoErr(m.Get(ctx, "tasks", "t1", &task))
	is.Equal(task.Description, "trash")
	is.Equal(task.IsDone, true)

	err := m.Update(ctx, "tasks", "missing", map[string]interface{}{"is_done": true})
	is.True(errors.Is(err, ErrNotFound))
}

func TestMemory_ServerTimestampAssignedAtWriteTime(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	before := time.Now().UTC().Add(-time.Second)
	id, err := m.Add(ctx, "tasks", map[string]interface{}{
		"description": "dishes",
		"createdAt":   ServerTimestamp,
	})
	is.NoErr(err)

	var task models.Task
	is.NoErr(m.Get(ctx, "tasks", id, &task))
	is.True(task.CreatedAt.After(before))
}

func TestMemory_QueryOperators(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	groupRef := models.GroupRef("g1")
	is.NoErr(m.Set(ctx, "tasks", "t1", models.Task{Description: "a", Group: groupRef, Assignees: []models.Ref{models.UserRef("u1")}}))
	is.NoErr(m.Set(ctx, "tasks", "t2", models.Task{Description: "b", Group: models.GroupRef("g2"), Assignees: []models.Ref{models.UserRef("u2")}}))

	var byGroup []models.Task
	is.NoErr(m.Query(ctx, "tasks", "group", OpEqual, groupRef, &byGroup))
	is.Equal(len(byGroup), 1)
	is.Equal(byGroup[0].ID, "t1")

	var byAssignee []models.Task
	is.NoErr(m.Query(ctx, "tasks", "assignees", OpArrayContains, models.UserRef("u2"), &byAssignee))
	is.Equal(len(byAssignee), 1)
	is.Equal(byAssignee[0].ID, "t2")

	var all []models.Task
	is.NoErr(m.Query(ctx, "tasks", "", "", nil, &all))
	is.Equal(len(all), 2)
}

func TestMemory_SubscribeToDocument(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	is.NoErr(m.Set(ctx, "users", "u1", models.User{}))

	var notified int
	cancel := m.Subscribe(ctx, Doc("users", "u1"), func() { notified++ }, func(error) {})

	is.NoErr(m.AppendUnique(ctx, "users", "u1", "assigned_tasks", models.TaskRef("t1")))
	is.Equal(notified, 1)

	// duplicate append is a no-op and must not notify
	is.NoErr(m.AppendUnique(ctx, "users", "u1", "assigned_tasks", models.TaskRef("t1")))
	is.Equal(notified, 1)

	// unrelated document
	is.NoErr(m.Set(ctx, "users", "u2", models.User{}))
	is.Equal(notified, 1)

	cancel()
	is.NoErr(m.Update(ctx, "users", "u1", map[string]interface{}{"username": "ada"}))
	is.Equal(notified, 1)

	cancel() // second invocation is a safe no-op
}

func TestMemory_SubscribeToQuery(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m := NewMemory()

	groupRef := models.GroupRef("g1")
	var notified int
	cancel := m.Subscribe(ctx, Matching("tasks", "group", OpEqual, groupRef), func() { notified++ }, func(error) {})
	defer cancel()

	is.NoErr(m.Set(ctx, "tasks", "t1", models.Task{Description: "a", Group: groupRef}))
	is.Equal(notified, 1)

	// a task in another group does not notify
	is.NoErr(m.Set(ctx, "tasks", "t2", models.Task{Description: "b", Group: models.GroupRef("g2")}))
	is.Equal(notified, 1)

	// deleting a matching task notifies
	is.NoErr(m.Delete(ctx, "tasks", "t1"))
	is.Equal(notified, 2)
}

func TestMemory_DeleteMissingIsNoOp(t *testing.T) {
	is := is.New(t)
	is.NoErr(NewMemory().Delete(context.Background(), "tasks", "ghost"))
}
