package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/matryer/is"

	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

func TestReferenceResolver_ResolveUser(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	resolver := NewReferenceResolver(mem)

	seedUser(t, mem, "u1", models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"})

	t.Run("resolves an existing user", func(t *testing.T) {
		is := is.New(t)
		resolved := resolver.ResolveUser(ctx, models.UserRef("u1"))
		is.Equal(resolved.ID, "u1")
		is.Equal(resolved.Name, "Ada Lovelace")
		is.Equal(resolved.Email, "ada@example.com")
	})

	t.Run("bare identifier gets the users collection", func(t *testing.T) {
		is := is.New(t)
		resolved := resolver.ResolveUser(ctx, models.Ref{ID: "u1"})
		is.Equal(resolved.Name, "Ada Lovelace")
	})

	t.Run("missing user degrades to the Unknown placeholder", func(t *testing.T) {
		is := is.New(t)
		resolved := resolver.ResolveUser(ctx, models.UserRef("deleted"))
		is.Equal(resolved, models.UnknownUser())
	})
}

func TestReferenceResolver_ResolveGroup(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	resolver := NewReferenceResolver(mem)

	seedGroup(t, mem, "g1", models.Group{GroupName: "Kitchen", Color: "#FF6B6B"})

	t.Run("resolves an existing group", func(t *testing.T) {
		is := is.New(t)
		resolved := resolver.ResolveGroup(ctx, models.GroupRef("g1"))
		is.Equal(resolved, models.ResolvedGroup{ID: "g1", Name: "Kitchen", Color: "#FF6B6B"})
	})

	t.Run("missing group degrades to Uncategorized keeping the id", func(t *testing.T) {
		is := is.New(t)
		resolved := resolver.ResolveGroup(ctx, models.GroupRef("deleted"))
		is.Equal(resolved, models.ResolvedGroup{ID: "deleted", Name: "Uncategorized"})
	})
}

func TestReferenceResolver_TransportFailureDegradesToPlaceholder(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	resolver := NewReferenceResolver(&failingReads{})

	// repeated failures eventually open the breaker; every attempt, closed
	// or open, must still degrade to the placeholder
	for i := 0; i < 10; i++ {
		is.Equal(resolver.ResolveUser(ctx, models.UserRef("u1")), models.UnknownUser())
		is.Equal(resolver.ResolveGroup(ctx, models.GroupRef("g1")), models.ResolvedGroup{ID: "g1", Name: "Uncategorized"})
	}
}

func TestReferenceResolver_LookupUserReportsMissing(t *testing.T) {
	is := is.New(t)
	mem := store.NewMemory()
	resolver := NewReferenceResolver(mem)

	_, err := resolver.LookupUser(context.Background(), models.UserRef("ghost"))
	is.True(err != nil)
}

// failingReads simulates a store whose reads always fail at the transport
// level.
type failingReads struct {
	store.Store
}

func (f *failingReads) Get(ctx context.Context, collection, id string, out interface{}) error {
	return fmt.Errorf("network unreachable")
}

func seedUser(t *testing.T, s store.Store, id string, user models.User) {
	t.Helper()
	if err := s.Set(context.Background(), models.UsersCollection, id, user); err != nil {
		t.Fatalf("seeding user %s: %v", id, err)
	}
}

func seedGroup(t *testing.T, s store.Store, id string, group models.Group) {
	t.Helper()
	if err := s.Set(context.Background(), models.GroupsCollection, id, group); err != nil {
		t.Fatalf("seeding group %s: %v", id, err)
	}
}

func seedTask(t *testing.T, s store.Store, id string, task models.Task) {
	t.Helper()
	if err := s.Set(context.Background(), models.TasksCollection, id, task); err != nil {
		t.Fatalf("seeding task %s: %v", id, err)
	}
}
