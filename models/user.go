package models

import (
	"strings"
	"time"
)

// User is a member of the household. Its identity is assigned by the
// authentication provider, not by the store.
//
// The three reference arrays are the read-side index for listings: they are
// maintained manually at write time (there are no foreign keys in the store)
// and may go stale when a referenced task is deleted. Stale entries resolve
// to placeholders instead of failing.
type User struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Email     string    `bson:"email,omitempty" json:"email,omitempty"`
	Username  string    `bson:"username,omitempty" json:"username,omitempty"`
	FirstName string    `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string    `bson:"lastName,omitempty" json:"lastName,omitempty"`
	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`

	CreatedTasks   []Ref `bson:"created_tasks" json:"created_tasks"`
	AssignedTasks  []Ref `bson:"assigned_tasks" json:"assigned_tasks"`
	AssignedGroups []Ref `bson:"assigned_groups" json:"assigned_groups"`
}

// DisplayName derives the human-readable name shown in task lists:
// "First Last" when either part is set, then username, then email.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown User"
}
