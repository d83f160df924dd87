package models

import "time"

// Group is a set of users who share chores. The group stores its member
// references directly; the reverse direction lives in each member's
// assigned_groups array. Tasks are not indexed on the group document —
// group tasks are found by querying tasks on reference equality.
type Group struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	GroupName    string    `bson:"group_name" json:"group_name"`
	Color        string    `bson:"color,omitempty" json:"color,omitempty"`
	GroupMembers []Ref     `bson:"group_members" json:"group_members"`
	Creator      Ref       `bson:"creator,omitempty" json:"creator,omitempty"`
	CreatedAt    time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// DisplayName is the group name, or "Uncategorized" for unnamed groups.
func (g Group) DisplayName() string {
	if g.GroupName != "" {
		return g.GroupName
	}
	return "Uncategorized"
}
