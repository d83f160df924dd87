package models

import "time"

// Priority is an optional task label. The empty string means no priority
// was set.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a chore. Creator, assignees and group are weak references that may
// outlive the documents they point at; readers go through the resolver and
// degrade to placeholders rather than failing on a dangling reference.
type Task struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	Description string     `bson:"description" json:"description"`
	Creator     Ref        `bson:"creator,omitempty" json:"creator,omitempty"`
	Assignees   []Ref      `bson:"assignees" json:"assignees"`
	Group       Ref        `bson:"group,omitempty" json:"group,omitempty"`
	DueDate     *time.Time `bson:"due_date,omitempty" json:"due_date,omitempty"`
	IsDone      bool       `bson:"is_done" json:"is_done"`
	Priority    Priority   `bson:"priority,omitempty" json:"priority,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
