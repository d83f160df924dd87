package models

// ResolvedUser is a user reference hydrated into display data. Name is
// derived once at resolution time (see User.DisplayName).
type ResolvedUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
}

// ResolvedGroup is a group reference hydrated into display data.
type ResolvedGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// ResolvedTask is the fully hydrated view model for a task: every reference
// replaced by display data or a placeholder. DueDate is an RFC 3339 UTC
// string; a task without a due date hydrates as the current instant.
type ResolvedTask struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Creator     ResolvedUser   `json:"creator"`
	Assignees   []ResolvedUser `json:"assignees"`
	Group       ResolvedGroup  `json:"group"`
	DueDate     string         `json:"due_date"`
	IsDone      bool           `json:"is_done"`
	Priority    Priority       `json:"priority,omitempty"`
}

// GroupSummary is the card shown on the dashboard's group strip.
type GroupSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// UserSummary is a group-member row.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnknownUser is the placeholder for a user reference that could not be
// resolved. Absence is data on the read path, never an error.
func UnknownUser() ResolvedUser {
	return ResolvedUser{ID: "unknown", Name: "Unknown"}
}

// UncategorizedGroup is the placeholder for a group reference that could not
// be resolved. The original reference id is kept so the caller can still
// link to the (possibly deleted) group.
func UncategorizedGroup(id string) ResolvedGroup {
	if id == "" {
		id = "uncategorized"
	}
	return ResolvedGroup{ID: id, Name: "Uncategorized"}
}
