package services

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/omora14/roomiesChore/logging"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/store"
)

// RelationshipMaintainer is the only writer of the bidirectional
// back-reference arrays (created_tasks, assigned_tasks, assigned_groups).
// The store has no foreign keys and no multi-document transactions, so each
// creation is a saga of independent writes: the entity document first, then
// one idempotent set-union append per related user. A failure mid-saga
// leaves the committed document in place and is reported as a
// PartialWriteError; the reconciliation sweep re-issues the missing appends
// later.
type RelationshipMaintainer struct {
	store store.Store
}

func NewRelationshipMaintainer(s store.Store) *RelationshipMaintainer {
	return &RelationshipMaintainer{store: s}
}

// CreateUserInput is the signup-time profile for a new user document.
type CreateUserInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreateUser writes the user document for a freshly authenticated identity,
// with empty back-reference arrays for the maintainer to fill in later.
func (m *RelationshipMaintainer) CreateUser(ctx context.Context, identity string, in CreateUserInput) error {
	if identity == "" {
		return fmt.Errorf("%w: user identity is required", ErrInvalidInput)
	}
	doc := bson.M{
		"email":           in.Email,
		"username":        in.Username,
		"firstName":       in.FirstName,
		"lastName":        in.LastName,
		"createdAt":       store.ServerTimestamp,
		"created_tasks":   []models.Ref{},
		"assigned_tasks":  []models.Ref{},
		"assigned_groups": []models.Ref{},
	}
	if err := m.store.Set(ctx, models.UsersCollection, identity, doc); err != nil {
		return fmt.Errorf("failed to create user document: %w", err)
	}
	logging.Logger.Infof("Event ID: USER_CREATED, Description: Created user document %s", identity)
	return nil
}

// CreateTaskInput carries the create-task form fields. Identities are bare
// strings; the maintainer turns them into references once, at this boundary.
type CreateTaskInput struct {
	Description string          `json:"description"`
	Creator     string          `json:"creator"`
	Assignees   []string        `json:"assignees"`
	Group       string          `json:"group"`
	DueDate     string          `json:"due_date"`
	Priority    models.Priority `json:"priority"`
}

// CreateTask inserts the task document and then appends its reference into
// each assignee's assigned_tasks and the creator's created_tasks. Steps
// after the insert are not atomic with it; on a failed append the task id is
// still returned inside the PartialWriteError so the caller can reconcile.
func (m *RelationshipMaintainer) CreateTask(ctx context.Context, in CreateTaskInput) (string, error) {
	if strings.TrimSpace(in.Description) == "" {
		return "", fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if in.Creator == "" {
		return "", fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	if len(in.Assignees) == 0 {
		return "", fmt.Errorf("%w: at least one assignee is required", ErrInvalidInput)
	}
	if in.Group == "" {
		return "", fmt.Errorf("%w: group is required", ErrInvalidInput)
	}
	if !in.Priority.Valid() {
		return "", fmt.Errorf("%w: priority must be Low, Medium or High", ErrInvalidInput)
	}
	dueDate, err := models.ParseDueDate(in.DueDate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	doc := bson.M{
		"description": in.Description,
		"creator":     models.UserRef(in.Creator),
		"assignees":   models.UserRefs(in.Assignees),
		"group":       models.GroupRef(in.Group),
		"due_date":    dueDate,
		"is_done":     false,
		"priority":    in.Priority,
		"createdAt":   store.ServerTimestamp,
		"updatedAt":   store.ServerTimestamp,
	}
	taskID, err := m.store.Add(ctx, models.TasksCollection, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	taskRef := models.TaskRef(taskID)
	for _, assignee := range in.Assignees {
		if err := m.store.AppendUnique(ctx, models.UsersCollection, assignee, "assigned_tasks", taskRef); err != nil {
			logging.Logger.Errorf("Event ID: PARTIAL_WRITE, Description: Task %s committed but assigned_tasks append for user %s failed: %v", taskID, assignee, err)
			return taskID, &PartialWriteError{Op: "createTask", DocID: taskID, Err: err}
		}
	}
	if err := m.store.AppendUnique(ctx, models.UsersCollection, in.Creator, "created_tasks", taskRef); err != nil {
		logging.Logger.Errorf("Event ID: PARTIAL_WRITE, Description: Task %s committed but created_tasks append for user %s failed: %v", taskID, in.Creator, err)
		return taskID, &PartialWriteError{Op: "createTask", DocID: taskID, Err: err}
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Created task %s for group %s with %d assignee(s)", taskID, in.Group, len(in.Assignees))
	return taskID, nil
}

// CreateGroupInput carries the create-group form fields.
type CreateGroupInput struct {
	GroupName string   `json:"group_name"`
	Color     string   `json:"color"`
	Creator   string   `json:"creator"`
	Members   []string `json:"members"`
}

// CreateGroup writes the group document and appends its reference into every
// member's assigned_groups. The creator is always an implicit member.
func (m *RelationshipMaintainer) CreateGroup(ctx context.Context, in CreateGroupInput) (string, error) {
	if strings.TrimSpace(in.GroupName) == "" {
		return "", fmt.Errorf("%w: group name is required", ErrInvalidInput)
	}
	if in.Creator == "" {
		return "", fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	if len(in.Members) == 0 {
		return "", fmt.Errorf("%w: at least one member is required", ErrInvalidInput)
	}
	if in.Color == "" {
		return "", fmt.Errorf("%w: a color is required", ErrInvalidInput)
	}

	members := unionMembers(in.Members, in.Creator)

	doc := bson.M{
		"group_name":    in.GroupName,
		"color":         in.Color,
		"creator":       models.UserRef(in.Creator),
		"group_members": models.UserRefs(members),
		"createdAt":     store.ServerTimestamp,
		"updatedAt":     store.ServerTimestamp,
	}
	groupID, err := m.store.Add(ctx, models.GroupsCollection, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create group: %w", err)
	}

	groupRef := models.GroupRef(groupID)
	for _, member := range members {
		if err := m.store.AppendUnique(ctx, models.UsersCollection, member, "assigned_groups", groupRef); err != nil {
			logging.Logger.Errorf("Event ID: PARTIAL_WRITE, Description: Group %s committed but assigned_groups append for user %s failed: %v", groupID, member, err)
			return groupID, &PartialWriteError{Op: "createGroup", DocID: groupID, Err: err}
		}
	}

	logging.Logger.Infof("Event ID: GROUP_CREATED, Description: Created group %s with %d member(s)", groupID, len(members))
	return groupID, nil
}

// SetTaskDone flips the completion flag in place, leaving every other field
// untouched. Any viewer of the task may toggle it.
func (m *RelationshipMaintainer) SetTaskDone(ctx context.Context, taskID string, done bool) error {
	err := m.store.Update(ctx, models.TasksCollection, taskID, map[string]interface{}{
		"is_done":   done,
		"updatedAt": store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return nil
}

// UpdateTaskInput carries the full-edit form fields; every field is
// rewritten.
type UpdateTaskInput struct {
	Description string          `json:"description"`
	Assignees   []string        `json:"assignees"`
	Group       string          `json:"group"`
	DueDate     string          `json:"due_date"`
	Priority    models.Priority `json:"priority"`
}

// UpdateTask rewrites a task's editable fields. Newly added assignees get
// the task appended into their assigned_tasks; when the group changes there
// is nothing to retract on the old group, because tasks are not indexed on
// the group document (group tasks are a direct query by reference equality).
func (m *RelationshipMaintainer) UpdateTask(ctx context.Context, taskID string, in UpdateTaskInput) error {
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidInput)
	}
	if len(in.Assignees) == 0 {
		return fmt.Errorf("%w: at least one assignee is required", ErrInvalidInput)
	}
	if in.Group == "" {
		return fmt.Errorf("%w: group is required", ErrInvalidInput)
	}
	if !in.Priority.Valid() {
		return fmt.Errorf("%w: priority must be Low, Medium or High", ErrInvalidInput)
	}
	dueDate, err := models.ParseDueDate(in.DueDate)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = m.store.Update(ctx, models.TasksCollection, taskID, map[string]interface{}{
		"description": in.Description,
		"assignees":   models.UserRefs(in.Assignees),
		"group":       models.GroupRef(in.Group),
		"due_date":    dueDate,
		"priority":    in.Priority,
		"updatedAt":   store.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	taskRef := models.TaskRef(taskID)
	for _, assignee := range in.Assignees {
		if err := m.store.AppendUnique(ctx, models.UsersCollection, assignee, "assigned_tasks", taskRef); err != nil {
			logging.Logger.Errorf("Event ID: PARTIAL_WRITE, Description: Task %s updated but assigned_tasks append for user %s failed: %v", taskID, assignee, err)
			return &PartialWriteError{Op: "updateTask", DocID: taskID, Err: err}
		}
	}
	return nil
}

// DeleteTask removes the task document only. References to it in
// created_tasks and assigned_tasks arrays are left in place and resolve
// lazily to nothing; the listing layer drops them.
func (m *RelationshipMaintainer) DeleteTask(ctx context.Context, taskID string) error {
	if err := m.store.Delete(ctx, models.TasksCollection, taskID); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Deleted task %s", taskID)
	return nil
}

// unionMembers appends the creator to the member set unless already
// selected, preserving the selection order.
func unionMembers(members []string, creator string) []string {
	out := make([]string, 0, len(members)+1)
	seen := make(map[string]bool, len(members)+1)
	for _, id := range append(append([]string{}, members...), creator) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
