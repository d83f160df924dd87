package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/services"
)

type TaskHandler struct {
	identity   auth.IdentityProvider
	maintainer *services.RelationshipMaintainer
	listing    *services.ListingService
}

func NewTaskHandler(identity auth.IdentityProvider, maintainer *services.RelationshipMaintainer, listing *services.ListingService) *TaskHandler {
	return &TaskHandler{identity: identity, maintainer: maintainer, listing: listing}
}

// CreateTask creates a task on behalf of the current user; the creator field
// always comes from the authenticated identity, never from the body.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var input services.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input.Creator = userID

	taskID, err := h.maintainer.CreateTask(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": taskID})
}

// SetTaskDone toggles completion on a task.
func (h *TaskHandler) SetTaskDone(w http.ResponseWriter, r *http.Request) {
	if _, err := currentIdentity(r, h.identity); err != nil {
		writeServiceError(w, err)
		return
	}

	var body struct {
		IsDone bool `json:"is_done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID := mux.Vars(r)["taskID"]
	if err := h.maintainer.SetTaskDone(r.Context(), taskID, body.IsDone); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTask rewrites a task's editable fields.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if _, err := currentIdentity(r, h.identity); err != nil {
		writeServiceError(w, err)
		return
	}

	var input services.UpdateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	taskID := mux.Vars(r)["taskID"]
	if err := h.maintainer.UpdateTask(r.Context(), taskID, input); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask removes the task document. Back-references to it stay in place
// and resolve to nothing from then on.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := currentIdentity(r, h.identity); err != nil {
		writeServiceError(w, err)
		return
	}

	taskID := mux.Vars(r)["taskID"]
	if err := h.maintainer.DeleteTask(r.Context(), taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListIndividualTasks returns the hydrated tasks assigned to the current
// user across all groups.
func (h *TaskHandler) ListIndividualTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	tasks, err := h.listing.ListIndividualTasks(r.Context(), userID, filterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tasks)
}

// filterFromQuery reads the explicit completion-filter policy from the
// request; the default returns all tasks regardless of completion.
func filterFromQuery(r *http.Request) services.TaskFilter {
	if r.URL.Query().Get("filter") == "incomplete" {
		return services.FilterIncomplete
	}
	return services.FilterAll
}
