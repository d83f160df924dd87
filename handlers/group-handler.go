package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/models"
	"github.com/omora14/roomiesChore/services"
)

type GroupHandler struct {
	identity   auth.IdentityProvider
	maintainer *services.RelationshipMaintainer
	listing    *services.ListingService
}

func NewGroupHandler(identity auth.IdentityProvider, maintainer *services.RelationshipMaintainer, listing *services.ListingService) *GroupHandler {
	return &GroupHandler{identity: identity, maintainer: maintainer, listing: listing}
}

// CreateGroup creates a group; the current user is the creator and always an
// implicit member.
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var input services.CreateGroupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	input.Creator = userID

	groupID, err := h.maintainer.CreateGroup(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": groupID})
}

// GetGroupMembers returns the resolved member rows of a group.
func (h *GroupHandler) GetGroupMembers(w http.ResponseWriter, r *http.Request) {
	if _, err := currentIdentity(r, h.identity); err != nil {
		writeServiceError(w, err)
		return
	}

	groupID := mux.Vars(r)["groupID"]
	members, err := h.listing.ListGroupMembers(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(members)
}

// GetGroupTasks returns the group screen's two task lists: tasks belonging
// to the group, and the current user's individual tasks.
func (h *GroupHandler) GetGroupTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	groupID := mux.Vars(r)["groupID"]
	filter := filterFromQuery(r)

	groupTasks, err := h.listing.ListGroupTasks(r.Context(), groupID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	individualTasks, err := h.listing.ListIndividualTasks(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string][]models.ResolvedTask{
		"group_tasks":      groupTasks,
		"individual_tasks": individualTasks,
	})
}
