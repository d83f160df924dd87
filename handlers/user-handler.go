package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/omora14/roomiesChore/auth"
	"github.com/omora14/roomiesChore/services"
)

type UserHandler struct {
	identity   auth.IdentityProvider
	maintainer *services.RelationshipMaintainer
	listing    *services.ListingService
}

func NewUserHandler(identity auth.IdentityProvider, maintainer *services.RelationshipMaintainer, listing *services.ListingService) *UserHandler {
	return &UserHandler{identity: identity, maintainer: maintainer, listing: listing}
}

// CreateUser writes the user document for the authenticated identity after
// signup.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var input services.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.maintainer.CreateUser(r.Context(), userID, input); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": userID})
}

// GetDashboard returns the dashboard's view model: the user's group cards
// and hydrated upcoming tasks.
func (h *UserHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := currentIdentity(r, h.identity)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	groups, err := h.listing.ListGroupsForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tasks, err := h.listing.ListUpcomingTasksForUser(r.Context(), userID, filterFromQuery(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"groups": groups,
		"tasks":  tasks,
	})
}
