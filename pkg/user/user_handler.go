package user

import (
	"errors"
	"net/http"

	"github.com/rush86999/atomic-scheduler/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	userService Service
}

func NewHandler(userService Service) *Handler {
	return &Handler{
		userService: userService,
	}
}

// CurrentPreferences godoc
// @Summary Get the scheduling preferences of the current user
// @Description Preferences decide reminders, buffer time and what is copied from similar events
// @Tags User
// @Produce json
// @Success 200 {object} Preferences
// @Failure 401 {object} rest.ErrorResponse "No user id header"
// @Router /api/user/current/preferences [get]
func (h *Handler) CurrentPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.userService.CurrentPreferences(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) {
			rest.WriteError(w, http.StatusUnauthorized, "Unknown user", "the X-User-Id header is required")
			return
		}
		log.Errorf("failed to get preferences: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Unable to get preferences", err.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, prefs)
}
