package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"streamseek/models"
	settingspkg "streamseek/services/user_settings"
)

type userSettingsService interface {
	Get(userID string) (models.UserSettings, error)
	Update(userID string, settings models.UserSettings) error
}

var _ userSettingsService = (*settingspkg.Service)(nil)

// ProvidersHandler exposes a user's declared streaming-subscription set.
type ProvidersHandler struct {
	Settings userSettingsService
}

func NewProvidersHandler(settings userSettingsService) *ProvidersHandler {
	return &ProvidersHandler{Settings: settings}
}

// ProvidersResponse mirrors the stored subscription set after normalization.
type ProvidersResponse struct {
	Providers []models.ProviderKey `json:"providers"`
	Region    string               `json:"region,omitempty"`
}

// Get handles GET /api/users/{id}/providers
func (h *ProvidersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	settings, err := h.Settings.Get(userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, settingspkg.ErrUserIDRequired) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ProvidersResponse{
		Providers: providersOrEmpty(settings.SubscribedProviders),
		Region:    settings.Region,
	})
}

type updateProvidersRequest struct {
	Providers []models.ProviderKey `json:"providers"`
	Region    string               `json:"region"`
}

// Update handles PUT /api/users/{id}/providers
//
// The whole request is rejected when any key is unknown; partial writes
// would let a typo silently shrink the set.
func (h *ProvidersHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req updateProvidersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Settings.Update(userID, models.UserSettings{
		SubscribedProviders: req.Providers,
		Region:              req.Region,
	}); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, settingspkg.ErrUserIDRequired) || errors.Is(err, settingspkg.ErrUnknownProvider) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	settings, err := h.Settings.Get(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ProvidersResponse{
		Providers: providersOrEmpty(settings.SubscribedProviders),
		Region:    settings.Region,
	})
}

func providersOrEmpty(keys []models.ProviderKey) []models.ProviderKey {
	if keys == nil {
		return []models.ProviderKey{}
	}
	return keys
}
