package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"streamseek/config"
	"streamseek/models"
	metadatapkg "streamseek/services/metadata"
	providerspkg "streamseek/services/providers"
)

type metadataService interface {
	Search(context.Context, string, metadatapkg.SearchOptions) models.SearchResponse
	Details(context.Context, string, metadatapkg.DetailsOptions) (*models.Title, error)
	Popular(context.Context, metadatapkg.PopularOptions) []models.Title
}

var _ metadataService = (*metadatapkg.Service)(nil)

// subscriptionLister provides a user's declared subscription set.
type subscriptionLister interface {
	SubscribedProviders(userID string) ([]models.ProviderKey, error)
}

type MetadataHandler struct {
	Service      metadataService
	Registry     *providerspkg.Registry
	CfgManager   *config.Manager
	UserSettings subscriptionLister
}

func NewMetadataHandler(s metadataService, registry *providerspkg.Registry, cfgManager *config.Manager) *MetadataHandler {
	return &MetadataHandler{Service: s, Registry: registry, CfgManager: cfgManager}
}

// SetUserSettingsProvider sets the subscription lister used for per-user
// provider filtering.
func (h *MetadataHandler) SetUserSettingsProvider(provider subscriptionLister) {
	h.UserSettings = provider
}

// Search handles GET /api/search?q=&type=&region=
func (h *MetadataHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter q is required"})
		return
	}

	resp := h.Service.Search(r.Context(), query, metadatapkg.SearchOptions{
		MediaType: normalizeMediaType(r.URL.Query().Get("type")),
		Region:    h.region(r),
	})
	writeJSON(w, http.StatusOK, resp)
}

// Details handles GET /api/titles/{id}?region=
func (h *MetadataHandler) Details(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	title, err := h.Service.Details(r.Context(), id, metadatapkg.DetailsOptions{Region: h.region(r)})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	if title == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "title not found"})
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// PopularResponse wraps the popular listing.
type PopularResponse struct {
	Items []models.Title `json:"items"`
	Total int            `json:"total"`
}

// Popular handles GET /api/popular?type=&region=&enrich=&userId=
//
// With a userId whose stored subscription set is non-empty, the set is used
// twice: its upstream source ids pre-filter the listing call (so titles the
// user could never watch are not fetched or enriched), and the matching
// engine trims the enriched results afterwards.
func (h *MetadataHandler) Popular(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := metadatapkg.PopularOptions{
		MediaType: normalizeMediaType(q.Get("type")),
		Region:    h.region(r),
		Enrich:    strings.EqualFold(q.Get("enrich"), "true"),
	}

	var keys []models.ProviderKey
	if userID := strings.TrimSpace(q.Get("userId")); userID != "" && h.UserSettings != nil {
		stored, err := h.UserSettings.SubscribedProviders(userID)
		if err == nil {
			keys = stored
		}
	}
	if len(keys) > 0 && h.Registry != nil {
		opts.SourceIDs = h.Registry.SourceIDs(keys)
	}

	items := h.Service.Popular(r.Context(), opts)
	// Per-title trimming needs sources, which only enriched entries carry;
	// unenriched listings rely on the server-side pre-filter alone.
	if len(keys) > 0 && h.Registry != nil && opts.Enrich {
		items = h.Registry.FilterByUserProviders(items, keys)
	}

	writeJSON(w, http.StatusOK, PopularResponse{Items: items, Total: len(items)})
}

func (h *MetadataHandler) region(r *http.Request) string {
	if region := strings.TrimSpace(r.URL.Query().Get("region")); region != "" {
		return strings.ToUpper(region)
	}
	if h.CfgManager != nil {
		return h.CfgManager.Get().DefaultRegion
	}
	return "US"
}

func normalizeMediaType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "series", "tv", "show", "shows":
		return models.MediaTypeSeries
	case "movie", "movies":
		return models.MediaTypeMovie
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
