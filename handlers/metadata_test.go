package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamseek/models"
	metadatapkg "streamseek/services/metadata"
	providerspkg "streamseek/services/providers"
)

type stubMetadataService struct {
	searchResp  models.SearchResponse
	searchOpts  metadatapkg.SearchOptions
	searchQuery string

	detailsResp *models.Title
	detailsErr  error
	detailsID   string

	popularResp []models.Title
	popularOpts metadatapkg.PopularOptions
}

func (s *stubMetadataService) Search(_ context.Context, query string, opts metadatapkg.SearchOptions) models.SearchResponse {
	s.searchQuery = query
	s.searchOpts = opts
	return s.searchResp
}

func (s *stubMetadataService) Details(_ context.Context, id string, _ metadatapkg.DetailsOptions) (*models.Title, error) {
	s.detailsID = id
	return s.detailsResp, s.detailsErr
}

func (s *stubMetadataService) Popular(_ context.Context, opts metadatapkg.PopularOptions) []models.Title {
	s.popularOpts = opts
	return s.popularResp
}

type stubSubscriptions struct {
	keys []models.ProviderKey
	err  error
}

func (s *stubSubscriptions) SubscribedProviders(string) ([]models.ProviderKey, error) {
	return s.keys, s.err
}

func newTestRouter(h *MetadataHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/api/titles/{id}", h.Details).Methods(http.MethodGet)
	r.HandleFunc("/api/popular", h.Popular).Methods(http.MethodGet)
	return r
}

func TestSearchRequiresQuery(t *testing.T) {
	h := NewMetadataHandler(&stubMetadataService{}, providerspkg.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=%20%20", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchPassesNormalizedOptions(t *testing.T) {
	svc := &stubMetadataService{searchResp: models.SearchResponse{
		Titles:     []models.Title{{ID: "wm:movie:1", Name: "Heat"}},
		TotalCount: 1,
	}}
	h := NewMetadataHandler(svc, providerspkg.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=heat&type=shows&region=gb", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "heat", svc.searchQuery)
	assert.Equal(t, models.MediaTypeSeries, svc.searchOpts.MediaType)
	assert.Equal(t, "GB", svc.searchOpts.Region)

	var resp models.SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TotalCount)
}

func TestDetailsNotFound(t *testing.T) {
	h := NewMetadataHandler(&stubMetadataService{}, providerspkg.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/titles/wm:movie:999", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetailsReturnsTitle(t *testing.T) {
	svc := &stubMetadataService{detailsResp: &models.Title{ID: "wm:movie:7", Name: "Alien"}}
	h := NewMetadataHandler(svc, providerspkg.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/titles/wm:movie:7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wm:movie:7", svc.detailsID)

	var title models.Title
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&title))
	assert.Equal(t, "Alien", title.Name)
}

func TestPopularPrefiltersAndTrimsForSubscribedUser(t *testing.T) {
	svc := &stubMetadataService{popularResp: []models.Title{
		{ID: "wm:movie:1", Name: "On Netflix", Sources: []models.Source{
			{Name: "Netflix", AccessType: models.AccessSubscription},
		}},
		{ID: "wm:movie:2", Name: "Rental Only", Sources: []models.Source{
			{Name: "Netflix", AccessType: models.AccessRental},
		}},
	}}
	h := NewMetadataHandler(svc, providerspkg.NewRegistry(), nil)
	h.SetUserSettingsProvider(&stubSubscriptions{keys: []models.ProviderKey{models.ProviderNetflix}})

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular?userId=u1&enrich=true", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{203}, svc.popularOpts.SourceIDs)
	assert.True(t, svc.popularOpts.Enrich)

	var resp PopularResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "On Netflix", resp.Items[0].Name)
}

func TestPopularUnenrichedSkipsPerTitleTrim(t *testing.T) {
	svc := &stubMetadataService{popularResp: []models.Title{
		{ID: "wm:movie:1", Name: "Stub Without Sources"},
	}}
	h := NewMetadataHandler(svc, providerspkg.NewRegistry(), nil)
	h.SetUserSettingsProvider(&stubSubscriptions{keys: []models.ProviderKey{models.ProviderNetflix}})

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular?userId=u1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{203}, svc.popularOpts.SourceIDs)

	var resp PopularResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
}

func TestPopularWithoutUserAppliesNoFilter(t *testing.T) {
	svc := &stubMetadataService{popularResp: []models.Title{{ID: "wm:movie:1"}}}
	h := NewMetadataHandler(svc, providerspkg.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	newTestRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/popular", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.popularOpts.SourceIDs)
}
