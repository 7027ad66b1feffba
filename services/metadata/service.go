package metadata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
	"github.com/samber/lo"

	"streamseek/models"
	"streamseek/utils"
)

// Service unifies heterogeneous upstream title providers behind one canonical
// shape. Providers are tried in a fixed priority order and the first one that
// produces results wins; results are never merged across providers.
type Service struct {
	watchmode *watchmodeClient
	tmdb      *tmdbClient
	cache     *fileCache
}

const (
	// popularPageSize is the fixed page size requested from the listing API.
	popularPageSize = 20

	// enrichLimit caps how many listing entries get a full detail fetch.
	// Entries past the limit keep their lightweight shape.
	enrichLimit = 12
)

// Config carries the provider credentials and cache settings for the service.
type Config struct {
	WatchmodeAPIKey string
	TMDBAPIKey      string
	CacheDir        string
	CacheTTL        time.Duration
}

// NewService builds the service. A missing API key disables that provider
// client (logged once at startup); the fallback chains skip disabled clients,
// so the service stays usable as long as at least one provider is configured.
func NewService(cfg Config) *Service {
	s := &Service{
		cache: newFileCache(filepath.Join(cfg.CacheDir, "metadata"), cfg.CacheTTL),
	}

	wm, err := newWatchmodeClient(cfg.WatchmodeAPIKey, &http.Client{})
	if err != nil {
		log.Printf("[metadata] watchmode client disabled: %v", err)
	} else {
		s.watchmode = wm
	}

	tm, err := newTMDBClient(cfg.TMDBAPIKey, &http.Client{})
	if err != nil {
		log.Printf("[metadata] tmdb client disabled: %v", err)
	} else {
		s.tmdb = tm
	}

	if s.watchmode == nil && s.tmdb == nil {
		log.Printf("[metadata] WARNING: no provider client configured, all lookups will come back empty")
	}
	return s
}

// SearchOptions narrows a unified search.
type SearchOptions struct {
	MediaType string // "movie", "series" or "" for both
	Region    string
}

// Search runs the provider fallback chain for a text query: Watchmode
// autocomplete first (fast, relevance-sorted, includes thumbnails), then the
// legacy Watchmode name search, then TMDB as the independent last resort.
// The first provider returning at least one result short-circuits the rest.
// When every provider fails or comes back empty the caller gets a well-typed
// empty response, never an error.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) models.SearchResponse {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.SearchResponse{Titles: []models.Title{}}
	}

	key := cacheKey("search", "v1", opts.MediaType, opts.Region, strings.ToLower(q))
	var cached models.SearchResponse
	if ok, _ := s.cache.get(key, &cached); ok && len(cached.Titles) > 0 {
		return cached
	}

	attempts := []providerAttempt{
		{"watchmode-autocomplete", func(ctx context.Context) ([]models.Title, error) {
			return s.searchAutocomplete(ctx, q, opts.MediaType)
		}},
		{"watchmode-search", func(ctx context.Context) ([]models.Title, error) {
			return s.searchLegacy(ctx, q, opts.MediaType)
		}},
		{"tmdb-search", func(ctx context.Context) ([]models.Title, error) {
			return s.searchTMDB(ctx, q, opts.MediaType)
		}},
	}

	titles := firstNonEmpty(ctx, attempts)
	resp := models.SearchResponse{Titles: titles, TotalCount: len(titles)}
	if len(titles) > 0 {
		_ = s.cache.set(key, resp)
	}
	return resp
}

// providerAttempt is one step of a fallback chain: a provider call that
// either yields canonical titles or nothing.
type providerAttempt struct {
	name string
	fn   func(context.Context) ([]models.Title, error)
}

// firstNonEmpty runs the attempts strictly in order and stops at the first one
// that yields results. A failing provider is logged and treated as "produced
// nothing"; later providers are only tried after the earlier one is confirmed
// empty or failed.
func firstNonEmpty(ctx context.Context, attempts []providerAttempt) []models.Title {
	for _, attempt := range attempts {
		titles, err := attempt.fn(ctx)
		if err != nil {
			if !errors.Is(err, errNotConfigured) {
				log.Printf("[metadata] %s failed, trying next provider: %v", attempt.name, err)
			}
			continue
		}
		if len(titles) > 0 {
			return titles
		}
	}
	return []models.Title{}
}

func (s *Service) searchAutocomplete(ctx context.Context, query, mediaType string) ([]models.Title, error) {
	if s.watchmode == nil {
		return nil, errNotConfigured
	}
	// ASCII-fold the query; the autocomplete index handles folded text better
	// than decorated unicode.
	results, err := s.watchmode.autocomplete(ctx, unidecode.Unidecode(query))
	if err != nil {
		return nil, err
	}
	titles := make([]models.Title, 0, len(results))
	for _, r := range results {
		if r.ResultType != "" && r.ResultType != "title" {
			continue
		}
		kind := canonicalMediaType(r.Type)
		if mediaType != "" && kind != mediaType {
			continue
		}
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		titles = append(titles, models.Title{
			ID:        watchmodeTitleID(kind, r.ID),
			Name:      r.Name,
			MediaType: kind,
			Year:      r.Year,
			Poster:    r.ImageURL,
		})
	}
	return titles, nil
}

func (s *Service) searchLegacy(ctx context.Context, query, mediaType string) ([]models.Title, error) {
	if s.watchmode == nil {
		return nil, errNotConfigured
	}
	stubs, err := s.watchmode.search(ctx, query)
	if err != nil {
		return nil, err
	}
	titles := make([]models.Title, 0, len(stubs))
	for _, stub := range stubs {
		kind := canonicalMediaType(stub.Type)
		if mediaType != "" && kind != mediaType {
			continue
		}
		if strings.TrimSpace(stub.displayName()) == "" {
			continue
		}
		titles = append(titles, titleFromStub(stub))
	}
	return titles, nil
}

func (s *Service) searchTMDB(ctx context.Context, query, mediaType string) ([]models.Title, error) {
	if s.tmdb == nil {
		return nil, errNotConfigured
	}
	results, err := s.tmdb.searchTitles(ctx, query)
	if err != nil {
		return nil, err
	}
	titles := make([]models.Title, 0, len(results))
	for _, r := range results {
		kind := canonicalMediaType(r.MediaType)
		if mediaType != "" && kind != mediaType {
			continue
		}
		name := strings.TrimSpace(r.displayName())
		if name == "" {
			continue
		}
		titles = append(titles, models.Title{
			ID:         fmt.Sprintf("tmdb:%s:%d", kind, r.ID),
			Name:       name,
			MediaType:  kind,
			Year:       yearFromDate(firstNonBlank(r.ReleaseDate, r.FirstAirDate)),
			Poster:     tmdbImageURL(r.PosterPath, "w342"),
			Backdrop:   tmdbImageURL(r.BackdropPath, "w780"),
			Overview:   r.Overview,
			UserRating: r.VoteAverage,
		})
	}
	return titles, nil
}

// DetailsOptions narrows a detail fetch.
type DetailsOptions struct {
	Region string
}

// Details resolves a canonical title id to its full record with embedded
// sources. The primary attempt is Watchmode's combined details+sources call
// (which also accepts TMDB-scoped ids); on failure or not-found it falls back
// to TMDB's own detail endpoint when the id lives in TMDB's id-space. A nil
// result with nil error means "unknown title", which callers must not treat
// as an error.
func (s *Service) Details(ctx context.Context, id string, opts DetailsOptions) (*models.Title, error) {
	provider, kind, numericID, ok := parseTitleID(id)
	if !ok {
		return nil, nil
	}

	key := cacheKey("details", "v1", opts.Region, id)
	var cached models.Title
	if found, _ := s.cache.get(key, &cached); found && cached.ID != "" {
		return &cached, nil
	}

	// Primary: Watchmode combined details+sources. For TMDB-scoped ids the
	// endpoint takes a "movie-123"/"tv-123" reference.
	if s.watchmode != nil {
		wmID := strconv.FormatInt(numericID, 10)
		if provider == "tmdb" {
			wmKind := "movie"
			if kind == models.MediaTypeSeries {
				wmKind = "tv"
			}
			wmID = fmt.Sprintf("%s-%d", wmKind, numericID)
		}
		details, err := s.watchmode.titleDetails(ctx, wmID, opts.Region)
		if err == nil {
			title := titleFromWatchmodeDetails(details, id)
			_ = s.cache.set(key, title)
			return &title, nil
		}
		if !errors.Is(err, errTitleNotFound) && !errors.Is(err, errNotConfigured) {
			log.Printf("[metadata] watchmode details failed for %s, falling back: %v", id, err)
		}
	}

	// Fallback: TMDB detail call, metadata only (no sources on this path).
	if provider == "tmdb" && s.tmdb != nil {
		details, err := s.tmdb.titleDetails(ctx, kind, numericID)
		if err == nil {
			title := titleFromTMDBDetails(details, id, kind)
			_ = s.cache.set(key, title)
			return &title, nil
		}
		if !errors.Is(err, errTitleNotFound) {
			log.Printf("[metadata] tmdb details failed for %s: %v", id, err)
		}
	}

	return nil, nil
}

// PopularOptions controls the popular listing.
type PopularOptions struct {
	MediaType string // "movie" (default) or "series"
	Region    string
	Enrich    bool
	// SourceIDs pre-filters the listing server-side to the given upstream
	// source ids. Performance only; per-title source trimming stays with the
	// filtering engine.
	SourceIDs []int64
}

// Popular returns one page of popular titles. With Enrich set, the first
// enrichLimit entries get full details (ratings, overview, sources) fetched
// concurrently; the remainder keep their lightweight shape. Entries without a
// resolvable http(s) poster are dropped from the final output since the UI
// has nothing to render for them.
func (s *Service) Popular(ctx context.Context, opts PopularOptions) []models.Title {
	if s.watchmode == nil {
		return []models.Title{}
	}

	kind := opts.MediaType
	if kind != models.MediaTypeSeries {
		kind = models.MediaTypeMovie
	}
	wmType := "movie"
	if kind == models.MediaTypeSeries {
		wmType = "tv_series"
	}

	stubs, err := s.watchmode.listTitles(ctx, wmType, opts.Region, opts.SourceIDs, popularPageSize)
	if err != nil {
		log.Printf("[metadata] popular listing failed: %v", err)
		return []models.Title{}
	}

	titles := make([]models.Title, 0, len(stubs))
	for _, stub := range stubs {
		if strings.TrimSpace(stub.displayName()) == "" {
			continue
		}
		titles = append(titles, titleFromStub(stub))
	}

	if opts.Enrich {
		titles = s.enrichTitles(ctx, titles, opts.Region)
	}

	return lo.Filter(titles, func(t models.Title, _ int) bool {
		return t.HasPoster()
	})
}

// canonicalMediaType maps an upstream type discriminator onto the canonical
// movie/series pair. Anything tv-ish becomes a series, everything else a movie.
func canonicalMediaType(upstream string) string {
	switch strings.ToLower(strings.TrimSpace(upstream)) {
	case "tv_series", "tv_miniseries", "tv_special", "tv", "series", "show", "shows":
		return models.MediaTypeSeries
	default:
		return models.MediaTypeMovie
	}
}

func watchmodeTitleID(kind string, id int64) string {
	return fmt.Sprintf("wm:%s:%d", kind, id)
}

// parseTitleID splits a canonical id into provider id-space, media type and
// numeric id. Ids from different providers are never conflated: an unknown or
// malformed id simply resolves to nothing.
func parseTitleID(id string) (provider, kind string, numericID int64, ok bool) {
	parts := strings.Split(strings.TrimSpace(id), ":")
	if len(parts) != 3 {
		return "", "", 0, false
	}
	provider = parts[0]
	if provider != "wm" && provider != "tmdb" {
		return "", "", 0, false
	}
	kind = parts[1]
	if kind != models.MediaTypeMovie && kind != models.MediaTypeSeries {
		return "", "", 0, false
	}
	n, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || n <= 0 {
		return "", "", 0, false
	}
	return provider, kind, n, true
}

func titleFromStub(stub watchmodeTitleStub) models.Title {
	kind := canonicalMediaType(stub.Type)
	return models.Title{
		ID:        watchmodeTitleID(kind, stub.ID),
		Name:      stub.displayName(),
		MediaType: kind,
		Year:      stub.Year,
		Poster:    stub.Poster,
	}
}

func titleFromWatchmodeDetails(d *watchmodeTitleDetails, id string) models.Title {
	title := models.Title{
		ID:             id,
		Name:           d.Title,
		MediaType:      canonicalMediaType(d.Type),
		Year:           d.Year,
		Poster:         d.Poster,
		Backdrop:       d.Backdrop,
		Overview:       d.PlotOverview,
		ImdbRating:     d.ImdbRating,
		CriticScore:    d.CriticScore,
		UserRating:     d.UserRating,
		RuntimeMinutes: d.RuntimeMinutes,
		Genres:         d.GenreNames,
		TrailerURL:     d.Trailer,
	}
	if d.OriginalTitle != "" && !strings.EqualFold(d.OriginalTitle, d.Title) {
		title.OriginalName = d.OriginalTitle
	}
	title.Sources = make([]models.Source, 0, len(d.Sources))
	for _, src := range d.Sources {
		title.Sources = append(title.Sources, models.Source{
			SourceID:   src.SourceID,
			Name:       src.Name,
			AccessType: canonicalAccessType(src.Type),
			Price:      src.Price,
			WebURL:     utils.SanitizeWebURL(src.WebURL),
			Quality:    src.Format,
			Region:     src.Region,
		})
	}
	return title
}

func titleFromTMDBDetails(d *tmdbTitleDetails, id, kind string) models.Title {
	name := firstNonBlank(d.Title, d.Name)
	original := firstNonBlank(d.OriginalTitle, d.OriginalName)
	runtime := d.Runtime
	if runtime == 0 && len(d.EpisodeRunTime) > 0 {
		runtime = d.EpisodeRunTime[0]
	}
	title := models.Title{
		ID:             id,
		Name:           name,
		MediaType:      kind,
		Year:           yearFromDate(firstNonBlank(d.ReleaseDate, d.FirstAirDate)),
		Poster:         tmdbImageURL(d.PosterPath, "w342"),
		Backdrop:       tmdbImageURL(d.BackdropPath, "w780"),
		Overview:       d.Overview,
		UserRating:     d.VoteAverage,
		RuntimeMinutes: runtime,
	}
	if original != "" && !strings.EqualFold(original, name) {
		title.OriginalName = original
	}
	for _, g := range d.Genres {
		title.Genres = append(title.Genres, g.Name)
	}
	return title
}

// canonicalAccessType maps Watchmode's source type onto the canonical access
// types. "tve" (TV-everywhere logins) rides along as subscription since it is
// flat-rate from the viewer's perspective.
func canonicalAccessType(upstream string) models.AccessType {
	switch strings.ToLower(strings.TrimSpace(upstream)) {
	case "sub", "tve":
		return models.AccessSubscription
	case "rent":
		return models.AccessRental
	case "buy":
		return models.AccessPurchase
	default:
		return models.AccessFree
	}
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
