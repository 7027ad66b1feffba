package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	gocache "github.com/patrickmn/go-cache"
)

// Minimal Watchmode client (autocomplete, legacy search, combined title
// details with sources, and the list-titles listing endpoint).

const watchmodeBaseURL = "https://api.watchmode.com/v1"

// requestTimeout bounds every single upstream call so one slow provider
// cannot stall a whole fallback chain.
const requestTimeout = 8 * time.Second

var (
	// errNotConfigured marks a provider client that has no API key. The
	// unification layer skips such clients and carries on down the chain.
	errNotConfigured = errors.New("provider client not configured")

	// errTitleNotFound is returned for ids unknown to the upstream provider.
	errTitleNotFound = errors.New("title not found")
)

type watchmodeClient struct {
	apiKey string
	httpc  *http.Client

	// Short-lived in-memory memo of raw search responses. Purely a quota
	// optimization; concurrent requests for the same key may both reach
	// the upstream API.
	memo *gocache.Cache
}

// newWatchmodeClient fails when the API key is missing: that is a
// configuration error, fatal for this client, not a per-request condition.
func newWatchmodeClient(apiKey string, httpc *http.Client) (*watchmodeClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("watchmode: %w (missing api key)", errNotConfigured)
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	return &watchmodeClient{
		apiKey: apiKey,
		httpc:  httpc,
		memo:   gocache.New(10*time.Minute, 30*time.Minute),
	}, nil
}

type watchmodeAutocompleteResult struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"` // "movie", "tv_series", "tv_miniseries", "person", ...
	Year       int     `json:"year"`
	ImageURL   string  `json:"image_url"`
	TMDBID     int64   `json:"tmdb_id"`
	TMDBType   string  `json:"tmdb_type"`
	ResultType string  `json:"result_type"` // "title" | "person"
	Relevance  float64 `json:"relevance"`
}

type watchmodeTitleStub struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title"` // list-titles uses "title", search uses "name"
	Type   string `json:"type"`
	Year   int    `json:"year"`
	Poster string `json:"poster"`
	IMDBID string `json:"imdb_id"`
	TMDBID int64  `json:"tmdb_id"`
}

func (s watchmodeTitleStub) displayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Title
}

type watchmodeSource struct {
	SourceID int64   `json:"source_id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"` // "sub", "rent", "buy", "free", "tve"
	Region   string  `json:"region"`
	WebURL   string  `json:"web_url"`
	Format   string  `json:"format"` // "SD", "HD", "4K", ...
	Price    float64 `json:"price"`
}

type watchmodeTitleDetails struct {
	ID             int64             `json:"id"`
	Title          string            `json:"title"`
	OriginalTitle  string            `json:"original_title"`
	Type           string            `json:"type"`
	Year           int               `json:"year"`
	PlotOverview   string            `json:"plot_overview"`
	Poster         string            `json:"poster"`
	Backdrop       string            `json:"backdrop"`
	RuntimeMinutes int               `json:"runtime_minutes"`
	UserRating     float64           `json:"user_rating"`   // 0-10
	CriticScore    int               `json:"critic_score"`  // 0-100
	ImdbRating     float64           `json:"imdb_rating"`   // 0-10, not always present
	GenreNames     []string          `json:"genre_names"`
	Trailer        string            `json:"trailer"`
	Sources        []watchmodeSource `json:"sources"`
}

// autocomplete is the preferred search path: relevance-sorted and ships
// thumbnails in the same response.
func (c *watchmodeClient) autocomplete(ctx context.Context, query string) ([]watchmodeAutocompleteResult, error) {
	params := url.Values{
		"search_value": []string{query},
		"search_type":  []string{"2"}, // titles only, no people
	}
	var resp struct {
		Results []watchmodeAutocompleteResult `json:"results"`
	}
	if err := c.doGET(ctx, watchmodeBaseURL+"/autocomplete-search/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// search is the legacy name search, kept as a second chance when
// autocomplete comes back empty for a query the plain index still knows.
func (c *watchmodeClient) search(ctx context.Context, query string) ([]watchmodeTitleStub, error) {
	params := url.Values{
		"search_field": []string{"name"},
		"search_value": []string{query},
	}
	var resp struct {
		TitleResults []watchmodeTitleStub `json:"title_results"`
	}
	if err := c.doGET(ctx, watchmodeBaseURL+"/search/", params, &resp); err != nil {
		return nil, err
	}
	return resp.TitleResults, nil
}

// titleDetails fetches full details with sources appended in the same call;
// a combined fetch costs one quota credit less than two separate ones.
// The id is either a Watchmode numeric id or a "movie-123"/"tv-123" TMDB ref,
// both of which the endpoint accepts.
func (c *watchmodeClient) titleDetails(ctx context.Context, id string, region string) (*watchmodeTitleDetails, error) {
	params := url.Values{
		"append_to_response": []string{"sources"},
	}
	if region != "" {
		params.Set("regions", strings.ToUpper(region))
	}
	var details watchmodeTitleDetails
	endpoint := fmt.Sprintf("%s/title/%s/details/", watchmodeBaseURL, url.PathEscape(id))
	if err := c.doGET(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}
	if details.ID == 0 && strings.TrimSpace(details.Title) == "" {
		return nil, errTitleNotFound
	}
	return &details, nil
}

// listTitles returns one page of popular titles, optionally pre-filtered
// server-side to the given source ids so titles the user could never watch
// are not fetched (and later not enriched) at all.
func (c *watchmodeClient) listTitles(ctx context.Context, titleType, region string, sourceIDs []int64, limit int) ([]watchmodeTitleStub, error) {
	params := url.Values{
		"sort_by": []string{"popularity_desc"},
		"limit":   []string{strconv.Itoa(limit)},
	}
	if titleType != "" {
		params.Set("types", titleType)
	}
	if region != "" {
		params.Set("regions", strings.ToUpper(region))
	}
	if len(sourceIDs) > 0 {
		ids := make([]string, 0, len(sourceIDs))
		for _, id := range sourceIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		params.Set("source_ids", strings.Join(ids, ","))
	}
	var resp struct {
		Titles       []watchmodeTitleStub `json:"titles"`
		TotalResults int                  `json:"total_results"`
	}
	if err := c.doGET(ctx, watchmodeBaseURL+"/list-titles/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Titles, nil
}

// doGET performs an authenticated GET with a per-call timeout, a small retry
// budget for transient upstream errors, and a short in-memory memo.
func (c *watchmodeClient) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	if c == nil {
		return errNotConfigured
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)
	full := endpoint + "?" + params.Encode()

	if raw, ok := c.memo.Get(full); ok {
		return json.Unmarshal(raw.([]byte), v)
	}

	var body []byte
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(callCtx, http.MethodGet, full, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(errTitleNotFound)
			}
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return retry.Unrecoverable(fmt.Errorf("watchmode auth failure: %s", resp.Status))
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return fmt.Errorf("watchmode get %s failed: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(snippet)))
			}
			if resp.StatusCode >= 300 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return retry.Unrecoverable(fmt.Errorf("watchmode get %s failed: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(snippet))))
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if !errors.Is(err, errTitleNotFound) {
			log.Printf("[watchmode] GET %s failed: %v", endpoint, err)
		}
		return err
	}

	c.memo.Set(full, body, gocache.DefaultExpiration)
	return json.Unmarshal(body, v)
}
