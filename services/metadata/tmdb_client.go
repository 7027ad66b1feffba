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
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Minimal TMDB v3 client, used as the independent last-resort provider when
// Watchmode produces nothing.

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
)

type tmdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newTMDBClient(apiKey string, httpc *http.Client) (*tmdbClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("tmdb: %w (missing api key)", errNotConfigured)
	}
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	return &tmdbClient{apiKey: apiKey, httpc: httpc}, nil
}

type tmdbSearchResult struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"` // "movie" | "tv" | "person"
	Title        string  `json:"title"`      // movies
	Name         string  `json:"name"`       // tv
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Overview     string  `json:"overview"`
	VoteAverage  float64 `json:"vote_average"`
}

func (r tmdbSearchResult) displayName() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbTitleDetails struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Name             string      `json:"name"`
	OriginalTitle    string      `json:"original_title"`
	OriginalName     string      `json:"original_name"`
	ReleaseDate      string      `json:"release_date"`
	FirstAirDate     string      `json:"first_air_date"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	Overview         string      `json:"overview"`
	Runtime          int         `json:"runtime"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	VoteAverage      float64     `json:"vote_average"`
	Genres           []tmdbGenre `json:"genres"`
	IMDBID           string      `json:"imdb_id"`
}

// searchTitles queries the multi-search index and keeps movie/tv entries only.
func (c *tmdbClient) searchTitles(ctx context.Context, query string) ([]tmdbSearchResult, error) {
	params := url.Values{"query": []string{query}, "include_adult": []string{"false"}}
	var resp struct {
		Results []tmdbSearchResult `json:"results"`
	}
	if err := c.doGET(ctx, tmdbBaseURL+"/search/multi", params, &resp); err != nil {
		return nil, err
	}
	titles := make([]tmdbSearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.MediaType == "movie" || r.MediaType == "tv" {
			titles = append(titles, r)
		}
	}
	return titles, nil
}

// titleDetails fetches movie or tv details. TMDB has no combined sources
// payload on this endpoint, so results from this provider carry metadata only.
func (c *tmdbClient) titleDetails(ctx context.Context, mediaType string, id int64) (*tmdbTitleDetails, error) {
	kind := "movie"
	if mediaType == "series" || mediaType == "tv" {
		kind = "tv"
	}
	var details tmdbTitleDetails
	endpoint := fmt.Sprintf("%s/%s/%d", tmdbBaseURL, kind, id)
	if err := c.doGET(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}
	if details.ID == 0 {
		return nil, errTitleNotFound
	}
	return &details, nil
}

// imageURL resolves a TMDB image path against the CDN, or "" when absent.
func tmdbImageURL(path, size string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	return tmdbImageBaseURL + "/" + size + path
}

func (c *tmdbClient) doGET(ctx context.Context, endpoint string, params url.Values, v any) error {
	if c == nil {
		return errNotConfigured
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	full := endpoint + "?" + params.Encode()

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
			if resp.StatusCode == http.StatusUnauthorized {
				return retry.Unrecoverable(fmt.Errorf("tmdb auth failure: %s", resp.Status))
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("tmdb get %s failed: %s", endpoint, resp.Status)
			}
			if resp.StatusCode >= 300 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				return retry.Unrecoverable(fmt.Errorf("tmdb get %s failed: %s: %s", endpoint, resp.Status, strings.TrimSpace(string(snippet))))
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
			log.Printf("[tmdb] GET %s failed: %v", endpoint, err)
		}
		return err
	}
	return json.Unmarshal(body, v)
}
