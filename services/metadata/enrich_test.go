package metadata

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"streamseek/models"
)

var titleDetailsPath = regexp.MustCompile(`^/v1/title/(\d+)/details/$`)

// popularTransport serves a 20-entry listing page and detail responses for
// every id, failing the ids in failDetails with a server error.
func popularTransport(t *testing.T, failDetails map[string]bool) roundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if strings.HasPrefix(req.URL.Path, "/v1/list-titles") {
			var entries []string
			for i := 1; i <= 20; i++ {
				entries = append(entries, fmt.Sprintf(
					`{"id":%d,"title":"Title %d","type":"movie","year":2020,"poster":"https://img.example/stub-%d.jpg"}`, i, i, i))
			}
			return jsonResponse(http.StatusOK, `{"titles":[`+strings.Join(entries, ",")+`]}`), nil
		}
		if m := titleDetailsPath.FindStringSubmatch(req.URL.Path); m != nil {
			id := m[1]
			if failDetails[id] {
				// Unrecoverable so the test does not sit in retry backoff.
				return jsonResponse(http.StatusBadRequest, `{"statusMessage":"boom"}`), nil
			}
			return jsonResponse(http.StatusOK, fmt.Sprintf(`{
				"id":%s,"title":"Title %s","type":"movie","year":2020,
				"plot_overview":"Enriched overview %s","poster":"https://img.example/detail-%s.jpg",
				"user_rating":7.5,"critic_score":81,
				"sources":[{"source_id":203,"name":"Netflix","type":"sub","region":"US"}]}`, id, id, id, id)), nil
		}
		t.Logf("unhandled request: %s", req.URL.String())
		return jsonResponse(http.StatusNotFound, `{}`), nil
	}
}

func TestPopularEnrichPartialFailure(t *testing.T) {
	failed := map[string]bool{"3": true, "7": true, "11": true}
	svc := newTestService(t, popularTransport(t, failed))

	out := svc.Popular(context.Background(), PopularOptions{Enrich: true})
	if len(out) != 20 {
		t.Fatalf("expected 20 entries, got %d", len(out))
	}

	enriched, lightweight := 0, 0
	for i, title := range out {
		wantID := fmt.Sprintf("wm:movie:%d", i+1)
		if title.ID != wantID {
			t.Fatalf("output order broken at %d: got %s want %s", i, title.ID, wantID)
		}

		isEnriched := title.Overview != ""
		switch {
		case i < 12 && !failed[fmt.Sprint(i+1)]:
			if !isEnriched {
				t.Errorf("entry %d should be enriched", i+1)
			}
			if len(title.Sources) == 0 {
				t.Errorf("enriched entry %d should carry sources", i+1)
			}
			// Detail poster wins when present.
			if want := fmt.Sprintf("https://img.example/detail-%d.jpg", i+1); title.Poster != want {
				t.Errorf("entry %d poster = %s, want %s", i+1, title.Poster, want)
			}
			enriched++
		default:
			if isEnriched {
				t.Errorf("entry %d should keep its lightweight shape", i+1)
			}
			if len(title.Sources) != 0 {
				t.Errorf("lightweight entry %d should not have sources", i+1)
			}
			// The stub's own thumbnail survives.
			if want := fmt.Sprintf("https://img.example/stub-%d.jpg", i+1); title.Poster != want {
				t.Errorf("entry %d poster = %s, want %s", i+1, title.Poster, want)
			}
			lightweight++
		}
	}
	if enriched != 9 {
		t.Errorf("expected exactly 9 enriched entries, got %d", enriched)
	}
	if lightweight != 11 { // 3 failed + 8 past the batch limit
		t.Errorf("expected 11 lightweight entries, got %d", lightweight)
	}
}

func TestEnrichTitlesIndexAligned(t *testing.T) {
	svc := newTestService(t, popularTransport(t, map[string]bool{"2": true}))

	stubs := []models.Title{
		{ID: "wm:movie:1", Name: "Title 1", MediaType: "movie", Poster: "https://img.example/stub-1.jpg"},
		{ID: "wm:movie:2", Name: "Title 2", MediaType: "movie", Poster: "https://img.example/stub-2.jpg"},
		{ID: "wm:movie:4", Name: "Title 4", MediaType: "movie", Poster: "https://img.example/stub-4.jpg"},
	}

	out := svc.enrichTitles(context.Background(), stubs, "US")
	if len(out) != len(stubs) {
		t.Fatalf("output length %d != input length %d", len(out), len(stubs))
	}
	for i := range stubs {
		if out[i].ID != stubs[i].ID {
			t.Errorf("index %d: id %s != %s", i, out[i].ID, stubs[i].ID)
		}
	}
	if out[0].Overview == "" || out[2].Overview == "" {
		t.Error("successful fetches should be enriched")
	}
	if out[1].Overview != "" {
		t.Error("failed fetch should fall back to the original stub")
	}
	if !reflect.DeepEqual(out[1], stubs[1]) {
		t.Errorf("failed entry mutated: %+v", out[1])
	}
}

func TestEnrichTitlesEmptyInput(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		t.Errorf("no upstream call expected, got %s", req.URL.String())
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	out := svc.enrichTitles(context.Background(), nil, "US")
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}

func TestEnrichKeepsStubPosterWhenDetailOmitsIt(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if titleDetailsPath.MatchString(req.URL.Path) {
			return jsonResponse(http.StatusOK, `{"id":5,"title":"Title 5","type":"movie","plot_overview":"Enriched"}`), nil
		}
		return jsonResponse(http.StatusNotFound, `{}`), nil
	})

	stubs := []models.Title{{ID: "wm:movie:5", Name: "Title 5", MediaType: "movie", Year: 2019, Poster: "https://img.example/stub-5.jpg"}}
	out := svc.enrichTitles(context.Background(), stubs, "US")
	if out[0].Poster != "https://img.example/stub-5.jpg" {
		t.Errorf("stub poster should survive, got %q", out[0].Poster)
	}
	if out[0].Overview != "Enriched" {
		t.Errorf("detail fields should be applied, got %q", out[0].Overview)
	}
	if out[0].Year != 2019 {
		t.Errorf("stub year should survive a zero detail year, got %d", out[0].Year)
	}
}
