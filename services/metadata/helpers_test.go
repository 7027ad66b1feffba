package metadata

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

// roundTripFunc lets a test stand in for the upstream APIs without a server.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func jsonResponseObj(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal mock response: %v", err)
	}
	return jsonResponse(status, string(body))
}

// newTestService builds a Service with both provider clients wired to the
// given mock transport and a throwaway cache dir.
func newTestService(t *testing.T, rt roundTripFunc) *Service {
	t.Helper()
	httpc := &http.Client{Transport: rt}
	wm, err := newWatchmodeClient("test-watchmode-key", httpc)
	if err != nil {
		t.Fatalf("newWatchmodeClient: %v", err)
	}
	tm, err := newTMDBClient("test-tmdb-key", httpc)
	if err != nil {
		t.Fatalf("newTMDBClient: %v", err)
	}
	return &Service{
		watchmode: wm,
		tmdb:      tm,
		cache:     newFileCache(t.TempDir(), time.Hour),
	}
}
