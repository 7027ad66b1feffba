package providers

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/samber/lo"

	"streamseek/models"
)

// Registry maps stable provider keys to the two lookup tables the filtering
// engine needs: a brand-name pattern for per-title source matching and an
// upstream numeric source id for listing-level pre-filtering.
//
// Upstream exposes no stable provider taxonomy for source names, so matching
// is deliberately loose: case-insensitive patterns over free text ("HBO Max",
// "Max", "Amazon Prime Video" all resolve). The occasional false positive
// (e.g. an unrelated brand containing "Max") is an accepted tradeoff.
type Registry struct {
	patterns  map[models.ProviderKey]*regexp.Regexp
	sourceIDs map[models.ProviderKey]int64
}

// NewRegistry builds the immutable lookup tables once; the result is safe for
// concurrent use and meant to be injected wherever filtering happens.
func NewRegistry() *Registry {
	compile := func(expr string) *regexp.Regexp {
		return regexp.MustCompile("(?i)" + expr)
	}
	return &Registry{
		patterns: map[models.ProviderKey]*regexp.Regexp{
			models.ProviderNetflix:       compile(`netflix`),
			models.ProviderDisneyPlus:    compile(`disney`),
			models.ProviderHBOMax:        compile(`\b(hbo|max)\b`),
			models.ProviderAmazonPrime:   compile(`\b(prime|amazon)\b`),
			models.ProviderAppleTVPlus:   compile(`apple`),
			models.ProviderParamountPlus: compile(`paramount`),
			models.ProviderCrunchyroll:   compile(`crunchyroll`),
		},
		// Watchmode source ids. Used only as a listing-API optimization; the
		// pattern table above stays the source of truth for per-title trimming.
		sourceIDs: map[models.ProviderKey]int64{
			models.ProviderNetflix:       203,
			models.ProviderDisneyPlus:    372,
			models.ProviderHBOMax:        387,
			models.ProviderAmazonPrime:   26,
			models.ProviderAppleTVPlus:   371,
			models.ProviderParamountPlus: 444,
			models.ProviderCrunchyroll:   453,
		},
	}
}

// Matches reports whether a free-text source name belongs to the platform
// identified by key. Names are ASCII-folded first so decorated brand
// spellings still hit the patterns.
func (r *Registry) Matches(key models.ProviderKey, sourceName string) bool {
	re, ok := r.patterns[key]
	if !ok {
		return false
	}
	return re.MatchString(unidecode.Unidecode(strings.TrimSpace(sourceName)))
}

// MatchesAny reports whether the source name matches at least one of the keys.
func (r *Registry) MatchesAny(keys []models.ProviderKey, sourceName string) bool {
	folded := unidecode.Unidecode(strings.TrimSpace(sourceName))
	for _, key := range keys {
		if re, ok := r.patterns[key]; ok && re.MatchString(folded) {
			return true
		}
	}
	return false
}

// SourceIDs resolves provider keys to upstream numeric source ids, skipping
// keys without a known id. Order follows the input.
func (r *Registry) SourceIDs(keys []models.ProviderKey) []int64 {
	return lo.FilterMap(keys, func(key models.ProviderKey, _ int) (int64, bool) {
		id, ok := r.sourceIDs[key]
		return id, ok
	})
}
