package models

import "strings"

// ProviderKey identifies a streaming platform a user can declare a
// subscription to. This is the one stable enum in the system; everything
// upstream uses free-text names.
type ProviderKey string

const (
	ProviderNetflix       ProviderKey = "netflix"
	ProviderDisneyPlus    ProviderKey = "disney_plus"
	ProviderHBOMax        ProviderKey = "hbo_max"
	ProviderAmazonPrime   ProviderKey = "amazon_prime"
	ProviderAppleTVPlus   ProviderKey = "apple_tv_plus"
	ProviderParamountPlus ProviderKey = "paramount_plus"
	ProviderCrunchyroll   ProviderKey = "crunchyroll"
)

// AllProviderKeys lists every supported provider key in display order.
func AllProviderKeys() []ProviderKey {
	return []ProviderKey{
		ProviderNetflix,
		ProviderDisneyPlus,
		ProviderHBOMax,
		ProviderAmazonPrime,
		ProviderAppleTVPlus,
		ProviderParamountPlus,
		ProviderCrunchyroll,
	}
}

// ParseProviderKey normalizes and validates a provider key string.
func ParseProviderKey(s string) (ProviderKey, bool) {
	key := ProviderKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProviderKeys() {
		if key == known {
			return key, true
		}
	}
	return "", false
}
