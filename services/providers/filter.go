package providers

import (
	"streamseek/models"
)

// FilterByUserProviders reduces titles to those watchable on the user's
// declared subscriptions and trims each kept title's sources to exactly the
// matching subscription sources. The operation is pure: it never mutates its
// input and the same inputs always produce the same output.
//
// An empty key set returns the input unchanged — a user who has not declared
// any providers should see everything, not nothing.
func (r *Registry) FilterByUserProviders(titles []models.Title, keys []models.ProviderKey) []models.Title {
	if len(keys) == 0 {
		return titles
	}

	filtered := make([]models.Title, 0, len(titles))
	for _, title := range titles {
		matched := r.matchedSubscriptionSources(title.Sources, keys)
		if len(matched) == 0 {
			// No subscription source on the user's platforms; the title is
			// not useful to this user even if rentable elsewhere.
			continue
		}
		copied := title
		copied.Sources = matched
		filtered = append(filtered, copied)
	}
	return filtered
}

// matchedSubscriptionSources returns the sources accessible with a flat-rate
// membership on one of the selected platforms. Rental, purchase and free
// sources are discarded even when they belong to a selected platform.
func (r *Registry) matchedSubscriptionSources(sources []models.Source, keys []models.ProviderKey) []models.Source {
	var matched []models.Source
	for _, src := range sources {
		if src.AccessType != models.AccessSubscription {
			continue
		}
		if r.MatchesAny(keys, src.Name) {
			matched = append(matched, src)
		}
	}
	return matched
}
