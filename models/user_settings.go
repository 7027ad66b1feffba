package models

// UserSettings contains per-user customizable settings.
type UserSettings struct {
	// SubscribedProviders is the ordered set of streaming platforms the user
	// has declared a subscription to. Empty means "not configured yet", which
	// disables provider filtering entirely rather than hiding everything.
	SubscribedProviders []ProviderKey `json:"subscribedProviders"`

	// Region is an ISO 3166-1 alpha-2 country code influencing which sources
	// upstream providers return. Empty falls back to the server default.
	Region string `json:"region,omitempty"`
}

// DefaultUserSettings returns the default settings for a new user.
func DefaultUserSettings() UserSettings {
	return UserSettings{
		SubscribedProviders: []ProviderKey{},
	}
}
