package models

import "strings"

// Media types for Title.MediaType.
const (
	MediaTypeMovie  = "movie"
	MediaTypeSeries = "series"
)

// AccessType describes how a source makes a title available.
type AccessType string

const (
	AccessSubscription AccessType = "subscription"
	AccessRental       AccessType = "rental"
	AccessPurchase     AccessType = "purchase"
	AccessFree         AccessType = "free"
)

// Source is one way to watch a title on a specific platform.
// Name is free text from the upstream provider ("HBO Max", "Max", ...) and is
// never a stable enum; consumers match it against brand patterns, not by
// identity.
type Source struct {
	SourceID   int64      `json:"sourceId,omitempty"` // upstream numeric id, opaque
	Name       string     `json:"name"`
	AccessType AccessType `json:"accessType"`
	Price      float64    `json:"price,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	WebURL     string     `json:"webUrl,omitempty"`
	Quality    string     `json:"quality,omitempty"` // SD, HD, UHD, 4K
	Region     string     `json:"region,omitempty"`
}

// Title is the canonical representation of a movie or series regardless of
// which upstream provider answered. IDs are stable within a single provider's
// id-space only; the same work fetched from two providers gets two different
// IDs and callers must not conflate them.
type Title struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	OriginalName   string   `json:"originalName,omitempty"`
	MediaType      string   `json:"mediaType"` // "movie" | "series"
	Year           int      `json:"year,omitempty"`
	Poster         string   `json:"poster,omitempty"`
	Backdrop       string   `json:"backdrop,omitempty"`
	Overview       string   `json:"overview,omitempty"`
	ImdbRating     float64  `json:"imdbRating,omitempty"`     // 0-10
	CriticScore    int      `json:"criticScore,omitempty"`    // 0-100
	UserRating     float64  `json:"userRating,omitempty"`     // 0-10
	RuntimeMinutes int      `json:"runtimeMinutes,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Sources        []Source `json:"sources,omitempty"`
	TrailerURL     string   `json:"trailerUrl,omitempty"`
}

// HasPoster reports whether the title carries a resolvable poster image.
// Listing output drops entries without one since there is nothing to render.
func (t Title) HasPoster() bool {
	return strings.HasPrefix(t.Poster, "http://") || strings.HasPrefix(t.Poster, "https://")
}

// SearchResponse is the caller-facing result of a unified search.
type SearchResponse struct {
	Titles     []Title `json:"titles"`
	TotalCount int     `json:"totalCount"`
}
