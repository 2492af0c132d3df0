// Package provider defines the search interface the resolver consumes and
// the typed errors every backend must map onto.
package provider

import (
	"context"
	"errors"

	"github.com/Daiya404/CoverPics/internal/core"
)

var (
	// ErrNoResults means the search succeeded but matched nothing.
	ErrNoResults = errors.New("no results found")

	// ErrInvalidAPIKey covers 401-class failures; fatal for the whole run.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrQuotaExceeded covers 429-class failures; fatal for the whole run.
	ErrQuotaExceeded = errors.New("API quota exceeded")

	// ErrUnavailable covers transient connectivity and 5xx failures.
	ErrUnavailable = errors.New("API unavailable")
)

// MatchCandidate is one possible match returned by the external search.
// Consumed once by the resolver to pick a winner; never persisted.
type MatchCandidate struct {
	ID          int
	Title       string
	ReleaseYear int
	MediaType   core.MediaType
	PosterPath  string // empty when the candidate has no poster art
	Language    string // the search language that produced this candidate
	Popularity  float32
}

// Searcher is the narrow search surface the resolver depends on. Candidates
// come back in the backend's relevance order.
type Searcher interface {
	Search(ctx context.Context, text string, mediaType core.MediaType, language string, yearHint int) ([]MatchCandidate, error)

	// PosterURL builds the concrete image URL for a candidate's poster at
	// the requested quality tier.
	PosterURL(posterPath string, quality core.Quality) string
}
