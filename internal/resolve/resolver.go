// Package resolve turns one query into a concrete poster URL by searching
// the metadata backend, ranking candidates and falling back across
// languages.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/Daiya404/CoverPics/internal/provider"
)

var (
	// ErrNoMatch means no candidate was found in any configured language.
	ErrNoMatch = errors.New("no match found")

	// ErrNoPoster means candidates exist but none carry poster art.
	ErrNoPoster = errors.New("no poster available for any candidate")
)

// Resolver picks the best search candidate for each query.
type Resolver struct {
	searcher provider.Searcher

	language          string
	fallbackLanguages []string
	mediaTypes        []core.MediaType
	quality           core.Quality
}

// Config carries the resolver's search policy.
type Config struct {
	Language          string
	FallbackLanguages []string
	MediaTypes        []core.MediaType // search order; empty means movie then tv
	Quality           core.Quality
}

// New creates a resolver on top of a search backend.
func New(searcher provider.Searcher, cfg Config) *Resolver {
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	mediaTypes := cfg.MediaTypes
	if len(mediaTypes) == 0 {
		mediaTypes = []core.MediaType{core.MediaTypeMovie, core.MediaTypeTV}
	}
	quality := cfg.Quality
	if quality == "" {
		quality = core.QualityOriginal
	}

	return &Resolver{
		searcher:          searcher,
		language:          language,
		fallbackLanguages: cfg.FallbackLanguages,
		mediaTypes:        mediaTypes,
		quality:           quality,
	}
}

// Resolve searches the preferred language first, then each fallback language
// in order, stopping at the first language that yields candidates. Returns
// ErrNoMatch / ErrNoPoster, or the provider's fatal errors unchanged so the
// orchestrator can abort the run.
func (r *Resolver) Resolve(ctx context.Context, q core.Query) (*core.ResolvedAsset, error) {
	candidates, err := r.searchLanguage(ctx, q, r.language)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		primary := baseLanguage(r.language)
		for _, lang := range r.fallbackLanguages {
			if baseLanguage(lang) == primary {
				continue
			}
			candidates, err = r.searchLanguage(ctx, q, lang)
			if err != nil {
				return nil, err
			}
			if len(candidates) > 0 {
				break
			}
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, q)
	}

	rankCandidates(candidates, q)

	// The top-ranked candidate wins unless it has no poster, in which case
	// the next ranked candidate with art is used.
	for i := range candidates {
		c := &candidates[i]
		if c.PosterPath == "" {
			continue
		}
		return &core.ResolvedAsset{
			Query:       q,
			ID:          c.ID,
			Title:       c.Title,
			ReleaseYear: c.ReleaseYear,
			MediaType:   c.MediaType,
			Language:    c.Language,
			Popularity:  c.Popularity,
			PosterURL:   r.searcher.PosterURL(c.PosterPath, r.quality),
			Quality:     r.quality,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNoPoster, q)
}

// searchLanguage queries every applicable media type in one language and
// merges the candidate lists, preserving backend order within each type.
// ErrNoResults is flattened to an empty list; fatal errors propagate.
func (r *Resolver) searchLanguage(ctx context.Context, q core.Query, language string) ([]provider.MatchCandidate, error) {
	mediaTypes := r.mediaTypes
	if q.MediaTypeHint != core.MediaTypeAny {
		mediaTypes = []core.MediaType{q.MediaTypeHint}
	}

	var merged []provider.MatchCandidate
	for _, mt := range mediaTypes {
		candidates, err := r.searcher.Search(ctx, q.Text, mt, language, q.YearHint)
		if err != nil {
			if errors.Is(err, provider.ErrNoResults) {
				continue
			}
			return nil, err
		}
		merged = append(merged, candidates...)
	}
	return merged, nil
}

// rankCandidates orders candidates best-first: exact case-insensitive title
// matches beat everything, then year-hint proximity when a hint exists, then
// popularity, with input order as the final tie break.
func rankCandidates(candidates []provider.MatchCandidate, q core.Query) {
	type ranked struct {
		candidate provider.MatchCandidate
		exact     bool
		yearDist  int
		index     int
	}

	queryTitle := strings.ToLower(q.Text)
	decorated := make([]ranked, len(candidates))
	for i, c := range candidates {
		decorated[i] = ranked{
			candidate: c,
			exact:     strings.ToLower(c.Title) == queryTitle,
			yearDist:  yearDistance(q.YearHint, c.ReleaseYear),
			index:     i,
		}
	}

	sort.SliceStable(decorated, func(a, b int) bool {
		ka, kb := &decorated[a], &decorated[b]
		if ka.exact != kb.exact {
			return ka.exact
		}
		if q.YearHint > 0 && ka.yearDist != kb.yearDist {
			return ka.yearDist < kb.yearDist
		}
		if ka.candidate.Popularity != kb.candidate.Popularity {
			return ka.candidate.Popularity > kb.candidate.Popularity
		}
		return ka.index < kb.index
	})

	for i := range decorated {
		candidates[i] = decorated[i].candidate
	}
}

func yearDistance(hint, year int) int {
	if hint <= 0 || year <= 0 {
		return 1 << 20
	}
	d := hint - year
	if d < 0 {
		d = -d
	}
	return d
}

// baseLanguage reduces "en-US" to "en" for fallback de-duplication.
func baseLanguage(lang string) string {
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		return strings.ToLower(lang[:i])
	}
	return strings.ToLower(lang)
}
