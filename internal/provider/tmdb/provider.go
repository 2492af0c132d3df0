// Package tmdb implements the provider.Searcher interface against The Movie
// Database.
package tmdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/Daiya404/CoverPics/internal/provider"
	"github.com/patrickmn/go-cache"
	tmdb "github.com/ryanbradynd05/go-tmdb"
)

const imageBaseURL = "https://image.tmdb.org/t/p"

// tvSearchResult mirrors the inline struct in tmdb.TvSearchResults.Results
// so results can be converted without copying field by field.
type tvSearchResult struct {
	BackdropPath  string   `json:"backdrop_path"`
	ID            int      `json:"id"`
	OriginalName  string   `json:"original_name"`
	FirstAirDate  string   `json:"first_air_date"`
	OriginCountry []string `json:"origin_country"`
	PosterPath    string   `json:"poster_path"`
	Popularity    float32  `json:"popularity"`
	Name          string   `json:"name"`
	VoteAverage   float32  `json:"vote_average"`
	VoteCount     uint32   `json:"vote_count"`
}

// TMDBClient interface for testing (matches *tmdb.TMDb exactly)
type TMDBClient interface {
	SearchMovie(name string, options map[string]string) (*tmdb.MovieSearchResults, error)
	SearchTv(name string, options map[string]string) (*tmdb.TvSearchResults, error)
}

// Provider searches TMDb with response caching and a sliding-window rate
// limit matching TMDb's published request budget.
type Provider struct {
	client      TMDBClient
	cache       *cache.Cache
	rateLimiter *rateLimiter
}

// New creates a TMDb provider. An empty API key is rejected up front so the
// run aborts before any query is attempted.
func New(apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrInvalidAPIKey
	}

	client := tmdb.Init(tmdb.Config{
		APIKey:   apiKey,
		Proxies:  nil,
		UseProxy: false,
	})

	return &Provider{
		client:      client, // tmdb.TMDb implements TMDBClient directly
		cache:       cache.New(time.Hour, 10*time.Minute),
		rateLimiter: newRateLimiter(38, 10*time.Second), // 38 requests per 10 seconds
	}, nil
}

// SetClient sets the TMDb client (for testing)
func (p *Provider) SetClient(client TMDBClient) {
	p.client = client
}

// Search queries TMDb for text in language, restricted to mediaType. The
// year hint narrows movie searches; TMDb's TV search has no year parameter,
// so the hint is left to the resolver's ranking there.
func (p *Provider) Search(ctx context.Context, text string, mediaType core.MediaType, language string, yearHint int) ([]provider.MatchCandidate, error) {
	if text == "" {
		return nil, fmt.Errorf("search text is required")
	}

	cacheKey := fmt.Sprintf("%s:%s:%s:%d", mediaType, text, language, yearHint)
	if cached, found := p.cache.Get(cacheKey); found {
		if candidates, ok := cached.([]provider.MatchCandidate); ok {
			return candidates, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.rateLimiter.wait()

	options := map[string]string{
		"language": language,
	}

	var candidates []provider.MatchCandidate
	switch mediaType {
	case core.MediaTypeMovie:
		if yearHint > 0 {
			options["year"] = strconv.Itoa(yearHint)
		}
		results, err := p.client.SearchMovie(text, options)
		if err != nil {
			return nil, p.mapError(err)
		}
		if results == nil || len(results.Results) == 0 {
			return nil, provider.ErrNoResults
		}
		candidates = make([]provider.MatchCandidate, 0, len(results.Results))
		for i := range results.Results {
			candidates = append(candidates, movieCandidate(&results.Results[i], language))
		}
	case core.MediaTypeTV:
		results, err := p.client.SearchTv(text, options)
		if err != nil {
			return nil, p.mapError(err)
		}
		if results == nil || len(results.Results) == 0 {
			return nil, provider.ErrNoResults
		}
		candidates = make([]provider.MatchCandidate, 0, len(results.Results))
		for i := range results.Results {
			candidates = append(candidates, tvCandidate((*tvSearchResult)(&results.Results[i]), language))
		}
	default:
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}

	p.cache.Set(cacheKey, candidates, cache.DefaultExpiration)
	return candidates, nil
}

// PosterURL builds the image CDN URL for a poster path at a quality tier.
func (p *Provider) PosterURL(posterPath string, quality core.Quality) string {
	if posterPath == "" {
		return ""
	}
	if !strings.HasPrefix(posterPath, "/") {
		posterPath = "/" + posterPath
	}
	return fmt.Sprintf("%s/%s%s", imageBaseURL, quality, posterPath)
}

func movieCandidate(movie *tmdb.MovieShort, language string) provider.MatchCandidate {
	return provider.MatchCandidate{
		ID:          movie.ID,
		Title:       movie.Title,
		ReleaseYear: yearOf(movie.ReleaseDate),
		MediaType:   core.MediaTypeMovie,
		PosterPath:  movie.PosterPath,
		Language:    language,
		Popularity:  movie.Popularity,
	}
}

func tvCandidate(show *tvSearchResult, language string) provider.MatchCandidate {
	return provider.MatchCandidate{
		ID:          show.ID,
		Title:       show.Name,
		ReleaseYear: yearOf(show.FirstAirDate),
		MediaType:   core.MediaTypeTV,
		PosterPath:  show.PosterPath,
		Language:    language,
		Popularity:  show.Popularity,
	}
}

// yearOf extracts the year from a TMDb date string ("2019-05-30").
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key") {
		return provider.ErrInvalidAPIKey
	}
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "quota") {
		return provider.ErrQuotaExceeded
	}

	return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
}
