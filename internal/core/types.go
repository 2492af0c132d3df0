package core

import (
	"fmt"
	"strings"
)

// MediaType identifies the kind of media a query or candidate refers to.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"

	// MediaTypeAny means the query carries no hint and every configured
	// media type is searched.
	MediaTypeAny MediaType = ""
)

// ParseMediaType converts a user supplied string into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return MediaTypeMovie, nil
	case "tv", "show", "shows":
		return MediaTypeTV, nil
	case "", "both", "any":
		return MediaTypeAny, nil
	}
	return MediaTypeAny, fmt.Errorf("unknown media type %q", s)
}

// Quality is a TMDb poster size tier.
type Quality string

const (
	QualityOriginal Quality = "original"
	QualityW500     Quality = "w500"
	QualityW342     Quality = "w342"
	QualityW185     Quality = "w185"
)

// ParseQuality accepts both raw tier names and the high/medium/low aliases.
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "original", "":
		return QualityOriginal, nil
	case "high", "w500":
		return QualityW500, nil
	case "medium", "w342":
		return QualityW342, nil
	case "low", "w185":
		return QualityW185, nil
	}
	return QualityOriginal, fmt.Errorf("unknown quality tier %q", s)
}

// Query is one user supplied title plus any hints parsed out of it.
// Immutable once produced by the input parser.
type Query struct {
	Text          string
	YearHint      int
	MediaTypeHint MediaType
}

// String renders the query the way the user wrote it, for reports and logs.
func (q Query) String() string {
	if q.YearHint > 0 {
		return fmt.Sprintf("%s (%d)", q.Text, q.YearHint)
	}
	return q.Text
}

// ResolvedAsset binds a query to the chosen search candidate and a concrete
// poster URL at the requested quality tier.
type ResolvedAsset struct {
	Query       Query
	ID          int
	Title       string
	ReleaseYear int
	MediaType   MediaType
	Language    string
	Popularity  float32
	PosterURL   string
	Quality     Quality
}

// FailureReason classifies why a single query produced no poster.
type FailureReason string

const (
	FailureNoMatch        FailureReason = "no_match"
	FailureNoPoster       FailureReason = "no_poster"
	FailureAuth           FailureReason = "auth_failure"
	FailureQuotaExceeded  FailureReason = "quota_exceeded"
	FailureNetwork        FailureReason = "network_error"
	FailureDownloadFailed FailureReason = "download_failed"
	FailureWriteFailed    FailureReason = "write_failed"

	// FailureAborted marks queries that were never processed because the
	// run stopped on a fatal error.
	FailureAborted FailureReason = "aborted"
)

// DownloadOutcome is the terminal result for exactly one input query.
type DownloadOutcome struct {
	Query     Query
	Success   bool
	Skipped   bool // target already existed, no network call made
	SavedPath string
	Sidecar   string
	Asset     *ResolvedAsset
	Reason    FailureReason
	Detail    string
	Retries   int
}

// Failure constructs a failed outcome for a query.
func Failure(q Query, reason FailureReason, detail string) DownloadOutcome {
	return DownloadOutcome{Query: q, Reason: reason, Detail: detail}
}

// RunReport is the ordered sequence of outcomes for one run plus summary
// counts. Owned by the orchestrator until the run finishes, then handed to
// the caller.
type RunReport struct {
	Outcomes    []DownloadOutcome
	Total       int
	Successful  int
	Skipped     int
	Failed      int
	ArchivePath string
	ReportPath  string
}

// Append records one outcome and updates the summary counts.
func (r *RunReport) Append(o DownloadOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total = len(r.Outcomes)
	switch {
	case o.Success && o.Skipped:
		r.Skipped++
		r.Successful++
	case o.Success:
		r.Successful++
	default:
		r.Failed++
	}
}

// Failures returns the failed outcomes in input order.
func (r *RunReport) Failures() []DownloadOutcome {
	failures := make([]DownloadOutcome, 0, r.Failed)
	for _, o := range r.Outcomes {
		if !o.Success {
			failures = append(failures, o)
		}
	}
	return failures
}
