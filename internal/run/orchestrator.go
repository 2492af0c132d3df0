// Package run sequences the resolve and fetch stages over a query list,
// paces requests, and reports progress while a run is in flight.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/Daiya404/CoverPics/internal/fetch"
	"github.com/Daiya404/CoverPics/internal/provider"
	"github.com/Daiya404/CoverPics/internal/report"
	"github.com/Daiya404/CoverPics/internal/resolve"
	"golang.org/x/time/rate"
)

// State is the orchestrator's run phase.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Progress is emitted after every per-title outcome so a caller can render
// a live indicator without polling.
type Progress struct {
	Index   int // 1-based position of the finished query
	Total   int
	Outcome core.DownloadOutcome
}

// Resolver matches one query to a poster URL.
type Resolver interface {
	Resolve(ctx context.Context, q core.Query) (*core.ResolvedAsset, error)
}

// Fetcher downloads one resolved asset to disk.
type Fetcher interface {
	Download(ctx context.Context, asset *core.ResolvedAsset) (*fetch.Result, error)
}

// Orchestrator drives one sequential run. Queries are processed strictly in
// input order; there are no concurrent downloads.
type Orchestrator struct {
	resolver   Resolver
	fetcher    Fetcher
	aggregator *report.Aggregator
	limiter    *rate.Limiter

	mu     sync.Mutex
	state  State
	report *core.RunReport
	err    error
}

// Config wires the orchestrator's stages and pacing.
type Config struct {
	Resolver   Resolver
	Fetcher    Fetcher
	Aggregator *report.Aggregator

	// Delay is the pause between consecutive queries. Zero disables pacing.
	Delay time.Duration
}

// New creates an idle orchestrator.
func New(cfg Config) *Orchestrator {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Orchestrator{
		resolver:   cfg.Resolver,
		fetcher:    cfg.Fetcher,
		aggregator: cfg.Aggregator,
		limiter:    rate.NewLimiter(limit, 1),
		state:      StateIdle,
	}
}

// State returns the current run phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Report returns the finished run's report. It is nil until the progress
// channel from Start has been closed.
func (o *Orchestrator) Report() (*core.RunReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.report, o.err
}

// Start launches the run on its own goroutine and returns a channel carrying
// one Progress per query. The channel closes once the report is final.
// Cancellation is cooperative: ctx is checked between queries, never
// mid-download.
func (o *Orchestrator) Start(ctx context.Context, queries []core.Query) <-chan Progress {
	o.setState(StateRunning)
	progress := make(chan Progress, len(queries))

	go func() {
		defer close(progress)
		final := StateCompleted

		for i, q := range queries {
			if ctx.Err() != nil {
				break
			}
			if i > 0 {
				if err := o.limiter.Wait(ctx); err != nil {
					break
				}
			}

			outcome, fatal := o.processQuery(ctx, q)
			outcome = o.aggregator.Record(outcome)
			progress <- Progress{Index: i + 1, Total: len(queries), Outcome: outcome}

			if fatal {
				final = StateAborted
				for j, remaining := range queries[i+1:] {
					aborted := o.aggregator.Record(core.Failure(
						remaining, core.FailureAborted, "run aborted before this title was processed"))
					progress <- Progress{Index: i + 2 + j, Total: len(queries), Outcome: aborted}
				}
				break
			}
		}

		rep, err := o.aggregator.Finalize()

		o.mu.Lock()
		o.state = final
		o.report = rep
		o.err = err
		o.mu.Unlock()
	}()

	return progress
}

// processQuery runs resolve then fetch for one query. The second return
// value is true for the auth/quota failure class that aborts the run.
func (o *Orchestrator) processQuery(ctx context.Context, q core.Query) (core.DownloadOutcome, bool) {
	asset, err := o.resolver.Resolve(ctx, q)
	if err != nil {
		return o.resolveFailure(q, err)
	}

	res, err := o.fetcher.Download(ctx, asset)
	if err != nil {
		outcome := core.Failure(q, core.FailureDownloadFailed, err.Error())
		if res != nil {
			outcome.Retries = res.Attempts
		}
		return outcome, false
	}

	return core.DownloadOutcome{
		Query:     q,
		Success:   true,
		Skipped:   res.Skipped,
		SavedPath: res.SavedPath,
		Asset:     asset,
		Retries:   res.Attempts,
	}, false
}

func (o *Orchestrator) resolveFailure(q core.Query, err error) (core.DownloadOutcome, bool) {
	switch {
	case errors.Is(err, provider.ErrInvalidAPIKey):
		return core.Failure(q, core.FailureAuth, err.Error()), true
	case errors.Is(err, provider.ErrQuotaExceeded):
		return core.Failure(q, core.FailureQuotaExceeded, err.Error()), true
	case errors.Is(err, resolve.ErrNoMatch):
		return core.Failure(q, core.FailureNoMatch, fmt.Sprintf("no results for %s", q)), false
	case errors.Is(err, resolve.ErrNoPoster):
		return core.Failure(q, core.FailureNoPoster, fmt.Sprintf("no poster art for %s", q)), false
	default:
		return core.Failure(q, core.FailureNetwork, err.Error()), false
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
