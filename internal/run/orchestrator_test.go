package run

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/Daiya404/CoverPics/internal/fetch"
	"github.com/Daiya404/CoverPics/internal/provider"
	"github.com/Daiya404/CoverPics/internal/report"
	"github.com/Daiya404/CoverPics/internal/resolve"
	"github.com/google/go-cmp/cmp"
)

type mockResolver struct {
	errs  map[string]error
	calls int
}

func (m *mockResolver) Resolve(ctx context.Context, q core.Query) (*core.ResolvedAsset, error) {
	m.calls++
	if err, ok := m.errs[q.Text]; ok {
		return nil, err
	}
	return &core.ResolvedAsset{
		Query:     q,
		ID:        100 + m.calls,
		Title:     q.Text,
		MediaType: core.MediaTypeMovie,
		Language:  "en-US",
		PosterURL: fmt.Sprintf("https://img.test/%s.jpg", q.Text),
		Quality:   core.QualityOriginal,
	}, nil
}

type mockFetcher struct {
	dir   string
	errs  map[string]error
	skip  map[string]bool
	calls int
}

func (m *mockFetcher) Download(ctx context.Context, asset *core.ResolvedAsset) (*fetch.Result, error) {
	m.calls++
	if err, ok := m.errs[asset.Title]; ok {
		return &fetch.Result{Attempts: 3}, err
	}
	return &fetch.Result{
		SavedPath: fmt.Sprintf("%s/%s.jpg", m.dir, asset.Title),
		Skipped:   m.skip[asset.Title],
	}, nil
}

func queries(texts ...string) []core.Query {
	qs := make([]core.Query, len(texts))
	for i, t := range texts {
		qs[i] = core.Query{Text: t}
	}
	return qs
}

func newOrchestrator(t *testing.T, resolver Resolver, fetcher Fetcher) *Orchestrator {
	t.Helper()
	return New(Config{
		Resolver:   resolver,
		Fetcher:    fetcher,
		Aggregator: report.New(report.Config{OutputDir: t.TempDir()}),
	})
}

func drain(t *testing.T, progress <-chan Progress) []Progress {
	t.Helper()
	var events []Progress
	for p := range progress {
		events = append(events, p)
	}
	return events
}

func TestRunAllSuccessful(t *testing.T) {
	o := newOrchestrator(t, &mockResolver{}, &mockFetcher{dir: t.TempDir()})

	events := drain(t, o.Start(context.Background(), queries("A", "B", "C")))

	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	for i, e := range events {
		if e.Index != i+1 || e.Total != 3 {
			t.Errorf("event %d = (%d/%d), want (%d/3)", i, e.Index, e.Total, i+1)
		}
		if !e.Outcome.Success {
			t.Errorf("event %d outcome failed: %+v", i, e.Outcome)
		}
	}

	rep, err := o.Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.Total != 3 || rep.Successful != 3 || rep.Failed != 0 {
		t.Errorf("report counts = %d/%d/%d, want 3/3/0", rep.Total, rep.Successful, rep.Failed)
	}
	if got := o.State(); got != StateCompleted {
		t.Errorf("State() = %q, want %q", got, StateCompleted)
	}
}

func TestRunContinuesPastPerTitleFailures(t *testing.T) {
	resolver := &mockResolver{errs: map[string]error{
		"Missing": resolve.ErrNoMatch,
		"Artless": resolve.ErrNoPoster,
		"Offline": provider.ErrUnavailable,
	}}
	fetcher := &mockFetcher{dir: t.TempDir(), errs: map[string]error{
		"Flaky": fetch.ErrDownloadFailed,
	}}
	o := newOrchestrator(t, resolver, fetcher)

	events := drain(t, o.Start(context.Background(),
		queries("Missing", "Artless", "Offline", "Flaky", "Good")))

	wantReasons := []core.FailureReason{
		core.FailureNoMatch,
		core.FailureNoPoster,
		core.FailureNetwork,
		core.FailureDownloadFailed,
		"",
	}
	var gotReasons []core.FailureReason
	for _, e := range events {
		gotReasons = append(gotReasons, e.Outcome.Reason)
	}
	if diff := cmp.Diff(wantReasons, gotReasons); diff != "" {
		t.Errorf("failure reasons mismatch (-want +got):\n%s", diff)
	}

	if events[3].Outcome.Retries != 3 {
		t.Errorf("download failure retries = %d, want 3", events[3].Outcome.Retries)
	}

	rep, _ := o.Report()
	if rep.Total != 5 || rep.Successful != 1 || rep.Failed != 4 {
		t.Errorf("report counts = %d/%d/%d, want 5/1/4", rep.Total, rep.Successful, rep.Failed)
	}
	if o.State() != StateCompleted {
		t.Errorf("State() = %q, want completed after recovered failures", o.State())
	}
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	resolver := &mockResolver{errs: map[string]error{
		"First": provider.ErrInvalidAPIKey,
	}}
	fetcher := &mockFetcher{dir: t.TempDir()}
	o := newOrchestrator(t, resolver, fetcher)

	events := drain(t, o.Start(context.Background(),
		queries("First", "B", "C", "D", "E")))

	if len(events) != 5 {
		t.Fatalf("got %d progress events, want 5 (1 auth + 4 aborted)", len(events))
	}
	if events[0].Outcome.Reason != core.FailureAuth {
		t.Errorf("first outcome reason = %q, want %q", events[0].Outcome.Reason, core.FailureAuth)
	}
	for _, e := range events[1:] {
		if e.Outcome.Reason != core.FailureAborted {
			t.Errorf("outcome %d reason = %q, want %q", e.Index, e.Outcome.Reason, core.FailureAborted)
		}
	}

	if resolver.calls != 1 {
		t.Errorf("resolver calls = %d, want 1 (abort stops all further work)", resolver.calls)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0", fetcher.calls)
	}
	if o.State() != StateAborted {
		t.Errorf("State() = %q, want %q", o.State(), StateAborted)
	}

	rep, _ := o.Report()
	if rep.Total != 5 || rep.Failed != 5 {
		t.Errorf("report counts = %d total / %d failed, want 5/5", rep.Total, rep.Failed)
	}
}

func TestRunAbortsOnQuotaExceeded(t *testing.T) {
	resolver := &mockResolver{errs: map[string]error{
		"Second": provider.ErrQuotaExceeded,
	}}
	o := newOrchestrator(t, resolver, &mockFetcher{dir: t.TempDir()})

	events := drain(t, o.Start(context.Background(), queries("First", "Second", "Third")))

	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3", len(events))
	}
	if events[1].Outcome.Reason != core.FailureQuotaExceeded {
		t.Errorf("second outcome reason = %q, want %q",
			events[1].Outcome.Reason, core.FailureQuotaExceeded)
	}
	if events[2].Outcome.Reason != core.FailureAborted {
		t.Errorf("third outcome reason = %q, want %q",
			events[2].Outcome.Reason, core.FailureAborted)
	}
	if o.State() != StateAborted {
		t.Errorf("State() = %q, want %q", o.State(), StateAborted)
	}
}

func TestRunCooperativeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	resolver := &mockResolver{}
	o := newOrchestrator(t, resolver, &mockFetcher{dir: t.TempDir()})

	progress := o.Start(ctx, queries("A", "B", "C"))

	// Cancel after the first outcome; the run stops between queries.
	first := <-progress
	if !first.Outcome.Success {
		t.Fatalf("first outcome failed: %+v", first.Outcome)
	}
	cancel()

	var rest []Progress
	for p := range progress {
		rest = append(rest, p)
	}

	rep, err := o.Report()
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.Total != 1+len(rest) {
		t.Errorf("report total = %d, want %d (gathered outcomes still reported)",
			rep.Total, 1+len(rest))
	}
	if o.State() != StateCompleted {
		t.Errorf("State() = %q, want %q after cancellation", o.State(), StateCompleted)
	}
}

func TestRunSkippedDownloadsCountAsSuccess(t *testing.T) {
	fetcher := &mockFetcher{dir: t.TempDir(), skip: map[string]bool{"A": true, "B": true}}
	o := newOrchestrator(t, &mockResolver{}, fetcher)

	drain(t, o.Start(context.Background(), queries("A", "B")))

	rep, _ := o.Report()
	if rep.Successful != 2 || rep.Skipped != 2 || rep.Failed != 0 {
		t.Errorf("report counts = %d successful / %d skipped / %d failed, want 2/2/0",
			rep.Successful, rep.Skipped, rep.Failed)
	}
}

func TestStateTransitions(t *testing.T) {
	o := newOrchestrator(t, &mockResolver{}, &mockFetcher{dir: t.TempDir()})
	if o.State() != StateIdle {
		t.Errorf("State() = %q before start, want %q", o.State(), StateIdle)
	}

	drain(t, o.Start(context.Background(), queries("A")))
	if o.State() != StateCompleted {
		t.Errorf("State() = %q after run, want %q", o.State(), StateCompleted)
	}
}

func TestResolveFailureMapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  core.FailureReason
		fatal bool
	}{
		{name: "auth", err: provider.ErrInvalidAPIKey, want: core.FailureAuth, fatal: true},
		{name: "quota", err: provider.ErrQuotaExceeded, want: core.FailureQuotaExceeded, fatal: true},
		{name: "no_match", err: resolve.ErrNoMatch, want: core.FailureNoMatch},
		{name: "no_poster", err: resolve.ErrNoPoster, want: core.FailureNoPoster},
		{name: "network", err: errors.New("dial tcp: timeout"), want: core.FailureNetwork},
	}

	o := newOrchestrator(t, &mockResolver{}, &mockFetcher{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, fatal := o.resolveFailure(core.Query{Text: "X"}, tt.err)
			if outcome.Reason != tt.want {
				t.Errorf("resolveFailure() reason = %q, want %q", outcome.Reason, tt.want)
			}
			if fatal != tt.fatal {
				t.Errorf("resolveFailure() fatal = %v, want %v", fatal, tt.fatal)
			}
		})
	}
}
