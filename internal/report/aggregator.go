// Package report collects per-title download outcomes, writes metadata
// sidecars, produces the failure report and optionally bundles the run's
// output into a zip archive.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Daiya404/CoverPics/internal/core"
)

const failureReportName = "failed_downloads.txt"

// Aggregator receives outcomes in input order and owns the run's report
// artifacts under the output directory.
type Aggregator struct {
	outputDir    string
	saveMetadata bool
	zipOutput    bool

	report core.RunReport
	now    func() time.Time
}

// Config carries the aggregator's output policy.
type Config struct {
	OutputDir    string
	SaveMetadata bool
	ZipOutput    bool
}

// New creates an aggregator rooted at cfg.OutputDir.
func New(cfg Config) *Aggregator {
	return &Aggregator{
		outputDir:    cfg.OutputDir,
		saveMetadata: cfg.SaveMetadata,
		zipOutput:    cfg.ZipOutput,
		now:          time.Now,
	}
}

// sidecar is the JSON record written beside each downloaded image.
type sidecar struct {
	Title        string  `json:"title"`
	TMDBID       int     `json:"tmdb_id"`
	ReleaseYear  int     `json:"release_year,omitempty"`
	MediaType    string  `json:"media_type"`
	Language     string  `json:"language"`
	Quality      string  `json:"quality"`
	SourceURL    string  `json:"source_url"`
	Popularity   float32 `json:"popularity,omitempty"`
	DownloadedAt string  `json:"downloaded_at"`
}

// SidecarPath returns the metadata path for a saved image.
func SidecarPath(savedPath string) string {
	return strings.TrimSuffix(savedPath, filepath.Ext(savedPath)) + ".metadata.json"
}

// Record accepts one outcome, writes its sidecar when applicable, and
// appends it to the run report. A sidecar write failure downgrades a
// success to Failure{WriteFailed}. The recorded outcome is returned so
// callers report what was actually booked.
func (a *Aggregator) Record(outcome core.DownloadOutcome) core.DownloadOutcome {
	if outcome.Success && a.saveMetadata && outcome.Asset != nil && outcome.SavedPath != "" {
		path := SidecarPath(outcome.SavedPath)

		// A skipped outcome means the image survived from an earlier run;
		// its sidecar is left untouched when already present.
		write := true
		if outcome.Skipped {
			if _, err := os.Stat(path); err == nil {
				write = false
			}
		}

		if write {
			if err := a.writeSidecar(path, outcome.Asset); err != nil {
				outcome = core.Failure(outcome.Query, core.FailureWriteFailed,
					fmt.Sprintf("sidecar: %v", err))
			} else {
				outcome.Sidecar = path
			}
		} else {
			outcome.Sidecar = path
		}
	}

	a.report.Append(outcome)
	return outcome
}

func (a *Aggregator) writeSidecar(path string, asset *core.ResolvedAsset) error {
	record := sidecar{
		Title:        asset.Title,
		TMDBID:       asset.ID,
		ReleaseYear:  asset.ReleaseYear,
		MediaType:    string(asset.MediaType),
		Language:     asset.Language,
		Quality:      string(asset.Quality),
		SourceURL:    asset.PosterURL,
		Popularity:   asset.Popularity,
		DownloadedAt: a.now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Finalize writes the failure report, builds the archive when enabled and
// returns the completed run report. The failure report is written even for
// a clean run so its absence is never ambiguous.
func (a *Aggregator) Finalize() (*core.RunReport, error) {
	if err := os.MkdirAll(a.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	reportPath := filepath.Join(a.outputDir, failureReportName)
	if err := a.writeFailureReport(reportPath); err != nil {
		return nil, fmt.Errorf("write failure report: %w", err)
	}
	a.report.ReportPath = reportPath

	if a.zipOutput {
		archivePath, err := a.writeArchive()
		if err != nil {
			return nil, fmt.Errorf("write archive: %w", err)
		}
		a.report.ArchivePath = archivePath
	}

	report := a.report
	return &report, nil
}

func (a *Aggregator) writeFailureReport(path string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Failure report generated %s\n", a.now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Processed %d titles: %d successful, %d failed\n\n",
		a.report.Total, a.report.Successful, a.report.Failed)

	failures := a.report.Failures()
	if len(failures) == 0 {
		b.WriteString("No failures. All titles downloaded successfully.\n")
	} else {
		for _, f := range failures {
			fmt.Fprintf(&b, "%s\t%s", f.Query, f.Reason)
			if f.Detail != "" {
				fmt.Fprintf(&b, "\t%s", f.Detail)
			}
			b.WriteByte('\n')
		}
	}

	return os.WriteFile(path, []byte(b.String()), 0644)
}

// writeArchive bundles every successful outcome's image and sidecar into a
// timestamped zip. The archive is additive; nothing is removed from the
// output directory.
func (a *Aggregator) writeArchive() (string, error) {
	var files []string
	for _, o := range a.report.Outcomes {
		if !o.Success || o.SavedPath == "" {
			continue
		}
		files = append(files, o.SavedPath)
		if o.Sidecar != "" {
			files = append(files, o.Sidecar)
		}
	}
	if len(files) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("posters_%s.zip", a.now().Format("20060102_150405"))
	path := filepath.Join(a.outputDir, name)
	if err := writeZip(path, files); err != nil {
		return "", err
	}
	return path, nil
}
