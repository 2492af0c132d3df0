package cmd

import (
	"errors"
	"fmt"

	"github.com/Daiya404/CoverPics/internal/config"
	"github.com/Daiya404/CoverPics/internal/core"
	"github.com/Daiya404/CoverPics/internal/fetch"
	"github.com/Daiya404/CoverPics/internal/input"
	"github.com/Daiya404/CoverPics/internal/log"
	"github.com/Daiya404/CoverPics/internal/provider/tmdb"
	"github.com/Daiya404/CoverPics/internal/report"
	"github.com/Daiya404/CoverPics/internal/resolve"
	"github.com/Daiya404/CoverPics/internal/run"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download posters for a list of titles",
	Long: `Download posters for every title in an input file or a comma-separated list.

Input files may be plain text (one title per line), JSON (an array of strings
or an object with a "titles" key), or CSV (titles in the first column). A
trailing year in parentheses narrows the search, and a "movie:" or "tv:"
prefix restricts the media type for that title.`,
	Example: `  coverpics fetch --file titles.txt
  coverpics fetch --file titles.csv --csv-header --quality w500
  coverpics fetch --bulk "The Matrix (1999), tv:Breaking Bad" -o posters`,
	RunE: runFetchCommand,
}

var (
	inputFile   string
	inputFormat string
	csvHeader   bool
	bulkTitles  string
	quality     string
	mediaTypes  []string
	delayMillis int
	maxRetries  int
	overwrite   bool
	zipOutput   bool
	noMetadata  bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVarP(&inputFile, "file", "f", "", "Input file with titles (text, JSON, or CSV)")
	fetchCmd.Flags().StringVar(&inputFormat, "format", "", "Input format: text, json, or csv (default: by extension)")
	fetchCmd.Flags().BoolVar(&csvHeader, "csv-header", false, "Skip the first CSV row as a header")
	fetchCmd.Flags().StringVar(&bulkTitles, "bulk", "", "Comma-separated titles instead of an input file")
	fetchCmd.Flags().StringVarP(&quality, "quality", "q", "", "Poster quality: original, w500/high, w342/medium, w185/low")
	fetchCmd.Flags().StringSliceVar(&mediaTypes, "media-types", nil, "Media types to search, in order (movie, tv)")
	fetchCmd.Flags().IntVar(&delayMillis, "delay", 0, "Delay between titles in milliseconds")
	fetchCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Download retry limit per title")
	fetchCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace posters that already exist")
	fetchCmd.Flags().BoolVar(&zipOutput, "zip", false, "Bundle downloads into a zip archive at the end")
	fetchCmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Skip writing metadata sidecar files")
}

func runFetchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	if cfg.TMDBAPIKey == "" {
		return errors.New("no TMDB API key configured; set it with --api-key or `coverpics config init`")
	}

	queries, err := loadQueries()
	if err != nil {
		return err
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	log.Initialize(cfg.EnableLogging, cfg.LogRetentionDays)
	if err := log.StartSession("fetch", args); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not start session log: %v\n", err)
	}
	defer func() {
		if err := log.EndSession(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save session log: %v\n", err)
		}
	}()

	progress := pipeline.Start(cmd.Context(), queries)
	for p := range progress {
		printProgress(cmd, p)
		logOutcome(p.Outcome)
	}

	rep, err := pipeline.Report()
	if err != nil {
		return err
	}
	log.LogReport(rep.ReportPath, true, nil)
	if rep.ArchivePath != "" {
		log.LogArchive(rep.ArchivePath, true, nil)
	}

	printSummary(cmd, rep, pipeline.State())
	return nil
}

// applyFlagOverrides layers explicitly set flags over the file config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if apiKey != "" {
		cfg.TMDBAPIKey = apiKey
	}
	if language != "" {
		cfg.Language = language
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if quality != "" {
		cfg.Quality = quality
	}
	if len(mediaTypes) > 0 {
		cfg.MediaTypes = mediaTypes
	}
	if delayMillis > 0 {
		cfg.DelayMillis = delayMillis
	}
	if maxRetries > 0 {
		cfg.MaxRetries = maxRetries
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Overwrite = overwrite
	}
	if cmd.Flags().Changed("zip") {
		cfg.ZipOutput = zipOutput
	}
	if cmd.Flags().Changed("no-metadata") {
		cfg.SaveMetadata = !noMetadata
	}
}

func loadQueries() ([]core.Query, error) {
	if bulkTitles != "" {
		return input.ParseList(bulkTitles)
	}
	if inputFile == "" {
		return nil, errors.New("no input: provide --file or --bulk")
	}

	format, err := input.ParseFormat(inputFormat)
	if err != nil {
		return nil, err
	}
	return input.ParseFile(inputFile, input.Options{Format: format, CSVHeader: csvHeader})
}

func buildPipeline(cfg *config.Config) (*run.Orchestrator, error) {
	tier, err := core.ParseQuality(cfg.Quality)
	if err != nil {
		return nil, err
	}

	types := make([]core.MediaType, 0, len(cfg.MediaTypes))
	for _, s := range cfg.MediaTypes {
		mt, err := core.ParseMediaType(s)
		if err != nil {
			return nil, err
		}
		if mt != core.MediaTypeAny {
			types = append(types, mt)
		}
	}

	searcher, err := tmdb.New(cfg.TMDBAPIKey)
	if err != nil {
		return nil, err
	}

	resolver := resolve.New(searcher, resolve.Config{
		Language:          cfg.Language,
		FallbackLanguages: cfg.BackupLanguages,
		MediaTypes:        types,
		Quality:           tier,
	})

	fetcher := fetch.New(fetch.Config{
		OutputDir:  cfg.OutputDir,
		Overwrite:  cfg.Overwrite,
		MaxRetries: cfg.MaxRetries,
	})

	aggregator := report.New(report.Config{
		OutputDir:    cfg.OutputDir,
		SaveMetadata: cfg.SaveMetadata,
		ZipOutput:    cfg.ZipOutput,
	})

	return run.New(run.Config{
		Resolver:   resolver,
		Fetcher:    fetcher,
		Aggregator: aggregator,
		Delay:      cfg.Delay(),
	}), nil
}

func printProgress(cmd *cobra.Command, p run.Progress) {
	o := p.Outcome
	switch {
	case o.Success && o.Skipped:
		cmd.Printf("[%d/%d] %s: already downloaded\n", p.Index, p.Total, o.Query)
	case o.Success:
		cmd.Printf("[%d/%d] %s: saved to %s\n", p.Index, p.Total, o.Query, o.SavedPath)
	default:
		cmd.Printf("[%d/%d] %s: FAILED (%s)\n", p.Index, p.Total, o.Query, o.Reason)
	}
}

func logOutcome(o core.DownloadOutcome) {
	// Resolve-stage failures never reach the fetcher; aborted queries were
	// never attempted at all.
	switch o.Reason {
	case core.FailureNoMatch, core.FailureNoPoster, core.FailureAuth,
		core.FailureQuotaExceeded, core.FailureNetwork:
		log.LogResolve(o.Query.Text, false, errors.New(string(o.Reason)))
		return
	case core.FailureAborted:
		return
	}

	log.LogResolve(o.Query.Text, true, nil)
	switch {
	case o.Success && o.Skipped:
		log.LogSkip(o.Query.Text, o.SavedPath)
	case o.Success:
		log.LogDownload(o.Query.Text, o.SavedPath, true, nil)
		if o.Sidecar != "" {
			log.LogSidecar(o.Query.Text, o.Sidecar, true, nil)
		}
	default:
		log.LogDownload(o.Query.Text, o.SavedPath, false, errors.New(string(o.Reason)))
	}
}

func printSummary(cmd *cobra.Command, rep *core.RunReport, state run.State) {
	cmd.Println()
	if state == run.StateAborted {
		cmd.Println("Run aborted.")
	}
	cmd.Printf("Processed %d titles: %d successful (%d skipped), %d failed\n",
		rep.Total, rep.Successful, rep.Skipped, rep.Failed)
	if rep.Failed > 0 {
		cmd.Printf("Failure report: %s\n", rep.ReportPath)
	}
	if rep.ArchivePath != "" {
		cmd.Printf("Archive: %s\n", rep.ArchivePath)
	}
}
