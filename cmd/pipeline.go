package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/anidataset/anidataset/internal/utils"
	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/dataset"
	"github.com/anidataset/anidataset/pkg/export"
	"github.com/anidataset/anidataset/pkg/fetch"
	"github.com/anidataset/anidataset/pkg/kaggle"
	"github.com/anidataset/anidataset/pkg/retry"
	"github.com/anidataset/anidataset/pkg/storage"
	"github.com/anidataset/anidataset/pkg/windows"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	testWindowLimit = 3
	testSamplePages = 2
)

type fetchOptions struct {
	Test          bool
	ReferenceYear int
	Floor         int
	Overlap       int
	MaxAttempts   int
	RPM           int
	Endpoint      string
	Proxy         string
	OutDir        string
	Encodings     []export.Encoding
	UseDB         bool
	DBPath        string
}

type uploadOptions struct {
	OutDir       string
	Metadata     string
	Description  string
	NewVersion   bool
	VersionNotes string
	Proxy        string
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("test", false, "Only fetch the 3 most recent windows, 2 pages each")
	cmd.Flags().Int("year", 0, "Reference year for window planning (default: current year)")
	cmd.Flags().Int("floor", 0, "Oldest year that still gets bounded windows (config: fetch.floor_year)")
	cmd.Flags().Int("overlap", 0, "Extend every window this many years into the past (config: fetch.overlap_years)")
	cmd.Flags().Int("max-attempts", 0, "Attempts per page before a window fails (config: fetch.max_attempts)")
	cmd.Flags().Int("rpm", 0, "Maximum AniList requests per minute (config: anilist.requests_per_minute)")
	cmd.Flags().StringP("encodings", "e", "csv,xlsx,gob", "Comma-separated output encodings")
	cmd.Flags().Bool("db", false, "Checkpoint every window to the SQLite database")
	cmd.Flags().String("dbpath", "", "Path to SQLite DB file (config: db.path)")
	addOutDirFlag(cmd)
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().String("metadata", "", "Kaggle dataset metadata JSON (config: kaggle.metadata)")
	cmd.Flags().String("description", "", "Markdown description injected into the metadata (config: kaggle.description)")
	cmd.Flags().Bool("new-version", true, "Publish a new version when the dataset already exists")
	cmd.Flags().String("notes", "Updated dataset", "Version notes for a new dataset version")
	addOutDirFlag(cmd)
}

func addOutDirFlag(cmd *cobra.Command) {
	if cmd.Flags().Lookup("outdir") == nil {
		cmd.Flags().StringP("outdir", "o", "", "Directory for the exported files (config: export.outdir)")
	}
}

func readFetchOptions(cmd *cobra.Command) (fetchOptions, error) {
	opts := fetchOptions{
		ReferenceYear: time.Now().Year(),
		Floor:         intSetting(cmd, "floor", "fetch.floor_year"),
		Overlap:       intSetting(cmd, "overlap", "fetch.overlap_years"),
		MaxAttempts:   intSetting(cmd, "max-attempts", "fetch.max_attempts"),
		RPM:           intSetting(cmd, "rpm", "anilist.requests_per_minute"),
		Endpoint:      viper.GetString("anilist.endpoint"),
		OutDir:        setting(cmd, "outdir", "export.outdir"),
		DBPath:        setting(cmd, "dbpath", "db.path"),
	}
	opts.Test, _ = cmd.Flags().GetBool("test")
	opts.UseDB, _ = cmd.Flags().GetBool("db")
	opts.Proxy, _ = cmd.Flags().GetString("proxy")
	if y, _ := cmd.Flags().GetInt("year"); y != 0 {
		opts.ReferenceYear = y
	}

	encs, _ := cmd.Flags().GetString("encodings")
	for _, e := range splitList(encs) {
		enc, err := export.ParseEncoding(e)
		if err != nil {
			return opts, err
		}
		opts.Encodings = append(opts.Encodings, enc)
	}
	return opts, nil
}

func readUploadOptions(cmd *cobra.Command) uploadOptions {
	opts := uploadOptions{
		OutDir:      setting(cmd, "outdir", "export.outdir"),
		Metadata:    setting(cmd, "metadata", "kaggle.metadata"),
		Description: setting(cmd, "description", "kaggle.description"),
	}
	opts.NewVersion, _ = cmd.Flags().GetBool("new-version")
	opts.VersionNotes, _ = cmd.Flags().GetString("notes")
	opts.Proxy, _ = cmd.Flags().GetString("proxy")
	return opts
}

// runFetch plans, fetches, exports and prints the summary. It returns the
// exit code the run deserves.
func runFetch(ctx context.Context, opts fetchOptions, out io.Writer) (int, error) {
	lock, err := utils.NewDirLock(opts.OutDir)
	if err != nil {
		return exitFailure, err
	}
	if err := lock.Lock(); err != nil {
		return exitFailure, err
	}
	defer lock.Unlock()

	client, err := anilist.NewClient(anilist.Config{
		Endpoint:          opts.Endpoint,
		RequestsPerMinute: opts.RPM,
		Proxy:             opts.Proxy,
		Logger:            utils.Log,
	})
	if err != nil {
		return exitFailure, err
	}

	policy := retry.DefaultPolicy()
	if opts.MaxAttempts > 0 {
		policy.MaxAttempts = opts.MaxAttempts
	}

	cfg := fetch.Config{
		Source:        client,
		ReferenceYear: opts.ReferenceYear,
		Plan:          windows.Options{Floor: opts.Floor, Overlap: opts.Overlap},
		Policy:        policy,
		Log:           utils.Log,
		OnProgress: func(p fetch.Progress) {
			utils.Log.WithFields(logrus.Fields{
				"window":  p.Window.Label(),
				"page":    p.Page,
				"of":      p.LastPage,
				"records": p.Records,
			}).Debug("page fetched")
		},
	}
	if opts.Test {
		cfg.WindowLimit = testWindowLimit
		cfg.SamplePages = testSamplePages
		utils.Log.Infof("Test mode: limiting to %d windows and %d pages per window", testWindowLimit, testSamplePages)
	}

	// Planning errors are fatal before anything touches the network.
	if _, err := cfg.PlanWindows(); err != nil {
		return exitFailure, err
	}

	var db *storage.DB
	var runID int64
	if opts.UseDB {
		db, err = storage.Open(opts.DBPath)
		if err != nil {
			return exitFailure, fmt.Errorf("open checkpoint database: %w", err)
		}
		defer db.Close()
		runID, err = db.StartRun(ctx, opts.ReferenceYear, opts.Test)
		if err != nil {
			return exitFailure, err
		}
		cfg.OnWindowDone = func(r fetch.WindowReport, rows []dataset.Row) {
			if err := db.RecordWindow(context.WithoutCancel(ctx), windowBatch(runID, r), rows); err != nil {
				utils.Log.Warnf("Could not checkpoint window %s: %v", r.Window, err)
			}
		}
	}

	ds, summary, err := fetch.Run(ctx, cfg)
	if err != nil {
		return exitFailure, err
	}

	if db != nil {
		totals := storage.RunTotals{Unique: summary.Unique, Duplicates: summary.Duplicates, Skipped: summary.Skipped, Stopped: summary.Stopped}
		if err := db.FinishRun(context.WithoutCancel(ctx), runID, totals); err != nil {
			utils.Log.Warnf("Could not finish checkpoint run %d: %v", runID, err)
		}
	}

	results := export.Export(ds.Rows(), export.Options{Dir: opts.OutDir, Encodings: opts.Encodings})
	for _, r := range results {
		switch {
		case r.Err != nil:
			utils.Log.Errorf("Could not write %s: %v", r.Path, r.Err)
		case r.Truncated > 0:
			utils.Log.Warnf("Saved %d anime records to %s (%d cell%s truncated to the spreadsheet limit)", r.Rows, r.Path, r.Truncated, utils.PluralS(r.Truncated))
		default:
			utils.Log.Infof("Saved %d anime records to %s", r.Rows, r.Path)
		}
	}

	printSummary(out, summary, results)
	return exitCode(summary, results), nil
}

// runUpload publishes the exported files.
func runUpload(ctx context.Context, opts uploadOptions) error {
	creds, err := kaggle.FindCredentials()
	if err != nil {
		return err
	}
	utils.Log.Infof("Using Kaggle credentials from %s", creds.Source)

	meta, err := kaggle.LoadMetadata(opts.Metadata)
	if err != nil {
		return err
	}
	if err := meta.InjectDescription(opts.Description); err != nil {
		return err
	}

	client, err := kaggle.NewClient(kaggle.Config{
		Credentials: *creds,
		Proxy:       opts.Proxy,
		Logger:      utils.Log,
	})
	if err != nil {
		return err
	}

	lock, err := utils.NewDirLock(opts.OutDir)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	exp := export.Options{Dir: opts.OutDir}
	var files []string
	for _, enc := range export.AllEncodings {
		files = append(files, exp.Path(enc))
	}

	res, err := client.Upload(ctx, kaggle.UploadRequest{
		Metadata:     *meta,
		Files:        files,
		NewVersion:   opts.NewVersion,
		VersionNotes: opts.VersionNotes,
	})
	if err != nil {
		return err
	}
	utils.Log.Infof("Dataset successfully uploaded to Kaggle: %s", res.URL)
	return nil
}

func windowBatch(runID int64, r fetch.WindowReport) storage.WindowBatch {
	b := storage.WindowBatch{
		RunID:      runID,
		Label:      r.Window.Label(),
		StartYear:  r.Window.Start,
		EndYear:    r.Window.End,
		Status:     string(r.Status),
		Pages:      r.Pages,
		Fetched:    r.Fetched,
		Added:      r.Added,
		Duplicates: r.Duplicates,
		Skipped:    r.Skipped,
		Retries:    r.Retries,
	}
	if r.Err != nil {
		b.Error = r.Err.Error()
	}
	return b
}

// exitCode is 0 for a clean run, 1 when no encoding could be written and 2
// when something was lost along the way.
func exitCode(s *fetch.Summary, results []export.Result) int {
	if export.Succeeded(results) == 0 {
		return exitFailure
	}
	if export.Succeeded(results) < len(results) || s.Failed > 0 || s.Stopped {
		return exitDegraded
	}
	return exitOK
}

func printSummary(out io.Writer, s *fetch.Summary, results []export.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "WINDOW\tSTATUS\tPAGES\tFETCHED\tNEW\tDUPLICATES\tSKIPPED\tRETRIES\t")
	for _, r := range s.Windows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t\n", r.Window.Label(), r.Status, r.Pages, r.Fetched, r.Added, r.Duplicates, r.Skipped, r.Retries)
	}
	fmt.Fprintln(w, " \t \t \t \t \t \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d/%d ok\t \t \t%d\t%d\t%d\t \t\n", s.Processed-s.Failed, s.Planned, s.Unique, s.Duplicates, s.Skipped)
	w.Flush()

	if s.Stopped {
		fmt.Fprintf(out, "\nStopped early: %d of %d window%s processed.\n", s.Processed, s.Planned, utils.PluralS(s.Planned))
	}
	for _, r := range s.Windows {
		if r.Status == fetch.WindowExhausted {
			fmt.Fprintf(out, "Window %s has more records than pagination can reach and needs to be split into narrower windows.\n", r.Window.Label())
		}
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ENCODING\tFILE\tROWS\tSTATUS\t")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed: " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t\n", r.Encoding, r.Path, r.Rows, status)
	}
	w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var stdout io.Writer = os.Stdout

// stopContext is cancelled by the first SIGINT or SIGTERM. The current window
// still finishes; a second signal kills the process.
func stopContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			utils.Log.Warn("Stop requested, finishing the current window. Press Ctrl+C again to abort.")
		}
		stop()
	}()
	return ctx, stop
}
