package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"text/tabwriter"
	"time"

	"github.com/anidataset/anidataset/pkg/storage"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the fetch checkpoint database",
}

func openDB(cmd *cobra.Command) (*storage.DB, error) {
	path := setting(cmd, "dbpath", "db.path")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", path)
	}
	return storage.Open(path)
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := setting(cmd, "dbpath", "db.path")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", path)
		}

		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, path, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, path)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints one line per recorded fetch run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(stdout, "No runs recorded yet.")
			return nil
		}
		printRunStats(stdout, stats)
		return nil
	},
}

// dbWindowsCmd represents the db windows command
var dbWindowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Lists the window checkpoints of a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetInt64("run")

		db, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if runID == 0 {
			stats, err := db.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Fprintln(stdout, "No runs recorded yet.")
				return nil
			}
			runID = latestRun(stats)
		}

		batches, err := db.ListWindows(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Fprintf(stdout, "No windows recorded for run %d.\n", runID)
			return nil
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "WINDOW\tSTATUS\tPAGES\tFETCHED\tNEW\tDUPLICATES\tSKIPPED\tRETRIES\tRECORDED\tERROR\t")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\t\n",
				b.Label, b.Status, b.Pages, b.Fetched, b.Added, b.Duplicates, b.Skipped, b.Retries,
				b.RecordedAt.Local().Format(time.DateTime), b.Error)
		}
		return w.Flush()
	},
}

func latestRun(stats []storage.RunStats) int64 {
	var id int64
	for _, s := range stats {
		if s.ID > id {
			id = s.ID
		}
	}
	return id
}

func printRunStats(out io.Writer, stats []storage.RunStats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "RUN\tSTARTED\tYEAR\tTEST\tWINDOWS\tFAILED\tROWS\tUNIQUE\tDUPLICATES\t")
	for _, s := range stats {
		test := ""
		if s.TestMode {
			test = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%d\t%d\t%d\t%s\t%s\t\n",
			s.ID, s.StartedAt.Local().Format(time.DateTime), s.ReferenceYear, test,
			s.Windows, s.FailedWindows, s.Rows, optInt(s.Unique), optInt(s.Duplicates))
	}
	w.Flush()
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(dbWindowsCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (config: db.path)")
	dbWindowsCmd.Flags().Int64("run", 0, "Run ID (default: latest run)")
}
