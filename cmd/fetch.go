package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every anime from AniList and export the dataset",
	Long: `Fetch every anime from AniList, window by window, and write the dataset as
CSV, XLSX and gob files.

Exit status is 0 on success, 1 when nothing could be written and 2 when the
dataset is incomplete (a window failed, an encoding failed or the run was stopped).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := readFetchOptions(cmd)
		if err != nil {
			return err
		}

		ctx, stop := stopContext(cmd.Context())
		defer stop()

		code, err := runFetch(ctx, opts, stdout)
		if err != nil {
			return &exitError{code: code, err: err}
		}
		if code == exitFailure {
			return &exitError{code: code, err: errors.New("no output file could be written")}
		}
		if code != exitOK {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)
}
