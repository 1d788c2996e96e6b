package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/anidataset/anidataset/internal/utils"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, export and upload in one go",
	Long: `Fetch every anime from AniList, export the dataset and publish it to Kaggle.

The upload only happens after a complete fetch. Use --skip-fetch to publish
files from an earlier run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := stopContext(cmd.Context())
		defer stop()
		return runPipeline(ctx, cmd)
	},
}

// runPipeline is shared by run and schedule.
func runPipeline(ctx context.Context, cmd *cobra.Command) error {
	skipFetch, _ := cmd.Flags().GetBool("skip-fetch")
	skipUpload, _ := cmd.Flags().GetBool("skip-upload")

	code := exitOK
	if !skipFetch {
		opts, err := readFetchOptions(cmd)
		if err != nil {
			return err
		}
		code, err = runFetch(ctx, opts, stdout)
		if err != nil {
			return &exitError{code: code, err: err}
		}
		if code == exitFailure {
			return &exitError{code: code, err: errors.New("data fetching failed, aborting")}
		}
	}

	if !skipUpload {
		if code != exitOK {
			utils.Log.Warn("Dataset is incomplete, skipping upload. Use --skip-fetch to publish it anyway.")
			return &exitError{code: code}
		}
		if err := runUpload(ctx, readUploadOptions(cmd)); err != nil {
			return &exitError{code: exitFailure, err: fmt.Errorf("upload failed: %w", err)}
		}
	}

	if code != exitOK {
		return &exitError{code: code}
	}
	return nil
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("skip-fetch", false, "Skip data fetching (use existing data files)")
	cmd.Flags().Bool("skip-upload", false, "Skip the Kaggle upload")
	addFetchFlags(cmd)
	addUploadFlags(cmd)
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}
