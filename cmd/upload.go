package cmd

import (
	"github.com/spf13/cobra"
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Publish the exported files to Kaggle",
	Long: `Publish the exported CSV, XLSX and gob files to Kaggle.

Credentials come from KAGGLE_USERNAME and KAGGLE_KEY (also read from .env), or
from kaggle.json in the working directory, $KAGGLE_CONFIG_DIR or ~/.kaggle.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := stopContext(cmd.Context())
		defer stop()

		return runUpload(ctx, readUploadOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	addUploadFlags(uploadCmd)
}
