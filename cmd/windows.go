package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/windows"
	"github.com/spf13/cobra"
)

// windowsCmd represents the windows command
var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Print the year windows a fetch would query",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		if year == 0 {
			year = time.Now().Year()
		}
		ws, err := windows.Plan(year, windows.Options{
			Floor:   intSetting(cmd, "floor", "fetch.floor_year"),
			Overlap: intSetting(cmd, "overlap", "fetch.overlap_years"),
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "#\tWINDOW\tSTART\tEND\tstartDate_greater\tstartDate_lesser\t")
		for i, win := range ws {
			greater, lesser := anilist.DateFilters(win)
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1, win.Label(), optInt(win.Start), optInt(win.End), optInt(greater), optInt(lesser))
		}
		return w.Flush()
	},
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func init() {
	rootCmd.AddCommand(windowsCmd)
	windowsCmd.Flags().Int("year", 0, "Reference year (default: current year)")
	windowsCmd.Flags().Int("floor", 0, "Oldest year that still gets bounded windows (config: fetch.floor_year)")
	windowsCmd.Flags().Int("overlap", 0, "Extend every window this many years into the past (config: fetch.overlap_years)")
}
