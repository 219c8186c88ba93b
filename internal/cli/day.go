package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// dayFlags registers the --user and --date flags shared by per-day commands
func dayFlags(cmd *cobra.Command, userID, date *string) {
	cmd.Flags().StringVarP(userID, "user", "u", "", "user id")
	cmd.Flags().StringVarP(date, "date", "d", time.Now().Format("2006-01-02"), "local day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("user")
}

func reprocessCmd() *cobra.Command {
	var userID, date string
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Rebuild one user's day from its archived samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			result, err := a.services.Reprocess.ReprocessDay(cmd.Context(), userID, date)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s: %d segments, %d place lookups, %d outliers dropped\n",
				color.GreenString("reprocessed"), result.Date, result.SegmentsCreated, result.PlacesLookedUp, result.SamplesDropped)
			for _, w := range result.Errors {
				fmt.Fprintf(out, "%s %s\n", color.YellowString("warning:"), w)
			}
			return nil
		},
	}
	dayFlags(cmd, &userID, &date)
	return cmd
}

func blocksCmd() *cobra.Command {
	var userID, date string
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print one user's location blocks for a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			blocks, err := a.services.Timeline.GetBlocks(cmd.Context(), userID, date)
			if err != nil {
				return err
			}
			return printBlocks(cmd.OutOrStdout(), blocks)
		},
	}
	dayFlags(cmd, &userID, &date)
	return cmd
}
