package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jengzang/records-timeline/internal/ingest"
)

func ingestCmd() *cobra.Command {
	var userID, file string
	var flush bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Queue a JSON batch of samples for a user",
		Long:  "Read a JSON array of sample records, or an object with a \"samples\" array, from --file (or stdin with -) and queue them.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", file, err)
				}
				defer f.Close()
				r = f
			}

			records, err := ingest.DecodeBatch(r)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.services.Samples.Ingest(cmd.Context(), userID, records)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "received %d, ingested %d, duplicates %d, rejected %s\n",
				report.Received, report.Ingested, report.Duplicates, rejectedLabel(report.Rejected))

			if flush {
				n, err := a.services.Samples.Flush(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "archived %d samples\n", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file to read, - for stdin")
	cmd.Flags().BoolVar(&flush, "flush", false, "archive the pending queue after ingesting")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func rejectedLabel(n int) string {
	if n == 0 {
		return "0"
	}
	return color.RedString("%d", n)
}
