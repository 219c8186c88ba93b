package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jengzang/records-timeline/internal/config"
)

// v holds defaults, the config file, TIMELINE_* env vars and bound flags
var v = viper.New()

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:           "timeline",
	Short:         "Turn raw location samples into a daily timeline of places and travel.",
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config/timeline.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	_ = v.BindPFlags(rootCmd.PersistentFlags())
	_ = v.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(serveCmd(), migrateCmd(), reprocessCmd(), blocksCmd(), ingestCmd(), tokenCmd())
}

// loadConfig resolves the merged configuration
func loadConfig() (*config.Config, error) {
	return config.Load(v, v.GetString("config"))
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
