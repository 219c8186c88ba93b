package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jengzang/records-timeline/internal/database"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|version|N]",
		Short: "Run database migrations",
		Long:  "Migrate the schema to the latest version (up), roll everything back (down), report the applied version, or move to version N.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer conn.Close()

			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			switch action {
			case "up":
				return database.Migrate(conn, -1)
			case "down":
				return database.Migrate(conn, 0)
			case "version":
				version, dirty, err := database.Version(conn)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}

			target, err := strconv.Atoi(action)
			if err != nil || target < 1 {
				return fmt.Errorf("unknown migrate action %q", action)
			}
			return database.Migrate(conn, target)
		},
	}
}
