package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/tutoring-sessions/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|version]",
	Short:     "Manage the database schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "version"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := bootstrap()
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := database.NewMigrator(env.db, env.logger)
		if err != nil {
			return err
		}
		action := "up"
		if len(args) == 1 {
			action = args[0]
		}
		ctx := cmd.Context()
		switch action {
		case "down":
			err = m.Down(ctx)
		case "up":
			err = m.Run(ctx)
		}
		if err != nil {
			return err
		}
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	},
}
