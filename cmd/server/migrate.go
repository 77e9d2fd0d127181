package main

import (
	"github.com/spf13/cobra"

	"github.com/agentportal/aserver/migrations"
)

var downSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	Long: `Apply the embedded database migrations.

Environment Variables Required:
  DATABASE_URL    - PostgreSQL connection string

Examples:
  aserver migrate            # Apply all pending migrations
  aserver migrate --down 1   # Roll back the latest migration`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, pg, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()
		defer pg.Close()

		if downSteps > 0 {
			return migrations.Down(pg, downSteps, log)
		}
		return migrations.Up(pg, log)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().IntVar(&downSteps, "down", 0, "Roll back this many migrations instead of applying")
}
