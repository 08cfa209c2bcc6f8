package main

import (
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/futsal/go/internal/config"
	"github.com/mcdev12/futsal/go/internal/dbconfig"
	"github.com/mcdev12/futsal/go/internal/match/repository/postgres"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		file    string
		migrate bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "seed_matches",
		Short:         "Seed teams, players and scheduled matches",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if verbose {
				level = "debug"
			}
			config.SetupLogging(config.LogConfig{Level: level})

			fixtures, err := loadFixtures(file)
			if err != nil {
				return err
			}
			log.Debug().Int("teams", len(fixtures.Teams)).Int("matches", len(fixtures.Matches)).Msg("fixtures loaded")

			dsn := dbconfig.NewConfigFromEnv().DSN()
			if migrate {
				if err := postgres.Migrate(dsn); err != nil {
					return err
				}
			}

			pool, err := pgxpool.New(cmd.Context(), dsn)
			if err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer pool.Close()

			s, err := seed(cmd.Context(), pool, fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Match seed complete: %d teams, %d players, %d matches inserted, %d skipped\n",
				s.Teams, s.Players, s.Inserted, s.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "go/internal/assets/matches.yaml", "fixture file (YAML or JSON)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before seeding")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	return cmd
}
