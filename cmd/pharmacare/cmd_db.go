package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/database/seeders"
	"github.com/pharmacare/pharmacare-api/internal/server"
	"github.com/pharmacare/pharmacare-api/pkg/database"
	"github.com/pharmacare/pharmacare-api/pkg/migration"
)

var errMemoryDriver = errors.New("migrations need DB_DRIVER=mongo")

// runner loads config and opens the database for the migration commands.
func runner(ctx context.Context, cmd *cobra.Command) (*migration.Runner, func(), error) {
	if err := config.Load(); err != nil {
		return nil, nil, err
	}
	if config.DatabaseDriver() == "memory" {
		return nil, nil, errMemoryDriver
	}
	if err := database.Connect(ctx); err != nil {
		return nil, nil, err
	}
	done := func() { _ = database.Disconnect(context.Background()) }
	return migration.New(database.DB, cmd.OutOrStdout()), done, nil
}

// pharmacare migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, done, err := runner(ctx, cmd)
		if err != nil {
			return err
		}
		defer done()
		fmt.Fprintln(cmd.OutOrStdout(), "Running migrations…")
		return r.Run(ctx)
	},
}

// pharmacare migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, done, err := runner(ctx, cmd)
		if err != nil {
			return err
		}
		defer done()
		fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last batch…")
		return r.Rollback(ctx)
	},
}

// pharmacare migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r, done, err := runner(ctx, cmd)
		if err != nil {
			return err
		}
		defer done()
		return r.Status(ctx)
	},
}

// pharmacare seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := server.Boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())
		fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
		return seeders.RunAll(ctx, a.Services, cmd.OutOrStdout())
	},
}
