// Command pharmacare runs the PharmaCare API and its maintenance tasks.
//
//	pharmacare serve              # HTTP + gRPC + workers + scheduler
//	pharmacare migrate            # create collections and indexes
//	pharmacare migrate:rollback
//	pharmacare migrate:status
//	pharmacare seed               # admin account and demo catalogue
//	pharmacare route:list
//	pharmacare queue:work         # outbox delivery workers only
//	pharmacare schedule:run       # periodic tasks only
//	pharmacare stock:reconcile    # recompute every product's totalStock
//	pharmacare outbox:retry       # re-dispatch undelivered emails
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Registers migrations and seeders through their init() funcs.
	_ "github.com/pharmacare/pharmacare-api/database/migrations"
	_ "github.com/pharmacare/pharmacare-api/database/seeders"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "pharmacare",
	Short:         "PharmaCare API server and maintenance CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)

	rootCmd.AddCommand(queueWorkCmd)
	rootCmd.AddCommand(scheduleRunCmd)

	rootCmd.AddCommand(stockReconcileCmd)
	rootCmd.AddCommand(outboxRetryCmd)
}
