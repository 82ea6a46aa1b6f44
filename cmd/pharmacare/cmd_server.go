package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pharmacare/pharmacare-api/app/controllers"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
	"github.com/pharmacare/pharmacare-api/app/routes"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/internal/kernel"
	"github.com/pharmacare/pharmacare-api/internal/server"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// pharmacare serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run", "start"},
	Short:   "Start the HTTP server with its workers and scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return server.Start(ctx)
	},
}

// pharmacare route:list prints the routing table. It needs no backends:
// controllers are built over an empty in-memory store.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := services.New(services.Options{Store: memory.NewStore()})
		placeholder := func(http.ResponseWriter, *http.Request) {}
		r := kernel.NewHTTP(kernel.Options{
			Controllers:   controllers.New(svc),
			Extras:        routes.Extras{GraphQL: placeholder, Alerts: placeholder},
			UploadsRoot:   os.TempDir(),
			UploadsPrefix: "/uploads",
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
