package main

// cmd/server is the container entrypoint: it only serves. Maintenance
// commands live in cmd/pharmacare.

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmacare/pharmacare-api/internal/server"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
