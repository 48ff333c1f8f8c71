package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/terzeron/feedmaker-console/internal/cli"
)

var version = "dev" // Will be set during build

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
