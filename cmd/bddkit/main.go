package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/uptrms/bddkit/internal/app"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.Execute(ctx, version, os.Args[1:])
	stop()
	if err != nil {
		os.Exit(1)
	}
}
