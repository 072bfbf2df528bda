// Package main is the entry point for the osb-git-store command line tool.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stacklok/osb-git-store/cmd/osb-git-store/app"
)

func main() {
	// JSON logs on stderr; stdout stays clean for command output
	handler, flush, err := app.NewLogHandler()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(handler))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = app.NewRootCmd().ExecuteContext(ctx)
	stop()
	flush()
	if err != nil {
		os.Exit(1)
	}
}
