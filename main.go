package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qualitylab/partclass/cmd"
	"github.com/qualitylab/partclass/internal/conf"
)

func main() {
	// Ctrl-C stops a batch between two images
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings := &conf.Settings{}
	rootCmd := cmd.RootCommand(settings)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "partclass: %v\n", err)
		stop()
		os.Exit(1)
	}
}
