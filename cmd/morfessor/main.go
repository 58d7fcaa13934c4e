// Command morfessor trains Morfessor Baseline segmentation models, saves and
// loads them, and segments test data with them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "morfessor: %v\n", err)
		stop()
		os.Exit(1)
	}
}
