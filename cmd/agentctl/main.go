// Command agentctl is a terminal client for the agent marketplace. It keeps
// one signed-in session on disk and prints the same notices and landing
// pages a browser user would see.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "agentctl:", err)
		}
		os.Exit(1)
	}
}
