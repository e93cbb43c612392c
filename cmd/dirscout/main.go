// Command dirscout discovers directories with an external file walker,
// ranks them with an optional fuzzy matcher, and attaches the chosen
// ones to a workspace definition file.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
