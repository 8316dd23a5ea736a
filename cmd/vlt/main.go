package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ladzaretti/vlt-cli/cli"
	"github.com/ladzaretti/vlt-cli/genericclioptions"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := cli.NewDefaultVltCommand(genericclioptions.NewDefaultIOStreams(), os.Args[1:])

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
