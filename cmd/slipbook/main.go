package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jask/slipbook/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "slipbook:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
