package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/gradelens/internal/cli"
	"github.com/okian/gradelens/pkg/logger"
)

func main() {
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli.Execute(ctx)
}
