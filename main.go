package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/isdelr/microblog-be/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("microblog failed")
		stop()
		os.Exit(1)
	}
}
