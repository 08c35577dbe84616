package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/WeParadox/Caraoke/internal/app"
	"github.com/WeParadox/Caraoke/internal/config"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}
