package main

import (
	"time"

	"github.com/cardwire/tricard/cmd/tricard/shared"
	"github.com/cardwire/tricard/internal/server"
)

// ServerCmd runs the table server.
type ServerCmd struct {
	Addr   string `kong:"help='Listen address (overrides config file)'"`
	Config string `kong:"default='tricard.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for dealing (optional)'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = cfg.ListenAddress()
	}

	opts := []server.Option{server.WithConfig(cfg)}
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
		opts = append(opts, server.WithSeed(seed))
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
		opts = append(opts, server.WithSeed(seed))
	}

	srv := server.NewServer(addr, logger, opts...)

	logger.Info().
		Str("address", addr).
		Int("max_clients", cfg.Server.MaxClients).
		Int("min_bet", cfg.Table.MinBet).
		Int("max_bet", cfg.Table.MaxBet).
		Msg("Starting three-card poker server")

	if err := srv.Start(); err != nil {
		return err
	}

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	<-ctx.Done()

	logger.Info().Msg("Shutting down server...")
	return srv.Stop()
}
