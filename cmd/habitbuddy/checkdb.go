package main

import (
	"context"
	"fmt"
	"time"

	hb "github.com/panyam/habitbuddy"
	"github.com/panyam/habitbuddy/stores"
)

// CheckDBCmd verifies the database settings without starting the server
type CheckDBCmd struct {
	Timeout time.Duration `help:"How long to wait for the database." default:"10s"`
}

func (c *CheckDBCmd) Run(g *Globals) error {
	cfg, err := hb.LoadConfig(g.EnvFile...)
	if err != nil {
		return err
	}
	backend, err := stores.BackendFor(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	store, err := stores.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", backend, err)
	}
	defer store.Close(context.Background())

	start := time.Now()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s failed: %w", backend, err)
	}
	fmt.Printf("%s: connected (%s)\n", backend, time.Since(start).Round(time.Millisecond))
	return nil
}
