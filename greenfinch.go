// Package greenfinch runs a telemetry delivery pipeline until its context
// is canceled.
//
// Example usage:
//
//	cfg := greenfinch.DefaultConfig()
//	cfg.Token = "project-token"
//	if err := greenfinch.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Use the pkg/greenfinch package to track records from the same process.
package greenfinch

import (
	"context"

	pipeline "github.com/bft-labs/greenfinch/pkg/greenfinch"
)

// Config holds the configuration of the delivery pipeline.
type Config = pipeline.Config

// DefaultConfig returns a Config with the defaults of the command line tool.
// At minimum, Token must be set before calling Run.
func DefaultConfig() Config {
	cfg := Config{
		UseIPForGeolocation: true,
		FlushOnStop:         true,
	}
	cfg.SetDefaults()
	return cfg
}

// Run starts the pipeline and blocks until ctx is canceled, then stops it.
// Queued records are flushed on the way out when cfg.FlushOnStop is set.
func Run(ctx context.Context, cfg Config, opts ...pipeline.Option) error {
	g, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}
	// Stop must outlive ctx so the final flush can run.
	if err := g.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	<-ctx.Done()
	return g.Stop()
}
