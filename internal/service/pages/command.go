package pages

import (
	"context"
	"fmt"

	"github.com/gridspace/grid-pages/internal/config"
	"github.com/gridspace/grid-pages/internal/logger"
	"github.com/gridspace/grid-pages/internal/service/bundle"
	"github.com/gridspace/grid-pages/internal/service/devices"
)

// Options contains inputs for the build entry point.
type Options struct {
	// ConfigPath is an optional layout YAML file (defaults to grid-pages.yaml if present).
	ConfigPath string
	// OutDir overrides the bundle directory from the layout.
	OutDir string
	// PrepareOnly stops after the device pack is written.
	PrepareOnly bool
}

// Run executes the build workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "grid-pages")

	layout, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load layout: %w", err)
	}

	if opts.OutDir != "" {
		layout.OutDir = opts.OutDir
	}

	return Build(ctx, layout, opts.PrepareOnly)
}

// Build regenerates the device pack and, unless prepareOnly, assembles the bundle.
func Build(ctx context.Context, layout *config.Layout, prepareOnly bool) error {
	if _, err := devices.Generate(ctx, layout.DevicesDir, layout.ManifestFile); err != nil {
		return fmt.Errorf("generate device pack: %w", err)
	}

	if prepareOnly {
		logger.Info(ctx, "Prepare mode, skipping static bundle")

		return nil
	}

	if _, err := bundle.Assemble(ctx, layout); err != nil {
		return fmt.Errorf("assemble bundle: %w", err)
	}

	return nil
}
