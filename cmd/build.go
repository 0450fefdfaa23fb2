package cmd

import (
	"context"
	"fmt"
	"time"

	"sitesmith/core"
)

// Build runs the whole pipeline and writes the destination directory
func Build(ctx context.Context, smith *core.Smith) error {
	start := time.Now()

	files, err := smith.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	smith.Logger.Info("built %d files into %s in %v", len(files), smith.DestinationPath(),
		time.Since(start).Round(time.Millisecond))
	return nil
}
