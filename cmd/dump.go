package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"sitesmith/core"
)

type dumpContext struct {
	Directory   string                 `json:"directory"`
	Source      string                 `json:"source"`
	Destination string                 `json:"destination"`
	Metadata    map[string]interface{} `json:"metadata"`
	Plugins     []string               `json:"plugins"`
	Files       []string               `json:"files"`
}

// Dump processes the site and writes the files, a metadata sidecar per file
// and a context.json to outDir. A relative outDir is resolved against the
// site directory. The directory can then be compared to a "golden" set of
// files, and any deviation is a bug.
func Dump(ctx context.Context, smith *core.Smith, outDir string) error {
	outDir = smith.Path(outDir)

	files, err := smith.Process(ctx)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", outDir, err)
	}

	if err := core.WriteFiles(outDir, files); err != nil {
		return err
	}

	for _, p := range files.Paths() {
		metadata, err := yaml.Marshal(files[p].Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata of %s: %w", p, err)
		}

		outPath := filepath.Join(outDir, filepath.FromSlash(p)) + ".yaml"
		if err := os.WriteFile(outPath, metadata, 0644); err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}
	}

	dc := dumpContext{
		Directory:   smith.Directory,
		Source:      smith.Source,
		Destination: smith.Destination,
		Metadata:    smith.Metadata,
		Plugins:     smith.Plugins().ListPlugins(),
		Files:       files.Paths(),
	}
	contextJson, err := json.MarshalIndent(&dc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	outPath := filepath.Join(outDir, "context.json")
	if err := os.WriteFile(outPath, contextJson, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	smith.Logger.Info("dumped %d files into %s", len(files), outDir)
	return nil
}
