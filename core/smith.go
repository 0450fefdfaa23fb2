package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults for a new Smith
const (
	DefaultSource      = "src"
	DefaultDestination = "build"
)

// Smith is the build context: it reads a source tree into a file collection,
// runs the plugin chain over it and writes the result.
type Smith struct {
	Directory   string // Site root, Source and Destination are relative to it
	Source      string
	Destination string
	Clean       bool // Remove Destination before writing

	// Global metadata, available to all plugins (e.g. as template data)
	Metadata map[string]interface{}

	Logger        *Logger
	Metrics       *Metrics
	DebugPatterns DebugPatterns

	plugins *PluginManager
}

// New creates a Smith for the given site directory
func New(directory string) *Smith {
	return &Smith{
		Directory:   directory,
		Source:      DefaultSource,
		Destination: DefaultDestination,
		Clean:       true,
		Metadata:    make(map[string]interface{}),
		Logger:      GlobalLogger,
		Metrics:     GlobalMetrics,
		plugins:     NewPluginManager(),
	}
}

// Use appends a plugin to the chain
func (s *Smith) Use(plugin Plugin) *Smith {
	s.plugins.RegisterPlugin(plugin)
	return s
}

// Plugins returns the plugin chain
func (s *Smith) Plugins() *PluginManager {
	return s.plugins
}

// SourcePath returns the absolute or site-relative source directory
func (s *Smith) SourcePath() string {
	return s.resolve(s.Source)
}

// DestinationPath returns the absolute or site-relative output directory
func (s *Smith) DestinationPath() string {
	return s.resolve(s.Destination)
}

// Path resolves a path relative to the site directory
func (s *Smith) Path(elem ...string) string {
	return s.resolve(filepath.Join(elem...))
}

func (s *Smith) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.Directory, p)
}

// Debug returns the debug port for a namespace. It is a no-op unless the
// namespace is enabled, and also when s is nil.
func (s *Smith) Debug(namespace string) DebugFunc {
	if s == nil || !s.DebugPatterns.Enabled(namespace) {
		return NopDebug
	}

	zl := s.logger().Namespace(namespace)
	return func(format string, args ...interface{}) {
		zl.Debug().Msgf(format, args...)
	}
}

func (s *Smith) logger() *Logger {
	if s == nil || s.Logger == nil {
		return GlobalLogger
	}
	return s.Logger
}

func (s *Smith) metrics() *Metrics {
	if s == nil || s.Metrics == nil {
		return GlobalMetrics
	}
	return s.Metrics
}

// Read loads the source directory into a new file collection
func (s *Smith) Read() (Files, error) {
	return ReadFiles(s.SourcePath())
}

// Run executes the plugin chain over files
func (s *Smith) Run(ctx context.Context, files Files) error {
	return s.plugins.Run(ctx, files, s)
}

// Write writes files to the destination directory
func (s *Smith) Write(files Files) error {
	dest := s.DestinationPath()
	if dest == filepath.Clean(s.Directory) || dest == s.SourcePath() {
		return fmt.Errorf("%w: %s", ErrDestinationIsRoot, dest)
	}

	if s.Clean {
		if err := os.RemoveAll(dest); err != nil {
			return NewFileError("clean", dest, err)
		}
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return NewFileError("mkdir", dest, err)
	}

	return WriteFiles(dest, files)
}

// Process reads the source and runs the plugins, without writing anything
func (s *Smith) Process(ctx context.Context) (Files, error) {
	start := time.Now()
	files, err := s.process(ctx)
	s.record(start, files, err)
	return files, err
}

// Build reads the source, runs the plugins and writes the output
func (s *Smith) Build(ctx context.Context) (Files, error) {
	start := time.Now()
	files, err := s.process(ctx)
	if err == nil {
		err = s.Write(files)
	}
	s.record(start, files, err)
	return files, err
}

func (s *Smith) process(ctx context.Context) (Files, error) {
	files, err := s.Read()
	if err != nil {
		return nil, err
	}
	s.logger().Debug("read %d files from %s", len(files), s.SourcePath())

	if err := s.Run(ctx, files); err != nil {
		return files, err
	}
	return files, nil
}

func (s *Smith) record(start time.Time, files Files, err error) {
	metrics := s.metrics()
	metrics.BuildsTotal.Inc()
	metrics.BuildDuration.Observe(time.Since(start))

	if err != nil {
		metrics.BuildFailures.Inc()
		return
	}
	metrics.FilesTotal.Set(int64(len(files)))
	metrics.LastBuildUnix.Set(time.Now().Unix())
}
