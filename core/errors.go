package core

import (
	"errors"
	"fmt"
)

// Error types for better error handling
var (
	// File collection errors
	ErrMalformedFile     = errors.New("malformed file entry")
	ErrSourceNotFound    = errors.New("source directory not found")
	ErrInvalidFilePath   = errors.New("invalid file path")
	ErrDestinationIsRoot = errors.New("destination must not be the site directory")

	// Plugin errors
	ErrPluginFailed   = errors.New("plugin processing failed")
	ErrPluginNotFound = errors.New("plugin not found")
	ErrInvalidPlugin  = errors.New("invalid plugin")
	ErrLayoutNotFound = errors.New("layout not found")

	// Watcher errors
	ErrWatcherNotRunning = errors.New("file watcher not running")
	ErrWatcherRunning    = errors.New("file watcher already running")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrConfigMissing = errors.New("configuration missing")
)

// FileError wraps errors raised while reading or writing a file of the collection
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// NewFileError creates a new FileError
func NewFileError(op, path string, err error) *FileError {
	return &FileError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// PluginError is the single error kind a plugin reports back to the pipeline.
// The message always starts with the plugin name so the build output shows
// which stage failed.
type PluginError struct {
	Plugin string
	File   string
	Err    error
}

func (e *PluginError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s error: %v", e.Plugin, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Plugin, e.File, e.Err)
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new PluginError
func NewPluginError(plugin, file string, err error) *PluginError {
	return &PluginError{
		Plugin: plugin,
		File:   file,
		Err:    err,
	}
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s (value: %v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
