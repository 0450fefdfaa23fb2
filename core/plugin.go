package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultPriority is used by plugins that don't care about their position
const DefaultPriority = 100

// Plugin interface that all plugins must implement
type Plugin interface {
	// Name returns the plugin name
	Name() string

	// Priority returns the execution priority (lower numbers run first)
	Priority() int

	// Process transforms the file collection in place. The returned error is
	// the only completion signal: nil means success.
	Process(files Files, smith *Smith) error
}

type pluginFunc struct {
	name     string
	priority int
	fn       func(files Files, smith *Smith) error
}

func (p *pluginFunc) Name() string  { return p.name }
func (p *pluginFunc) Priority() int { return p.priority }
func (p *pluginFunc) Process(files Files, smith *Smith) error {
	return p.fn(files, smith)
}

// PluginFunc turns a plain function into a Plugin with DefaultPriority
func PluginFunc(name string, fn func(files Files, smith *Smith) error) Plugin {
	return &pluginFunc{name: name, priority: DefaultPriority, fn: fn}
}

// PluginManager manages all registered plugins
type PluginManager struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewPluginManager creates a new plugin manager
func NewPluginManager() *PluginManager {
	return &PluginManager{
		plugins: make([]Plugin, 0),
	}
}

// RegisterPlugin registers a new plugin. Plugins with equal priority keep
// their registration order.
func (pm *PluginManager) RegisterPlugin(plugin Plugin) {
	if plugin == nil {
		return
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.plugins = append(pm.plugins, plugin)

	sort.SliceStable(pm.plugins, func(i, j int) bool {
		return pm.plugins[i].Priority() < pm.plugins[j].Priority()
	})
}

// Plugins returns the plugin chain in execution order
func (pm *PluginManager) Plugins() []Plugin {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	list := make([]Plugin, len(pm.plugins))
	copy(list, pm.plugins)
	return list
}

// ListPlugins returns information about all registered plugins
func (pm *PluginManager) ListPlugins() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if len(pm.plugins) == 0 {
		return nil
	}

	var builder strings.Builder
	list := make([]string, 0, len(pm.plugins))

	for _, plugin := range pm.plugins {
		builder.Reset()
		builder.WriteString(plugin.Name())
		builder.WriteString(" (priority: ")
		builder.WriteString(fmt.Sprintf("%d", plugin.Priority()))
		builder.WriteString(")")
		list = append(list, builder.String())
	}

	return list
}

// Run executes the chain over files. It stops at the first failing plugin;
// changes made by earlier plugins are kept.
func (pm *PluginManager) Run(ctx context.Context, files Files, smith *Smith) error {
	metrics := smith.metrics()

	for _, plugin := range pm.Plugins() {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := runPlugin(plugin, files, smith)
		metrics.PluginDuration.Observe(time.Since(start))

		if err != nil {
			metrics.PluginErrors.Inc()
			var perr *PluginError
			if errors.As(err, &perr) {
				return err
			}
			return NewPluginError(plugin.Name(), "", err)
		}
	}

	return nil
}

// runPlugin turns a panicking plugin into an ordinary error
func runPlugin(plugin Plugin, files Files, smith *Smith) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPluginError(plugin.Name(), "", fmt.Errorf("%w: panic: %v", ErrPluginFailed, r))
		}
	}()
	return plugin.Process(files, smith)
}
