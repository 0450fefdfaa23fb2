package plugins

import (
	"fmt"
	"sort"
	"sync"

	"sitesmith/core"
)

// Factory creates a plugin from the options of a configuration entry
type Factory func(options map[string]interface{}) (core.Plugin, error)

// Registry maps configuration names to plugin factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// NewBuiltinRegistry returns a registry with all plugins of this package
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register("marker", func(options map[string]interface{}) (core.Plugin, error) {
		var opts MarkerOptions
		if err := DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewMarkerPlugin(&opts), nil
	})
	r.Register("markdown", func(options map[string]interface{}) (core.Plugin, error) {
		var opts MarkdownOptions
		if err := DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewMarkdownPlugin(opts), nil
	})
	r.Register("layout", func(options map[string]interface{}) (core.Plugin, error) {
		var opts LayoutOptions
		if err := DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewLayoutPlugin(opts), nil
	})
	r.Register("search", func(options map[string]interface{}) (core.Plugin, error) {
		var opts SearchOptions
		if err := DecodeOptions(options, &opts); err != nil {
			return nil, err
		}
		return NewSearchPlugin(opts), nil
	})
	return r
}

// Register adds or replaces a factory
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the plugin registered under name
func (r *Registry) Build(name string, options map[string]interface{}) (core.Plugin, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrPluginNotFound, name)
	}

	plugin, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return plugin, nil
}

// Install builds every configured plugin and adds it to smith
func (r *Registry) Install(smith *core.Smith, configs core.Plugins) error {
	for _, cfg := range configs {
		plugin, err := r.Build(cfg.Name, cfg.Options)
		if err != nil {
			return err
		}
		smith.Use(plugin)
	}
	return nil
}
