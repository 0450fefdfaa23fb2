package plugins

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"sitesmith/core"
)

const LayoutPluginName = "sitesmith-layout"

type LayoutOptions struct {
	Directory string `yaml:"directory"`
	Default   string `yaml:"default"`
	Pattern   string `yaml:"pattern"`
}

// LayoutPlugin wraps pages into html/template layouts. A page picks its layout
// with the "layout" front matter key; "layout: false" opts out.
type LayoutPlugin struct {
	options LayoutOptions
}

func NewLayoutPlugin(opts LayoutOptions) *LayoutPlugin {
	if opts.Directory == "" {
		opts.Directory = "layouts"
	}
	if opts.Default == "" {
		opts.Default = "default.html"
	}
	if opts.Pattern == "" {
		opts.Pattern = ".html"
	}
	return &LayoutPlugin{options: opts}
}

func (p *LayoutPlugin) Name() string {
	return LayoutPluginName
}

func (p *LayoutPlugin) Priority() int {
	return core.DefaultPriority
}

func (p *LayoutPlugin) CanProcess(filePath string) bool {
	return strings.HasSuffix(filePath, p.options.Pattern)
}

func (p *LayoutPlugin) Process(files core.Files, smith *core.Smith) error {
	debug := smith.Debug(LayoutPluginName)

	dir := p.options.Directory
	if smith != nil {
		dir = smith.Path(dir)
	}

	// Parsed once per build, layouts may change between builds
	cache := make(map[string]*template.Template)
	load := func(name string) (*template.Template, error) {
		if tmpl, ok := cache[name]; ok {
			return tmpl, nil
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(name).Parse(string(data))
		if err != nil {
			return nil, err
		}
		cache[name] = tmpl
		return tmpl, nil
	}

	for _, filePath := range files.Paths() {
		if !p.CanProcess(filePath) {
			continue
		}

		file := files[filePath]
		if file == nil {
			return core.NewPluginError(LayoutPluginName, filePath, core.ErrMalformedFile)
		}

		name, explicit, err := p.layoutFor(file)
		if err != nil {
			return core.NewPluginError(LayoutPluginName, filePath, err)
		}
		if name == "" {
			continue
		}

		tmpl, err := load(name)
		if errors.Is(err, os.ErrNotExist) {
			if !explicit {
				continue
			}
			return core.NewPluginError(LayoutPluginName, filePath, fmt.Errorf("%w: %s", core.ErrLayoutNotFound, name))
		}
		if err != nil {
			return core.NewPluginError(LayoutPluginName, filePath, err)
		}

		body, err := ApplyTemplate(tmpl, BuildTemplateVars(smith, filePath, file))
		if err != nil {
			return core.NewPluginError(LayoutPluginName, filePath, err)
		}
		file.Contents = body
		debug("Applied layout %s to %s", name, filePath)
	}

	return nil
}

// layoutFor returns the layout name and whether the page asked for it
// explicitly. An empty name means no layout.
func (p *LayoutPlugin) layoutFor(file *core.File) (string, bool, error) {
	v, ok := file.Get("layout")
	if !ok || v == nil {
		return p.options.Default, false, nil
	}

	switch layout := v.(type) {
	case string:
		if layout == "" {
			return p.options.Default, false, nil
		}
		if !fs.ValidPath(layout) {
			return "", false, fmt.Errorf("%w: invalid layout name %q", core.ErrMalformedFile, layout)
		}
		return layout, true, nil
	case bool:
		if !layout {
			return "", false, nil
		}
		return p.options.Default, false, nil
	default:
		return "", false, fmt.Errorf("%w: layout must be a name or false, got %T", core.ErrMalformedFile, v)
	}
}
