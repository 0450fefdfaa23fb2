package plugins

import (
	"strings"

	"sitesmith/core"
)

// MarkerPluginName identifies the marker plugin in debug output and errors
const MarkerPluginName = "sitesmith-marker"

// MarkerField is the metadata key set on every file the plugin touched
const MarkerField = "processedWithOptions"

// EnumOption is one of a small set of tags. Unknown values are accepted as-is.
type EnumOption string

const (
	Option1 EnumOption = "option1"
	Option2 EnumOption = "option2"
	Option3 EnumOption = "option3"
)

// MarkerOptions are the options a caller supplies. A nil field means "use the
// default".
type MarkerOptions struct {
	Key          *string     `yaml:"key"`
	OptionalFlag *bool       `yaml:"optionalFlag"`
	EnumOption   *EnumOption `yaml:"enumOption"`
}

// ResolvedMarkerOptions has every field populated
type ResolvedMarkerOptions struct {
	Key          string
	OptionalFlag bool
	EnumOption   EnumOption
}

// DefaultMarkerOptions returns the defaults every option falls back to
func DefaultMarkerOptions() ResolvedMarkerOptions {
	return ResolvedMarkerOptions{
		Key:          "key",
		OptionalFlag: false,
		EnumOption:   Option1,
	}
}

// NormalizeMarkerOptions overlays the supplied fields onto the defaults
func NormalizeMarkerOptions(opts *MarkerOptions) ResolvedMarkerOptions {
	resolved := DefaultMarkerOptions()
	if opts == nil {
		return resolved
	}

	if opts.Key != nil {
		resolved.Key = *opts.Key
	}
	if opts.OptionalFlag != nil {
		resolved.OptionalFlag = *opts.OptionalFlag
	}
	if opts.EnumOption != nil {
		resolved.EnumOption = *opts.EnumOption
	}
	return resolved
}

// MarkerPlugin flags every .html file with MarkerField when OptionalFlag is set
type MarkerPlugin struct {
	options ResolvedMarkerOptions
}

// NewMarkerPlugin resolves opts once and returns the plugin instance
func NewMarkerPlugin(opts *MarkerOptions) *MarkerPlugin {
	return &MarkerPlugin{options: NormalizeMarkerOptions(opts)}
}

// Options returns the resolved options
func (p *MarkerPlugin) Options() ResolvedMarkerOptions {
	return p.options
}

func (p *MarkerPlugin) Name() string {
	return MarkerPluginName
}

func (p *MarkerPlugin) Priority() int {
	return core.DefaultPriority
}

func (p *MarkerPlugin) CanProcess(path string) bool {
	return strings.HasSuffix(path, ".html")
}

// Process marks the matching files. Files already marked before a failure
// stay marked. A failure carries the plugin name and the original message
// only, the offending path is logged on the debug port.
func (p *MarkerPlugin) Process(files core.Files, smith *core.Smith) error {
	debug := smith.Debug(MarkerPluginName)
	debug("Running with options: %+v", p.options)

	for _, path := range files.Paths() {
		if !p.CanProcess(path) {
			continue
		}

		if err := p.processFile(files[path]); err != nil {
			debug("Failed on file: %s", path)
			return core.NewPluginError(MarkerPluginName, "", err)
		}
		debug("Processed file: %s", path)
	}

	return nil
}

func (p *MarkerPlugin) processFile(file *core.File) error {
	if file == nil {
		return core.ErrMalformedFile
	}

	if p.options.OptionalFlag {
		file.Set(MarkerField, true)
	}
	return nil
}
