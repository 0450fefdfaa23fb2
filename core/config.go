package core

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v2"
)

// Configuration constants
const (
	DefaultConfigFile = "sitesmith.yaml"
	DefaultPort       = 8080
	DefaultHostname   = "localhost"
	DefaultDumpDir    = "dump"
	MinPort           = 1
	MaxPort           = 65535
	MaxHostnameLength = 253
)

// Validation errors
var (
	ErrInvalidPort       = errors.New("port must be between 1 and 65535")
	ErrInvalidHostname   = errors.New("hostname is invalid")
	ErrEmptyDirectory    = errors.New("directory cannot be empty")
	ErrDirectoryNotExist = errors.New("directory does not exist")
	ErrInvalidPath       = errors.New("path contains invalid characters")
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrInvalidYAML       = errors.New("invalid YAML configuration")
)

type Server struct {
	Port     int    `yaml:"port"`
	Hostname string `yaml:"hostname"`
}

func (s *Server) Validate() error {
	if s.Port < MinPort || s.Port > MaxPort {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, s.Port)
	}

	if s.Hostname != "" {
		if len(s.Hostname) > MaxHostnameLength {
			return fmt.Errorf("%w: hostname too long (%d > %d)",
				ErrInvalidHostname, len(s.Hostname), MaxHostnameLength)
		}

		// Check if it's a valid IP or hostname
		if net.ParseIP(s.Hostname) == nil && !isValidHostname(s.Hostname) {
			return fmt.Errorf("%w: invalid hostname format", ErrInvalidHostname)
		}
	}

	return nil
}

// Performs basic hostname validation
func isValidHostname(hostname string) bool {
	if hostname == "" || len(hostname) > MaxHostnameLength {
		return false
	}

	// Hostname cannot start or end with a dot
	if strings.HasPrefix(hostname, ".") || strings.HasSuffix(hostname, ".") {
		return false
	}

	for _, label := range strings.Split(hostname, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}

		// Labels cannot start or end with hyphen
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return false
		}

		// Labels must contain only alphanumeric characters and hyphens
		for _, char := range label {
			if !((char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') ||
				char == '-') {
				return false
			}
		}
	}

	return true
}

// PluginConfig selects one plugin of the chain and its options
type PluginConfig struct {
	Name    string                 `yaml:"name"`
	Options map[string]interface{} `yaml:"options"`
}

type Plugins []PluginConfig

func (p Plugins) Validate() error {
	for i, plugin := range p {
		if plugin.Name == "" {
			return NewValidationError(fmt.Sprintf("plugins[%d].name", i), plugin.Name, "plugin name cannot be empty")
		}

		for key := range plugin.Options {
			if key == "" {
				return NewValidationError(fmt.Sprintf("plugins[%d].options", i), plugin.Name, "empty option key")
			}
		}
	}

	return nil
}

type Config struct {
	FilePath      string `yaml:"-"`
	SiteDirectory string `yaml:"-"`
	Mode          string `yaml:"-"`
	OutDirectory  string `yaml:"-"`
	LogLevel      string `yaml:"-"`

	Source      string                 `yaml:"source"`
	Destination string                 `yaml:"destination"`
	Clean       bool                   `yaml:"clean"`
	Metadata    map[string]interface{} `yaml:"metadata"`
	Debug       []string               `yaml:"debug"`
	Server      Server                 `yaml:"server"`
	Plugins     Plugins                `yaml:"plugins"`
}

func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source", ErrEmptyDirectory)
	}
	if !isValidPath(c.Source) {
		return fmt.Errorf("%w: source %s", ErrInvalidPath, c.Source)
	}

	if c.Destination == "" {
		return fmt.Errorf("%w: destination", ErrEmptyDirectory)
	}
	if !isValidPath(c.Destination) {
		return fmt.Errorf("%w: destination %s", ErrInvalidPath, c.Destination)
	}
	if filepath.Clean(c.Destination) == "." || filepath.Clean(c.Destination) == filepath.Clean(c.Source) {
		return fmt.Errorf("%w: %s", ErrDestinationIsRoot, c.Destination)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration error: %w", err)
	}

	if err := c.Plugins.Validate(); err != nil {
		return fmt.Errorf("plugins configuration error: %w", err)
	}

	return nil
}

// Validates the site directory
func (c *Config) validateSiteDirectory() error {
	if c.SiteDirectory == "" {
		return fmt.Errorf("%w: site directory", ErrEmptyDirectory)
	}

	if !isValidPath(c.SiteDirectory) {
		return fmt.Errorf("%w: site directory", ErrInvalidPath)
	}

	info, err := os.Stat(c.SiteDirectory)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrDirectoryNotExist, c.SiteDirectory)
	}
	if err == nil && !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotExist, c.SiteDirectory)
	}

	return nil
}

// Validates file system paths
func isValidPath(path string) bool {
	if path == "" {
		return false
	}

	// Check for path traversal attempts
	if strings.Contains(path, "../") || strings.Contains(path, "..\\") {
		return false
	}

	// Check for invalid characters (basic check)
	invalidChars := []string{"\x00", "<", ">", "|", "?", "*"}
	for _, char := range invalidChars {
		if strings.Contains(path, char) {
			return false
		}
	}

	return true
}

// NewSmith creates a Smith configured from c
func (c *Config) NewSmith(logger *Logger, metrics *Metrics) *Smith {
	smith := New(c.SiteDirectory)
	smith.Source = c.Source
	smith.Destination = c.Destination
	smith.Clean = c.Clean
	smith.DebugPatterns = DebugPatterns(c.Debug)
	smith.Logger = logger
	smith.Metrics = metrics
	for k, v := range c.Metadata {
		smith.Metadata[k] = v
	}
	return smith
}

// Options defines the global command-line options
type Options struct {
	Config   string `short:"c" long:"config" description:"Configuration file, relative to the site directory" default:"sitesmith.yaml"`
	LogLevel string `short:"l" long:"log-level" description:"Log level (debug, info, warn, error)" default:"info"`
	Debug    string `short:"d" long:"debug" env:"DEBUG" description:"Comma separated debug namespaces, e.g. sitesmith-*"`
}

func (o *Options) Validate() error {
	if o.Config != "" && !isValidPath(o.Config) {
		return fmt.Errorf("%w: config file", ErrInvalidPath)
	}

	if _, err := ParseLogLevel(o.LogLevel); err != nil {
		return err
	}

	return nil
}

type siteArgs struct {
	Directory string `positional-arg-name:"directory" description:"Site directory (default: current directory)"`
}

type BuildCommand struct {
	Args siteArgs `positional-args:"yes"`
}

type DumpCommand struct {
	Out  string   `short:"o" long:"out" description:"Output directory for the dump, relative to the site directory" default:"dump"`
	Args siteArgs `positional-args:"yes"`
}

type ServeCommand struct {
	Port     int      `short:"p" long:"port" description:"Port to run the preview server on"`
	Hostname string   `short:"H" long:"hostname" description:"Hostname of the preview server"`
	Args     siteArgs `positional-args:"yes"`
}

type VersionCommand struct{}

// Commands defines the available subcommands
type Commands struct {
	Build   BuildCommand
	Dump    DumpCommand
	Serve   ServeCommand
	Version VersionCommand
}

// Reads and validates a YAML configuration file. The values already present
// in config act as defaults.
func ReadConfigYaml(config *Config, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidPath)
	}

	if !isValidPath(filePath) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, filePath)
	}

	config.FilePath = filePath

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, filePath)
		}
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidYAML, err.Error())
	}
	config.Metadata = normalizeMap(config.Metadata)
	for i := range config.Plugins {
		config.Plugins[i].Options = normalizeMap(config.Plugins[i].Options)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	return nil
}

// Creates a new configuration with default values
func NewDefaultConfig() Config {
	return Config{
		SiteDirectory: ".",
		LogLevel:      LogLevelInfo.String(),
		Source:        DefaultSource,
		Destination:   DefaultDestination,
		Clean:         true,
		Metadata:      make(map[string]interface{}),
		Server: Server{
			Port:     DefaultPort,
			Hostname: DefaultHostname,
		},
	}
}

// Parses command line arguments (without the program name) and returns a
// validated configuration. A missing configuration file is not an error.
func ParseCommandLineArguments(args []string) (Config, error) {
	config := NewDefaultConfig()

	var opts Options
	var commands Commands

	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("build", "Build the site",
		"Read the source directory, run all plugins and write the destination directory", &commands.Build)
	parser.AddCommand("dump", "Dump the processed files and their metadata",
		"Process the site, then write files, metadata sidecars and context.json (for testing)", &commands.Dump)
	parser.AddCommand("serve", "Serve a live preview",
		"Build the site in memory, serve it and rebuild on changes", &commands.Serve)
	parser.AddCommand("version", "Print the build version",
		"Print the build version", &commands.Version)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			config.Mode = "help"
			return config, nil
		}
		return config, fmt.Errorf("failed to parse command line arguments: %w", err)
	}

	if err := opts.Validate(); err != nil {
		return config, fmt.Errorf("invalid command line options: %w", err)
	}
	config.LogLevel = opts.LogLevel

	if parser.Active == nil {
		return config, errors.New("no command specified")
	}

	var directory string
	switch parser.Active.Name {
	case "build":
		directory = commands.Build.Args.Directory
	case "dump":
		directory = commands.Dump.Args.Directory
		config.OutDirectory = commands.Dump.Out
	case "serve":
		directory = commands.Serve.Args.Directory
	case "version":
		config.Mode = "version"
		return config, nil
	default:
		return config, fmt.Errorf("unknown command: %s", parser.Active.Name)
	}
	config.Mode = parser.Active.Name

	if directory != "" {
		config.SiteDirectory = directory
	}
	if err := config.validateSiteDirectory(); err != nil {
		return config, err
	}

	configPath := opts.Config
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(config.SiteDirectory, configPath)
	}
	if err := ReadConfigYaml(&config, configPath); err != nil && !errors.Is(err, ErrConfigNotFound) {
		return config, err
	}

	// Command line flags win over the configuration file
	if opts.Debug != "" {
		config.Debug = append(config.Debug, ParseDebugPatterns(opts.Debug)...)
	}
	if commands.Serve.Port != 0 {
		config.Server.Port = commands.Serve.Port
	}
	if commands.Serve.Hostname != "" {
		config.Server.Hostname = commands.Serve.Hostname
	}
	if config.Mode == "dump" && !isValidPath(config.OutDirectory) {
		return config, fmt.Errorf("%w: output directory", ErrInvalidPath)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
