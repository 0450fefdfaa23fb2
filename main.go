package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"sitesmith/cmd"
	"sitesmith/core"
	"sitesmith/plugins"
)

func initializeSmith(config *core.Config, logger *core.Logger) (*core.Smith, error) {
	smith := config.NewSmith(logger, core.GlobalMetrics)

	registry := plugins.NewBuiltinRegistry()
	if err := registry.Install(smith, config.Plugins); err != nil {
		return nil, err
	}

	for _, plugin := range smith.Plugins().ListPlugins() {
		logger.Debug("plugin: %s", plugin)
	}
	return smith, nil
}

func run() error {
	config, err := core.ParseCommandLineArguments(os.Args[1:])
	if err != nil {
		return err
	}

	switch config.Mode {
	case "help":
		return nil
	case "version":
		cmd.Version(os.Stdout)
		return nil
	}

	level, err := core.ParseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}
	logger := core.NewLogger(level)
	core.GlobalLogger = logger
	gin.SetMode(gin.ReleaseMode)

	smith, err := initializeSmith(&config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize plugins: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch config.Mode {
	case "build":
		return cmd.Build(ctx, smith)
	case "dump":
		return cmd.Dump(ctx, smith, config.OutDirectory)
	case "serve":
		return cmd.Serve(ctx, smith, config.Server)
	default:
		return fmt.Errorf("unknown command: %s", config.Mode)
	}
}

func main() {
	if err := run(); err != nil {
		core.Error("%v", err)
		os.Exit(1)
	}
}
