package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitesmith/core"
)

// Rebuild processes the site and publishes the result on server. A failed
// build is recorded but the previous one keeps being served.
func Rebuild(ctx context.Context, smith *core.Smith, server *core.PreviewServer) error {
	files, err := smith.Process(ctx)
	if err != nil {
		server.SetBuildError(err)
		return err
	}
	server.Update(files)
	return nil
}

// Serve builds the site in memory, serves it and rebuilds on every change
// until ctx is cancelled
func Serve(ctx context.Context, smith *core.Smith, cfg core.Server) error {
	server := core.NewServer(smith.Metrics)
	for _, plugin := range smith.Plugins().Plugins() {
		if searcher, ok := plugin.(core.Searcher); ok {
			server.SetSearcher(searcher)
		}
	}

	if err := Rebuild(ctx, smith, server); err != nil {
		smith.Logger.Error("initial build failed: %v", err)
	}

	watcher, err := core.NewWatcher(func(events []core.FileWatchEvent) {
		smith.Logger.Info("%d change(s), rebuilding (first: %s %s)", len(events), events[0].Type, events[0].Path)
		if err := Rebuild(ctx, smith, server); err != nil {
			smith.Logger.Error("rebuild failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	watcher.Logger = smith.Logger
	watcher.Metrics = smith.Metrics
	destination := strings.TrimPrefix(smith.Destination, "./")
	watcher.Ignore = func(relPath string) bool {
		return relPath == destination || strings.HasPrefix(relPath, destination+"/")
	}

	if err := watcher.Start(ctx, smith.Directory); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Stop()

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port)),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		smith.Logger.Info("serving preview on http://%s", httpServer.Addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("preview server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	smith.Logger.Info("shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
