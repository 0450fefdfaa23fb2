package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events before it
// reports a batch
const DefaultDebounce = 100 * time.Millisecond

// FileWatchEventType represents the type of file system event
type FileWatchEventType int

const (
	FileCreated FileWatchEventType = iota
	FileModified
	FileDeleted
	DirCreated
	DirDeleted
)

// String returns a string representation of the event type
func (t FileWatchEventType) String() string {
	switch t {
	case FileCreated:
		return "FileCreated"
	case FileModified:
		return "FileModified"
	case FileDeleted:
		return "FileDeleted"
	case DirCreated:
		return "DirCreated"
	case DirDeleted:
		return "DirDeleted"
	default:
		return "Unknown"
	}
}

// FileWatchEvent represents a file system change event
type FileWatchEvent struct {
	Type  FileWatchEventType
	Path  string // relative to the watched root
	IsDir bool
	Time  time.Time
}

// WatchHandler receives debounced batches of events. It runs on the watcher
// goroutine, so batches never overlap.
type WatchHandler func(events []FileWatchEvent)

// Watcher watches a directory tree and reports changes in batches
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	watchedDirs map[string]bool
	rootPath    string
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	handler WatchHandler

	// Debounce delays the handler until no event arrived for this long
	Debounce time.Duration
	// Ignore filters events by relative path, e.g. the build output
	Ignore  func(relPath string) bool
	Logger  *Logger
	Metrics *Metrics
}

// NewWatcher creates a watcher calling handler for every batch of changes
func NewWatcher(handler WatchHandler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch handler cannot be nil")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:     watcher,
		watchedDirs: make(map[string]bool),
		handler:     handler,
		Debounce:    DefaultDebounce,
		Logger:      GlobalLogger,
		Metrics:     GlobalMetrics,
	}, nil
}

// Adds a directory to the watcher recursively
func (w *Watcher) addDirectoryWatch(dirPath string) error {
	return filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			w.Logger.Warn("error walking path %s: %v", path, err)
			return nil
		}

		if !info.IsDir() {
			return nil
		}
		if path != dirPath && IgnoreFile(path, info) {
			return filepath.SkipDir
		}
		if rel, err := filepath.Rel(w.rootPath, path); err == nil && w.ignored(rel) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.Logger.Warn("failed to watch directory %s: %v", path, err)
			return nil
		}

		w.mu.Lock()
		w.watchedDirs[path] = true
		w.mu.Unlock()

		w.Logger.Debug("watching directory: %s", path)
		return nil
	})
}

// Removes a directory and its subdirectories from the watcher
func (w *Watcher) removeDirectoryWatch(dirPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for watchedDir := range w.watchedDirs {
		if watchedDir == dirPath || strings.HasPrefix(watchedDir, dirPath+string(filepath.Separator)) {
			// fsnotify drops removed directories itself, errors are expected
			_ = w.watcher.Remove(watchedDir)
			delete(w.watchedDirs, watchedDir)
		}
	}
}

func (w *Watcher) ignored(relPath string) bool {
	if relPath == "." {
		return false
	}
	return w.Ignore != nil && w.Ignore(filepath.ToSlash(relPath))
}

// Start watches rootPath until ctx is cancelled or Stop is called
func (w *Watcher) Start(ctx context.Context, rootPath string) error {
	if rootPath == "" {
		return fmt.Errorf("root path cannot be empty")
	}

	if info, err := os.Stat(rootPath); err != nil {
		return fmt.Errorf("failed to access root path %s: %w", rootPath, err)
	} else if !info.IsDir() {
		return fmt.Errorf("root path %s is not a directory", rootPath)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.rootPath = filepath.Clean(rootPath)
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if err := w.addDirectoryWatch(w.rootPath); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to add initial directory watches: %w", err)
	}

	w.wg.Add(1)
	go w.processWatcherEvents(ctx)

	w.Logger.Info("watching %s for changes", rootPath)
	return nil
}

// Stop stops the watcher and waits for the event loop to finish
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrWatcherNotRunning
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	w.Logger.Debug("file watcher stopped")
	return err
}

func (w *Watcher) processWatcherEvents(ctx context.Context) {
	defer w.wg.Done()

	var pending []FileWatchEvent
	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ev, ok := w.translate(event)
			if !ok {
				continue
			}
			w.Metrics.WatcherEvents.Inc()
			pending = append(pending, ev)
			timer.Reset(w.Debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := pending
			pending = nil
			w.handler(batch)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.Logger.Warn("file watcher error: %v", err)
		}
	}
}

// translate maps an fsnotify event onto a FileWatchEvent, keeping the watch
// list in sync with created and deleted directories
func (w *Watcher) translate(event fsnotify.Event) (FileWatchEvent, bool) {
	relPath, err := filepath.Rel(w.rootPath, event.Name)
	if err != nil || w.ignored(relPath) {
		return FileWatchEvent{}, false
	}
	ev := FileWatchEvent{Path: filepath.ToSlash(relPath), Time: time.Now()}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Lstat(event.Name)
		if err != nil || IgnoreFile(event.Name, info) {
			return FileWatchEvent{}, false
		}
		if info.IsDir() {
			if err := w.addDirectoryWatch(event.Name); err != nil {
				w.Logger.Warn("failed to watch new directory %s: %v", event.Name, err)
			}
			ev.Type, ev.IsDir = DirCreated, true
		} else {
			ev.Type = FileCreated
		}

	case event.Has(fsnotify.Write):
		if strings.HasPrefix(filepath.Base(event.Name), ".") {
			return FileWatchEvent{}, false
		}
		ev.Type = FileModified

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.mu.RLock()
		wasDir := w.watchedDirs[event.Name]
		w.mu.RUnlock()
		if wasDir {
			w.removeDirectoryWatch(event.Name)
			ev.Type, ev.IsDir = DirDeleted, true
		} else {
			ev.Type = FileDeleted
		}

	default:
		return FileWatchEvent{}, false
	}

	return ev, true
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetWatchedDirectories returns a copy of currently watched directories
func (w *Watcher) GetWatchedDirectories() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dirs := make([]string, 0, len(w.watchedDirs))
	for dir := range w.watchedDirs {
		dirs = append(dirs, dir)
	}
	return dirs
}
