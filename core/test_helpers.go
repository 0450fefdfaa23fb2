package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

// TestFileBuilder helps create test files with various properties
type TestFileBuilder struct {
	path     string
	content  string
	metadata map[string]interface{}
}

// NewTestFileBuilder creates a new test file builder
func NewTestFileBuilder(path string) *TestFileBuilder {
	return &TestFileBuilder{
		path:     path,
		metadata: make(map[string]interface{}),
	}
}

// WithContent sets the file content
func (tfb *TestFileBuilder) WithContent(content string) *TestFileBuilder {
	tfb.content = content
	return tfb
}

// WithMetadata adds a metadata field. On disk it is written as front matter.
func (tfb *TestFileBuilder) WithMetadata(key string, value interface{}) *TestFileBuilder {
	tfb.metadata[key] = value
	return tfb
}

// Path returns the path of the file
func (tfb *TestFileBuilder) Path() string {
	return tfb.path
}

// Build creates the in-memory File
func (tfb *TestFileBuilder) Build() *File {
	file := NewFile([]byte(tfb.content))
	for key, value := range tfb.metadata {
		file.Set(key, value)
	}
	return file
}

// Raw returns the on-disk representation including front matter
func (tfb *TestFileBuilder) Raw() []byte {
	if len(tfb.metadata) == 0 {
		return []byte(tfb.content)
	}

	keys := make([]string, 0, len(tfb.metadata))
	for key := range tfb.metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("---\n")
	for _, key := range keys {
		fmt.Fprintf(&buf, "%s: %v\n", key, tfb.metadata[key])
	}
	buf.WriteString("---\n")
	buf.WriteString(tfb.content)
	return buf.Bytes()
}

// CreatePhysically creates the file on disk in the given base directory
func (tfb *TestFileBuilder) CreatePhysically(t *testing.T, baseDir string) string {
	t.Helper()

	fullPath := filepath.Join(baseDir, filepath.FromSlash(tfb.path))
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, tfb.Raw(), 0644); err != nil {
		t.Fatalf("Failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// TestDirectoryStructure helps create complex directory structures for testing
type TestDirectoryStructure struct {
	baseDir string
	files   []*TestFileBuilder
	dirs    []string
}

// NewTestDirectoryStructure creates a new test directory structure builder
func NewTestDirectoryStructure(baseDir string) *TestDirectoryStructure {
	return &TestDirectoryStructure{
		baseDir: baseDir,
		files:   make([]*TestFileBuilder, 0),
		dirs:    make([]string, 0),
	}
}

// WithDirectory adds a directory to be created
func (tds *TestDirectoryStructure) WithDirectory(dirPath string) *TestDirectoryStructure {
	tds.dirs = append(tds.dirs, dirPath)
	return tds
}

// WithFile adds a file to be created
func (tds *TestDirectoryStructure) WithFile(file *TestFileBuilder) *TestDirectoryStructure {
	tds.files = append(tds.files, file)
	return tds
}

// Create creates the entire directory structure on disk
func (tds *TestDirectoryStructure) Create(t *testing.T) []string {
	t.Helper()

	createdFiles := make([]string, 0, len(tds.files))

	for _, dir := range tds.dirs {
		fullPath := filepath.Join(tds.baseDir, filepath.FromSlash(dir))
		if err := os.MkdirAll(fullPath, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", fullPath, err)
		}
	}

	for _, file := range tds.files {
		createdFiles = append(createdFiles, file.CreatePhysically(t, tds.baseDir))
	}

	return createdFiles
}

// TestSite is a temporary site directory with a Smith whose log output is
// captured in a buffer
type TestSite struct {
	T       *testing.T
	Dir     string
	Smith   *Smith
	Log     *SyncBuffer
	Metrics *Metrics
}

// NewTestSite creates an empty site with "src" and "layouts" directories.
// All debug namespaces are enabled.
func NewTestSite(t *testing.T) *TestSite {
	t.Helper()

	dir := t.TempDir()
	NewTestDirectoryStructure(dir).
		WithDirectory(DefaultSource).
		WithDirectory("layouts").
		Create(t)

	buf := &SyncBuffer{}
	metrics := NewMetrics()
	smith := New(dir)
	smith.Logger = NewLoggerWithWriter(LogLevelDebug, buf)
	smith.Metrics = metrics
	smith.DebugPatterns = DebugPatterns{"*"}

	return &TestSite{
		T:       t,
		Dir:     dir,
		Smith:   smith,
		Log:     buf,
		Metrics: metrics,
	}
}

// WithSource creates a file below the source directory
func (ts *TestSite) WithSource(path, content string) *TestSite {
	ts.T.Helper()
	NewTestFileBuilder(filepath.ToSlash(filepath.Join(DefaultSource, path))).
		WithContent(content).
		CreatePhysically(ts.T, ts.Dir)
	return ts
}

// WithFile creates an arbitrary file below the site directory
func (ts *TestSite) WithFile(file *TestFileBuilder) *TestSite {
	ts.T.Helper()
	file.CreatePhysically(ts.T, ts.Dir)
	return ts
}

// ReadOutput returns the contents of a built file
func (ts *TestSite) ReadOutput(path string) string {
	ts.T.Helper()
	data, err := os.ReadFile(filepath.Join(ts.Smith.DestinationPath(), filepath.FromSlash(path)))
	if err != nil {
		ts.T.Fatalf("Failed to read output %s: %v", path, err)
	}
	return string(data)
}

// SyncBuffer is a bytes.Buffer safe for concurrent writers
type SyncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// EventCollector is a WatchHandler that records all batches
type EventCollector struct {
	mu      sync.Mutex
	events  []FileWatchEvent
	batches int
	notify  chan struct{}
}

// NewEventCollector creates a new event collector
func NewEventCollector() *EventCollector {
	return &EventCollector{notify: make(chan struct{}, 1)}
}

// Handle records a batch, use it as the watcher handler
func (ec *EventCollector) Handle(events []FileWatchEvent) {
	ec.mu.Lock()
	ec.events = append(ec.events, events...)
	ec.batches++
	ec.mu.Unlock()

	select {
	case ec.notify <- struct{}{}:
	default:
	}
}

// Events returns a copy of all collected events
func (ec *EventCollector) Events() []FileWatchEvent {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]FileWatchEvent(nil), ec.events...)
}

// Batches returns how many times the handler was called
func (ec *EventCollector) Batches() int {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.batches
}

// WaitForEvent waits until an event for path arrived or timeout passed
func (ec *EventCollector) WaitForEvent(path string, timeout time.Duration) (FileWatchEvent, bool) {
	deadline := time.After(timeout)
	for {
		for _, event := range ec.Events() {
			if event.Path == path {
				return event, true
			}
		}

		select {
		case <-ec.notify:
		case <-deadline:
			return FileWatchEvent{}, false
		}
	}
}

// MockPlugin provides a simple plugin implementation for testing
type MockPlugin struct {
	mu          sync.Mutex
	name        string
	priority    int
	processFunc func(files Files, smith *Smith) error
	callCount   int
}

// NewMockPlugin creates a new mock plugin that succeeds without changes
func NewMockPlugin(name string, priority int) *MockPlugin {
	return &MockPlugin{
		name:     name,
		priority: priority,
		processFunc: func(files Files, smith *Smith) error {
			return nil
		},
	}
}

// WithProcessFunc sets a custom process function
func (mp *MockPlugin) WithProcessFunc(fn func(files Files, smith *Smith) error) *MockPlugin {
	mp.processFunc = fn
	return mp
}

func (mp *MockPlugin) Name() string {
	return mp.name
}

func (mp *MockPlugin) Priority() int {
	return mp.priority
}

func (mp *MockPlugin) Process(files Files, smith *Smith) error {
	mp.mu.Lock()
	mp.callCount++
	mp.mu.Unlock()
	return mp.processFunc(files, smith)
}

// GetCallCount returns how often Process was called
func (mp *MockPlugin) GetCallCount() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.callCount
}
