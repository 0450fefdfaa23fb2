package core

import (
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Counter represents a monotonically increasing counter
type Counter struct {
	value int64
	name  string
	help  string
}

// NewCounter creates a new counter
func NewCounter(name, help string) *Counter {
	return &Counter{
		name: name,
		help: help,
	}
}

// Inc increments the counter by 1
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter
func (c *Counter) Add(value int64) {
	atomic.AddInt64(&c.value, value)
}

// Get returns the current counter value
func (c *Counter) Get() int64 {
	return atomic.LoadInt64(&c.value)
}

// Gauge represents a value that can go up and down
type Gauge struct {
	value int64
	name  string
	help  string
}

// NewGauge creates a new gauge
func NewGauge(name, help string) *Gauge {
	return &Gauge{
		name: name,
		help: help,
	}
}

// Set sets the gauge to the given value
func (g *Gauge) Set(value int64) {
	atomic.StoreInt64(&g.value, value)
}

// Get returns the current gauge value
func (g *Gauge) Get() int64 {
	return atomic.LoadInt64(&g.value)
}

// Timing tracks count, sum and maximum of observed durations
type Timing struct {
	mu    sync.RWMutex
	sum   time.Duration
	max   time.Duration
	last  time.Duration
	count int64
	name  string
	help  string
}

// NewTiming creates a new timing
func NewTiming(name, help string) *Timing {
	return &Timing{
		name: name,
		help: help,
	}
}

// Observe records a new duration
func (t *Timing) Observe(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sum += d
	t.last = d
	t.count++
	if d > t.max {
		t.max = d
	}
}

// Count returns the number of observations
func (t *Timing) Count() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

func (t *Timing) snapshot() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return map[string]interface{}{
		"count":   t.count,
		"sum_ms":  float64(t.sum.Microseconds()) / 1e3,
		"max_ms":  float64(t.max.Microseconds()) / 1e3,
		"last_ms": float64(t.last.Microseconds()) / 1e3,
	}
}

// Metrics collects build and preview server measurements
type Metrics struct {
	// Build metrics
	BuildsTotal   *Counter
	BuildFailures *Counter
	FilesTotal    *Gauge
	BuildDuration *Timing
	LastBuildUnix *Gauge

	// Plugin metrics
	PluginDuration *Timing
	PluginErrors   *Counter

	// Watcher metrics
	WatcherEvents *Counter

	// HTTP metrics
	HTTPRequestsTotal *Counter
	HTTPNotFound      *Counter

	startTime time.Time
}

// NewMetrics creates a new, zeroed metrics set
func NewMetrics() *Metrics {
	return &Metrics{
		BuildsTotal:   NewCounter("builds_total", "Total number of builds"),
		BuildFailures: NewCounter("build_failures_total", "Total number of failed builds"),
		FilesTotal:    NewGauge("files_total", "Number of files in the last build"),
		BuildDuration: NewTiming("build_duration", "Build duration"),
		LastBuildUnix: NewGauge("last_build_unix", "Time of the last successful build"),

		PluginDuration: NewTiming("plugin_duration", "Plugin execution duration"),
		PluginErrors:   NewCounter("plugin_errors_total", "Total number of plugin errors"),

		WatcherEvents: NewCounter("watcher_events_total", "Total number of file watcher events"),

		HTTPRequestsTotal: NewCounter("http_requests_total", "Total number of HTTP requests"),
		HTTPNotFound:      NewCounter("http_not_found_total", "Total number of 404 responses"),

		startTime: time.Now(),
	}
}

// Snapshot returns all current metric values
func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"builds_total":         m.BuildsTotal.Get(),
		"build_failures_total": m.BuildFailures.Get(),
		"files_total":          m.FilesTotal.Get(),
		"build_duration":       m.BuildDuration.snapshot(),
		"last_build_unix":      m.LastBuildUnix.Get(),
		"plugin_duration":      m.PluginDuration.snapshot(),
		"plugin_errors_total":  m.PluginErrors.Get(),
		"watcher_events_total": m.WatcherEvents.Get(),
		"http_requests_total":  m.HTTPRequestsTotal.Get(),
		"http_not_found_total": m.HTTPNotFound.Get(),
		"go_routines_count":    runtime.NumGoroutine(),
		"uptime_seconds":       int64(time.Since(m.startTime).Seconds()),
	}
}

// Middleware creates a Gin middleware for collecting HTTP metrics
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics for the metrics endpoint itself
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		c.Next()

		m.HTTPRequestsTotal.Inc()
		if c.Writer.Status() == http.StatusNotFound {
			m.HTTPNotFound.Inc()
		}
	}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"timestamp": time.Now(),
			"metrics":   m.Snapshot(),
		})
	}
}

// Global metrics instance, used when a Smith has none of its own
var GlobalMetrics = NewMetrics()
