package core

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Preview health states
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusDegraded  = "degraded"
	HealthStatusUnhealthy = "unhealthy"
)

// SearchHit is a single search result
type SearchHit struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Searcher answers full text queries over the last build
type Searcher interface {
	Search(query string, limit int) ([]SearchHit, error)
}

// PreviewServer serves the last successful build from memory
type PreviewServer struct {
	mu        sync.RWMutex
	files     Files
	routes    map[string]string // route -> file path
	searcher  Searcher
	lastBuild time.Time
	lastErr   error

	engine  *gin.Engine
	metrics *Metrics
}

// NewServer creates a preview server with health, metrics and search endpoints
func NewServer(metrics *Metrics) *PreviewServer {
	if metrics == nil {
		metrics = GlobalMetrics
	}

	s := &PreviewServer{
		routes:  make(map[string]string),
		metrics: metrics,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(metrics.Middleware())
	engine.Use(previewHeaders())
	engine.GET("/healthz", s.healthHandler)
	engine.GET("/metrics", metrics.Handler())
	engine.GET("/search", s.searchHandler)
	engine.NoRoute(s.fileHandler)
	s.engine = engine

	return s
}

// previewHeaders disables caching so a reload always shows the latest build
func previewHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent content sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		c.Header("Cache-Control", "no-store")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// Handler returns the http.Handler of the server
func (s *PreviewServer) Handler() http.Handler {
	return s.engine
}

// SetSearcher installs the search backend used by /search
func (s *PreviewServer) SetSearcher(searcher Searcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searcher = searcher
}

// Update replaces the served files with a new build
func (s *PreviewServer) Update(files Files) {
	routes := make(map[string]string, len(files))
	for _, p := range files.Paths() {
		for _, route := range RoutesFor(p) {
			// First path wins, so "/docs" keeps pointing at docs/index.html
			if _, exists := routes[route]; !exists {
				routes[route] = p
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
	s.routes = routes
	s.lastBuild = time.Now()
	s.lastErr = nil
}

// SetBuildError records a failed rebuild. The previous build keeps being served.
func (s *PreviewServer) SetBuildError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// RouteExists checks if a route is served
func (s *PreviewServer) RouteExists(route string) bool {
	normalized, err := normalizeRoute(route)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.routes[normalized]
	return exists
}

// GetRouteCount returns the number of served routes
func (s *PreviewServer) GetRouteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routes)
}

// RoutesFor returns the URLs of a file path. An html file is reachable with
// and without extension, an index page also by its directory.
func RoutesFor(filePath string) []string {
	route, err := normalizeRoute(filePath)
	if err != nil {
		return nil
	}

	routes := []string{route}
	ext := path.Ext(route)
	if ext != ".html" && ext != ".htm" {
		return routes
	}

	routes = append(routes, strings.TrimSuffix(route, ext))
	if base := path.Base(route); base == "index.html" || base == "index.htm" {
		routes = append(routes, path.Dir(route))
	}
	return routes
}

// ensures the route starts with / and has no double slashes
func normalizeRoute(route string) (string, error) {
	if route == "" {
		return "", errors.New("route cannot be empty")
	}

	route = path.Clean("/" + strings.TrimPrefix(route, "/"))
	if !strings.HasPrefix(route, "/") {
		return "", fmt.Errorf("route must start with '/': %s", route)
	}

	return route, nil
}

func (s *PreviewServer) fileHandler(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
		return
	}

	route, err := normalizeRoute(c.Request.URL.Path)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	filePath, ok := s.routes[route]
	var file *File
	if ok {
		file = s.files[filePath]
	}
	s.mu.RUnlock()

	if file == nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	mimeType := file.GetString("mime-type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(filePath))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	c.Data(http.StatusOK, mimeType, file.Contents)
}

func (s *PreviewServer) searchHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit := 10
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	s.mu.RLock()
	searcher := s.searcher
	s.mu.RUnlock()

	if searcher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "search is not enabled"})
		return
	}

	hits, err := searcher.Search(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query": query,
		"hits":  hits,
	})
}

func (s *PreviewServer) healthHandler(c *gin.Context) {
	s.mu.RLock()
	lastBuild := s.lastBuild
	lastErr := s.lastErr
	s.mu.RUnlock()

	response := gin.H{
		"timestamp": time.Now(),
	}

	var status int
	switch {
	case lastBuild.IsZero():
		response["status"] = HealthStatusUnhealthy
		status = http.StatusServiceUnavailable
	case lastErr != nil:
		response["status"] = HealthStatusDegraded
		status = http.StatusOK
	default:
		response["status"] = HealthStatusHealthy
		status = http.StatusOK
	}

	if !lastBuild.IsZero() {
		response["last_build"] = lastBuild
	}
	if lastErr != nil {
		response["error"] = lastErr.Error()
	}

	c.JSON(status, response)
}
