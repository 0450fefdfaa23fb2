package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSmithDefaults(t *testing.T) {
	smith := New("/site")

	assert.Equal(t, DefaultSource, smith.Source)
	assert.Equal(t, DefaultDestination, smith.Destination)
	assert.True(t, smith.Clean)
	assert.NotNil(t, smith.Metadata)
	assert.Empty(t, smith.Plugins().Plugins())

	assert.Equal(t, filepath.Join("/site", "src"), smith.SourcePath())
	assert.Equal(t, filepath.Join("/site", "build"), smith.DestinationPath())
	assert.Equal(t, filepath.Join("/site", "layouts", "a.html"), smith.Path("layouts", "a.html"))

	smith.Destination = "/tmp/out"
	assert.Equal(t, "/tmp/out", smith.DestinationPath())
}

func TestSmithBuild(t *testing.T) {
	site := NewTestSite(t).
		WithSource("index.html", "<h1>home</h1>").
		WithSource("about/team.txt", "team")

	site.Smith.Use(PluginFunc("upper", func(files Files, smith *Smith) error {
		for _, p := range files.Paths() {
			files[p].Contents = []byte(strings.ToUpper(string(files[p].Contents)))
		}
		return nil
	}))

	files, err := site.Smith.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2)

	assert.Equal(t, "<H1>HOME</H1>", site.ReadOutput("index.html"))
	assert.Equal(t, "TEAM", site.ReadOutput("about/team.txt"))

	assert.Equal(t, int64(1), site.Metrics.BuildsTotal.Get())
	assert.Equal(t, int64(0), site.Metrics.BuildFailures.Get())
	assert.Equal(t, int64(2), site.Metrics.FilesTotal.Get())
	assert.NotZero(t, site.Metrics.LastBuildUnix.Get())
}

func TestSmithBuildCleansDestination(t *testing.T) {
	site := NewTestSite(t).WithSource("index.html", "home")

	stale := site.Smith.Path(DefaultDestination, "stale.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	site.Smith.Clean = false
	_, err := site.Smith.Build(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, stale)

	site.Smith.Clean = true
	_, err = site.Smith.Build(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, site.Smith.Path(DefaultDestination, "index.html"))
}

func TestSmithBuildFailure(t *testing.T) {
	site := NewTestSite(t).WithSource("index.html", "home")
	site.Smith.Use(PluginFunc("broken", func(files Files, smith *Smith) error {
		return errors.New("cannot build")
	}))

	_, err := site.Smith.Build(context.Background())
	require.Error(t, err)
	assert.Equal(t, "broken error: cannot build", err.Error())

	assert.NoDirExists(t, site.Smith.DestinationPath())
	assert.Equal(t, int64(1), site.Metrics.BuildFailures.Get())
	assert.Equal(t, int64(1), site.Metrics.PluginErrors.Get())
}

func TestSmithProcessDoesNotWrite(t *testing.T) {
	site := NewTestSite(t).WithSource("index.html", "home")

	files, err := site.Smith.Process(context.Background())
	require.NoError(t, err)
	assert.Contains(t, files, "index.html")
	assert.NoDirExists(t, site.Smith.DestinationPath())
}

func TestSmithWriteRejectsSiteDirectory(t *testing.T) {
	tests := []struct {
		name        string
		destination string
	}{
		{"site root", "."},
		{"source directory", DefaultSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := NewTestSite(t)
			site.Smith.Destination = tt.destination

			err := site.Smith.Write(Files{"a.html": NewFile(nil)})
			assert.ErrorIs(t, err, ErrDestinationIsRoot)
		})
	}
}

func TestSmithMissingSource(t *testing.T) {
	smith := New(t.TempDir())
	smith.Metrics = NewMetrics()

	_, err := smith.Build(context.Background())
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Equal(t, int64(1), smith.Metrics.BuildFailures.Get())
}

func TestSmithDebug(t *testing.T) {
	site := NewTestSite(t)

	site.Smith.DebugPatterns = DebugPatterns{"sitesmith-*"}
	site.Smith.Debug("sitesmith-marker")("hello %s", "world")
	site.Smith.Debug("other")("hidden")

	out := site.Log.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, `"namespace":"sitesmith-marker"`)
	assert.NotContains(t, out, "hidden")
}

func TestSmithDebugIgnoresLogLevel(t *testing.T) {
	site := NewTestSite(t)
	site.Smith.Logger.SetLevel(LogLevelError)

	site.Smith.Debug("anything")("still printed")
	assert.Contains(t, site.Log.String(), "still printed")
}

func TestNilSmithDebugIsNoop(t *testing.T) {
	var smith *Smith
	assert.NotPanics(t, func() {
		smith.Debug("sitesmith-marker")("nothing %d", 1)
	})
}
