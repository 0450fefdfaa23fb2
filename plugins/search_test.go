package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesmith/core"
)

func TestSearchPluginWithoutIndex(t *testing.T) {
	plugin := NewSearchPlugin(SearchOptions{})

	hits, err := plugin.Search("anything", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchPluginIndexesPages(t *testing.T) {
	plugin := NewSearchPlugin(SearchOptions{})

	gopher := core.NewFile([]byte("<p>The <b>gopher</b> digs tunnels</p>"))
	gopher.Set("title", "Gophers")
	files := core.Files{
		"gopher.html": gopher,
		"cat.html":    core.NewFile([]byte("<p>The cat sleeps</p>")),
		"gopher.txt":  core.NewFile([]byte("gopher gopher gopher")),
	}
	require.NoError(t, plugin.Process(files, nil))

	hits, err := plugin.Search("gopher", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "gopher.html", hits[0].Path)
	assert.Greater(t, hits[0].Score, 0.0)

	hits, err = plugin.Search("title:gophers", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = plugin.Search("digs sleeps", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchPluginReplacesIndex(t *testing.T) {
	plugin := NewSearchPlugin(SearchOptions{})

	require.NoError(t, plugin.Process(core.Files{"old.html": core.NewFile([]byte("ancient"))}, nil))
	require.NoError(t, plugin.Process(core.Files{"new.html": core.NewFile([]byte("fresh"))}, nil))

	hits, err := plugin.Search("ancient", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = plugin.Search("fresh", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchPluginKeepsIndexOnFailure(t *testing.T) {
	plugin := NewSearchPlugin(SearchOptions{})
	require.NoError(t, plugin.Process(core.Files{"a.html": core.NewFile([]byte("kept"))}, nil))

	err := plugin.Process(core.Files{"b.html": nil}, nil)
	assert.ErrorIs(t, err, core.ErrMalformedFile)

	hits, err := plugin.Search("kept", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Hello world !", stripTags("<h1>Hello</h1>\n<p>world <br/>!</p>"))
}

func TestSearchPluginRunsLast(t *testing.T) {
	var _ core.Searcher = NewSearchPlugin(SearchOptions{})
	assert.Greater(t, NewSearchPlugin(SearchOptions{}).Priority(), NewLayoutPlugin(LayoutOptions{}).Priority())
}
