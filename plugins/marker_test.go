package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitesmith/core"
)

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}

func enumPtr(e EnumOption) *EnumOption {
	return &e
}

func TestNormalizeMarkerOptions(t *testing.T) {
	tests := []struct {
		name string
		opts *MarkerOptions
		want ResolvedMarkerOptions
	}{
		{
			name: "nil",
			opts: nil,
			want: ResolvedMarkerOptions{Key: "key", OptionalFlag: false, EnumOption: Option1},
		},
		{
			name: "empty",
			opts: &MarkerOptions{},
			want: ResolvedMarkerOptions{Key: "key", OptionalFlag: false, EnumOption: Option1},
		},
		{
			name: "partial",
			opts: &MarkerOptions{OptionalFlag: boolPtr(true)},
			want: ResolvedMarkerOptions{Key: "key", OptionalFlag: true, EnumOption: Option1},
		},
		{
			name: "all fields",
			opts: &MarkerOptions{Key: strPtr("k2"), OptionalFlag: boolPtr(true), EnumOption: enumPtr(Option3)},
			want: ResolvedMarkerOptions{Key: "k2", OptionalFlag: true, EnumOption: Option3},
		},
		{
			name: "zero values supplied",
			opts: &MarkerOptions{Key: strPtr(""), OptionalFlag: boolPtr(false)},
			want: ResolvedMarkerOptions{Key: "", OptionalFlag: false, EnumOption: Option1},
		},
		{
			name: "unknown enum passes through",
			opts: &MarkerOptions{EnumOption: enumPtr("option9")},
			want: ResolvedMarkerOptions{Key: "key", OptionalFlag: false, EnumOption: "option9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMarkerOptions(tt.opts))
		})
	}
}

func TestMarkerPluginMarksHTMLFiles(t *testing.T) {
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})
	files := core.Files{
		"a.html": core.NewFile(nil),
		"b.txt":  core.NewFile(nil),
	}

	require.NoError(t, plugin.Process(files, nil))

	assert.Equal(t, true, files["a.html"].Metadata[MarkerField])
	assert.Empty(t, files["b.txt"].Metadata)
}

func TestMarkerPluginDefaultsLeaveFilesUnchanged(t *testing.T) {
	plugin := NewMarkerPlugin(nil)
	files := core.Files{"a.html": core.NewFile([]byte("<p>x</p>"))}

	require.NoError(t, plugin.Process(files, nil))

	assert.Empty(t, files["a.html"].Metadata)
	assert.Equal(t, "<p>x</p>", string(files["a.html"].Contents))
}

func TestMarkerPluginMatchesExactSuffix(t *testing.T) {
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})

	paths := map[string]bool{
		"index.html":       true,
		"nested/deep.html": true,
		"page.HTML":        false,
		"page.htm":         false,
		"page.html.bak":    false,
		"html":             false,
		"style.css":        false,
	}

	files := core.Files{}
	for path := range paths {
		files[path] = core.NewFile(nil)
	}

	require.NoError(t, plugin.Process(files, nil))

	for path, marked := range paths {
		_, ok := files[path].Get(MarkerField)
		assert.Equal(t, marked, ok, path)
	}
}

func TestMarkerPluginKeepsExistingMetadata(t *testing.T) {
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})
	file := &core.File{Metadata: nil}
	other := core.NewFile(nil)
	other.Set("title", "Other")
	files := core.Files{"a.html": file, "b.html": other}

	require.NoError(t, plugin.Process(files, nil))

	assert.Equal(t, true, file.Metadata[MarkerField])
	assert.Equal(t, "Other", other.GetString("title"))
	assert.Equal(t, true, other.Metadata[MarkerField])
}

func TestMarkerPluginMalformedEntry(t *testing.T) {
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})
	files := core.Files{
		"a.html": core.NewFile(nil),
		"b.html": nil,
		"c.html": core.NewFile(nil),
	}

	err := plugin.Process(files, nil)
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(err.Error(), "sitesmith-marker error: "), err.Error())
	assert.Contains(t, err.Error(), core.ErrMalformedFile.Error())
	assert.ErrorIs(t, err, core.ErrMalformedFile)

	assert.Equal(t, "sitesmith-marker error: malformed file entry", err.Error())

	var perr *core.PluginError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, MarkerPluginName, perr.Plugin)
	assert.Empty(t, perr.File)

	// Files before the failure keep their mark, later ones are not visited
	assert.Equal(t, true, files["a.html"].Metadata[MarkerField])
	assert.NotContains(t, files["c.html"].Metadata, MarkerField)
}

func TestMarkerPluginMalformedEntryDebugOutput(t *testing.T) {
	site := core.NewTestSite(t)
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})

	err := plugin.Process(core.Files{"a.html": nil}, site.Smith)
	require.Error(t, err)
	assert.Contains(t, site.Log.String(), "Failed on file: a.html")
}

// A plugin panicking inside the chain still yields exactly one error
func TestMarkerPluginPanicInChain(t *testing.T) {
	site := core.NewTestSite(t).WithSource("a.html", "<p>a</p>")
	site.Smith.Use(NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)}))
	site.Smith.Use(core.PluginFunc("after", func(files core.Files, smith *core.Smith) error {
		panic("kaboom")
	}))

	files, err := site.Smith.Process(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPluginFailed)
	assert.True(t, strings.HasPrefix(err.Error(), "after error: "), err.Error())
	assert.Equal(t, true, files["a.html"].Metadata[MarkerField])
}

func TestMarkerPluginIgnoresMalformedNonHTML(t *testing.T) {
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})
	files := core.Files{"a.html": core.NewFile(nil), "b.txt": nil}

	assert.NoError(t, plugin.Process(files, nil))
}

func TestMarkerPluginDebugOutput(t *testing.T) {
	site := core.NewTestSite(t)
	plugin := NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)})

	require.NoError(t, plugin.Process(core.Files{"a.html": core.NewFile(nil)}, site.Smith))

	out := site.Log.String()
	assert.Contains(t, out, "Running with options:")
	assert.Contains(t, out, "OptionalFlag:true")
	assert.Contains(t, out, "Processed file: a.html")
	assert.Contains(t, out, MarkerPluginName)
}

func TestMarkerPluginInPipeline(t *testing.T) {
	site := core.NewTestSite(t).
		WithSource("a.html", "<p>a</p>").
		WithSource("b.txt", "b")
	site.Smith.Use(NewMarkerPlugin(&MarkerOptions{OptionalFlag: boolPtr(true)}))

	files, err := site.Smith.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, true, files["a.html"].Metadata[MarkerField])
	assert.NotContains(t, files["b.txt"].Metadata, MarkerField)
}

func TestMarkerPluginIdentity(t *testing.T) {
	plugin := NewMarkerPlugin(nil)

	assert.Equal(t, "sitesmith-marker", plugin.Name())
	assert.Equal(t, core.DefaultPriority, plugin.Priority())
	assert.Equal(t, DefaultMarkerOptions(), plugin.Options())

	var _ core.Plugin = plugin
}
