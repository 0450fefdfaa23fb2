package plugins

import (
	"bytes"
	"path"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"sitesmith/core"
)

const MarkdownPluginName = "sitesmith-markdown"

type MarkdownOptions struct {
	Extensions  []string `yaml:"extensions"`
	Style       string   `yaml:"style"`
	LineNumbers bool     `yaml:"lineNumbers"`
}

type MarkdownPlugin struct {
	markdown   goldmark.Markdown
	extensions []string
}

func NewMarkdownPlugin(opts MarkdownOptions) *MarkdownPlugin {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".md", ".markdown"}
	}
	if opts.Style == "" {
		opts.Style = "monokai"
	}

	markdown := goldmark.New(
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle(opts.Style), // or any Chroma style
				highlighting.WithFormatOptions(
					chromahtml.WithLineNumbers(opts.LineNumbers),
				),
			),
		),
	)

	extensions := make([]string, len(opts.Extensions))
	for i, ext := range opts.Extensions {
		extensions[i] = strings.ToLower(ext)
	}
	return &MarkdownPlugin{markdown: markdown, extensions: extensions}
}

func (p *MarkdownPlugin) Name() string {
	return MarkdownPluginName
}

// Markdown must be converted before anything looks at .html files
func (p *MarkdownPlugin) Priority() int {
	return 10
}

func (p *MarkdownPlugin) CanProcess(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	for _, e := range p.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (p *MarkdownPlugin) Process(files core.Files, smith *core.Smith) error {
	debug := smith.Debug(MarkdownPluginName)

	for _, filePath := range files.Paths() {
		if !p.CanProcess(filePath) {
			continue
		}

		file := files[filePath]
		if file == nil {
			return core.NewPluginError(MarkdownPluginName, filePath, core.ErrMalformedFile)
		}

		var html bytes.Buffer
		if err := p.markdown.Convert(file.Contents, &html); err != nil {
			return core.NewPluginError(MarkdownPluginName, filePath, err)
		}
		file.Contents = html.Bytes()

		// "posts/about.md" becomes "posts/about.html"
		htmlPath := strings.TrimSuffix(filePath, path.Ext(filePath)) + ".html"
		files.Rename(filePath, htmlPath)
		debug("Converted %s to %s", filePath, htmlPath)
	}

	return nil
}
