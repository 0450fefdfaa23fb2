package plugins

import (
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"sitesmith/core"
)

const SearchPluginName = "sitesmith-search"

type SearchOptions struct {
	Pattern string `yaml:"pattern"`
}

type searchDocument struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// SearchPlugin indexes pages into an in-memory bleve index. Every build
// creates a fresh index which replaces the previous one when complete.
type SearchPlugin struct {
	mu      sync.RWMutex
	index   bleve.Index
	pattern string
}

var _ core.Searcher = (*SearchPlugin)(nil)

func NewSearchPlugin(opts SearchOptions) *SearchPlugin {
	if opts.Pattern == "" {
		opts.Pattern = ".html"
	}
	return &SearchPlugin{pattern: opts.Pattern}
}

func (p *SearchPlugin) Name() string {
	return SearchPluginName
}

func (p *SearchPlugin) Priority() int {
	return 1000 // Run last
}

func (p *SearchPlugin) CanProcess(filePath string) bool {
	return strings.HasSuffix(filePath, p.pattern)
}

func (p *SearchPlugin) Process(files core.Files, smith *core.Smith) error {
	debug := smith.Debug(SearchPluginName)

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return core.NewPluginError(SearchPluginName, "", err)
	}

	batch := index.NewBatch()
	for _, filePath := range files.Paths() {
		if !p.CanProcess(filePath) {
			continue
		}

		file := files[filePath]
		if file == nil {
			index.Close()
			return core.NewPluginError(SearchPluginName, filePath, core.ErrMalformedFile)
		}

		doc := searchDocument{
			Title: file.GetString("title"),
			Body:  stripTags(string(file.Contents)),
		}
		if err := batch.Index(filePath, doc); err != nil {
			index.Close()
			return core.NewPluginError(SearchPluginName, filePath, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return core.NewPluginError(SearchPluginName, "", err)
	}
	debug("Indexed %d documents", batch.Size())

	p.mu.Lock()
	old := p.index
	p.index = index
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Search queries the index of the last successful build
func (p *SearchPlugin) Search(query string, limit int) ([]core.SearchHit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.index == nil {
		return []core.SearchHit{}, nil
	}

	request := bleve.NewSearchRequest(bleve.NewQueryStringQuery(query))
	request.Size = limit

	result, err := p.index.Search(request)
	if err != nil {
		return nil, err
	}

	hits := make([]core.SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, core.SearchHit{Path: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return strings.Join(strings.Fields(tagPattern.ReplaceAllString(html, " ")), " ")
}
