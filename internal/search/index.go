package search

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"truthx/internal/logging"
	"truthx/internal/textutil"
)

// DefaultTopK is the number of results returned when k is not positive.
const DefaultTopK = 3

const schemaURL = "articles.schema.json"

//go:embed articles.schema.json
var articlesSchema []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(articlesSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
})

type entry struct {
	article     Article
	fingerprint *textutil.Fingerprint
}

type snapshot struct {
	entries []entry
	idf     map[string]float64
}

// Index is an in-memory article index. It is safe for concurrent use; Reload
// swaps the snapshot atomically with respect to Search.
type Index struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	snap snapshot
}

// NewIndex loads path. A missing file yields an empty index; other load
// failures are returned alongside the (empty) index.
func NewIndex(path string, logger *slog.Logger) (*Index, error) {
	idx := &Index{path: path, logger: logging.NewComponentLogger(logger, "search")}
	return idx, idx.Reload()
}

// Len returns the number of indexed articles.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.snap.entries)
}

// Path returns the articles file backing the index.
func (i *Index) Path() string {
	return i.path
}

// Reload rebuilds the index from disk. On failure the current snapshot is kept.
func (i *Index) Reload() error {
	articles, err := LoadArticles(i.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(i.logger, "articles file not found; related-article search disabled", "articles_missing",
			logging.String("path", i.path),
			logging.String(logging.FieldErrorHint, "set paths.articles_path to a JSON array of articles"),
			logging.String(logging.FieldImpact, "reports carry no related articles"),
		)
		i.swap(snapshot{})
		return nil
	}
	if err != nil {
		return err
	}
	i.swap(build(articles))
	i.logger.Info("article index loaded",
		logging.String(logging.FieldEventType, "articles_loaded"),
		logging.String("path", i.path),
		logging.Int("articles", len(articles)),
	)
	return nil
}

func (i *Index) swap(s snapshot) {
	i.mu.Lock()
	i.snap = s
	i.mu.Unlock()
}

// LoadArticles reads and validates an articles file.
func LoadArticles(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseArticles(data)
}

// ParseArticles validates data against the articles schema and decodes it.
func ParseArticles(data []byte) ([]Article, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile articles schema: %w", err)
	}
	var instance any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&instance); err != nil {
		return nil, fmt.Errorf("parse articles: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("validate articles: %w", err)
	}
	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}
	return articles, nil
}

func build(articles []Article) snapshot {
	corpus := textutil.NewCorpus()
	entries := make([]entry, 0, len(articles))
	for _, article := range articles {
		fp := textutil.NewFingerprint(article.document(StripHTML(article.Content)))
		corpus.Add(fp)
		entries = append(entries, entry{article: article, fingerprint: fp})
	}
	idf := corpus.IDF()
	for n := range entries {
		entries[n].fingerprint = entries[n].fingerprint.WithIDF(idf)
	}
	return snapshot{entries: entries, idf: idf}
}

// StripHTML reduces markup to its text content with collapsed whitespace.
// Plain text passes through unchanged apart from whitespace.
func StripHTML(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.Join(strings.Fields(content), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Search returns up to k articles most similar to query, best first. Articles
// with no overlap are omitted. k <= 0 selects DefaultTopK.
func (i *Index) Search(query string, k int) []Result {
	if k <= 0 {
		k = DefaultTopK
	}
	i.mu.RLock()
	snap := i.snap
	i.mu.RUnlock()

	results := []Result{}
	if len(snap.entries) == 0 {
		return results
	}
	q := textutil.NewFingerprint(query).WithIDF(snap.idf)
	if q == nil {
		return results
	}
	for _, e := range snap.entries {
		score := textutil.CosineSimilarity(q, e.fingerprint)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Article: e.article, SimilarityScore: math.Round(score*10000) / 10000})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.SimilarityScore > b.SimilarityScore:
			return -1
		case a.SimilarityScore < b.SimilarityScore:
			return 1
		default:
			return 0
		}
	})
	return results[:min(k, len(results))]
}
