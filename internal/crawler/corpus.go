package crawler

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/linkrank/internal/model"
)

// DefaultExtension is the file extension of pages when none is configured.
const DefaultExtension = ".html"

// Corpus reads a directory of HTML pages and turns it into a link graph.
// Only the top level of the directory is read; subdirectories are ignored.
//
// Design decision: We read through fs.FS rather than the os package because:
//  1. Tests can use fstest.MapFS instead of temporary directories
//  2. The loader cannot accidentally read outside its root
type Corpus struct {
	// fsys is the directory being read.
	fsys fs.FS

	// source is the human-readable name of fsys, recorded in the result.
	source string

	// extensions are the file extensions treated as pages (with the dot).
	extensions []string

	// ignorePatterns are glob patterns of file names to skip.
	ignorePatterns []string

	// concurrency limits how many files are parsed at once.
	concurrency int

	// maxFileSize limits how many bytes of each file are parsed.
	maxFileSize int64

	// logger for structured logging.
	logger *slog.Logger
}

// CorpusOption configures a Corpus.
type CorpusOption func(*Corpus)

// WithExtensions sets the file extensions treated as pages.
// A missing leading dot is added. Empty input keeps the default.
func WithExtensions(exts []string) CorpusOption {
	return func(c *Corpus) {
		normalized := make([]string, 0, len(exts))
		for _, ext := range exts {
			ext = strings.TrimSpace(ext)
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			normalized = append(normalized, strings.ToLower(ext))
		}
		if len(normalized) > 0 {
			c.extensions = normalized
		}
	}
}

// WithIgnorePatterns sets file name patterns to skip.
// Patterns use glob syntax (e.g., "draft-*", "*.tmp.html").
func WithIgnorePatterns(patterns []string) CorpusOption {
	return func(c *Corpus) {
		c.ignorePatterns = patterns
	}
}

// WithConcurrency sets how many files are parsed in parallel.
func WithConcurrency(n int) CorpusOption {
	return func(c *Corpus) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxFileSize limits how many bytes of each file are parsed.
func WithMaxFileSize(size int64) CorpusOption {
	return func(c *Corpus) {
		if size > 0 {
			c.maxFileSize = size
		}
	}
}

// WithSourceName sets the name recorded as model.Corpus.Source.
func WithSourceName(name string) CorpusOption {
	return func(c *Corpus) {
		c.source = name
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) CorpusOption {
	return func(c *Corpus) {
		c.logger = logger
	}
}

// NewCorpus creates a Corpus reading pages from fsys.
func NewCorpus(fsys fs.FS, opts ...CorpusOption) *Corpus {
	c := &Corpus{
		fsys:        fsys,
		source:      ".",
		extensions:  []string{DefaultExtension},
		concurrency: 4,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildGraph reads the HTML pages directly inside dir and returns the
// corpus with its validated link graph.
func BuildGraph(ctx context.Context, dir string, opts ...CorpusOption) (*model.Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus %s is not a directory", dir)
	}
	opts = append([]CorpusOption{WithSourceName(dir)}, opts...)
	return NewCorpus(os.DirFS(dir), opts...).Load(ctx)
}

// Load lists, parses and links the pages of the corpus.
//
// Every link is reduced to a corpus-relative file name. Links to files that
// are not pages of the corpus, and links from a page to itself, are dropped
// and counted in model.Corpus.DroppedLinks. Repeated links to the same page
// count once.
func (c *Corpus) Load(ctx context.Context) (*model.Corpus, error) {
	pages, skipped, err := c.list()
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s",
			model.ErrEmptyGraph, strings.Join(c.extensions, "/"), c.source)
	}

	c.logger.Debug("corpus listed",
		"source", c.source,
		"pages", len(pages),
		"skipped", len(skipped),
	)

	results, err := c.parseAll(ctx, pages)
	if err != nil {
		return nil, err
	}

	isPage := make(map[string]bool, len(pages))
	for _, p := range pages {
		isPage[p] = true
	}

	links := make(map[model.PageID][]model.PageID, len(pages))
	titles := make(map[model.PageID]string)
	dropped := 0

	for i, page := range pages {
		res := results[i]
		id := model.PageID(page)

		targets := make([]model.PageID, 0, len(res.Links))
		for _, target := range res.Links {
			if target == page || !isPage[target] {
				dropped++
				continue
			}
			targets = append(targets, model.PageID(target))
		}
		links[id] = targets

		if res.Title != "" {
			titles[id] = res.Title
		}
	}

	g, err := model.NewGraph(links)
	if err != nil {
		return nil, fmt.Errorf("failed to build link graph: %w", err)
	}

	c.logger.Info("corpus loaded",
		"source", c.source,
		"pages", g.Len(),
		"links", g.LinkCount(),
		"dangling", len(g.Dangling()),
		"dropped_links", dropped,
	)

	return &model.Corpus{
		Source:       c.source,
		Graph:        g,
		Titles:       titles,
		Skipped:      skipped,
		DroppedLinks: dropped,
	}, nil
}

// list returns the sorted page files and the sorted ignored files.
func (c *Corpus) list() ([]string, []string, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read corpus %s: %w", c.source, err)
	}

	var pages, skipped []string
	for _, e := range entries {
		if e.IsDir() || !c.hasPageExtension(e.Name()) {
			continue
		}
		if c.isIgnored(e.Name()) {
			skipped = append(skipped, e.Name())
			continue
		}
		pages = append(pages, e.Name())
	}
	slices.Sort(pages)
	slices.Sort(skipped)
	return pages, skipped, nil
}

// parseAll parses the given files concurrently.
// The result slice is indexed like pages.
func (c *Corpus) parseAll(ctx context.Context, pages []string) ([]*ParseResult, error) {
	results := make([]*ParseResult, len(pages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, page := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.parseFile(page)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseFile parses a single page.
func (c *Corpus) parseFile(page string) (*ParseResult, error) {
	f, err := c.fsys.Open(page)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", page, err)
	}
	defer func() {
		_ = f.Close()
	}()

	res, err := NewParser(page).Parse(io.LimitReader(f, c.maxFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", page, err)
	}

	c.logger.Debug("page parsed",
		"page", page,
		"links", len(res.Links),
		"external", res.External,
	)
	return res, nil
}

func (c *Corpus) hasPageExtension(name string) bool {
	return slices.Contains(c.extensions, strings.ToLower(path.Ext(name)))
}

func (c *Corpus) isIgnored(name string) bool {
	for _, pattern := range c.ignorePatterns {
		if matchPattern(pattern, name) {
			return true
		}
	}
	return false
}

// matchPattern checks if a file name matches a glob pattern.
//
// Examples:
//   - "draft-*" matches "draft-1.html"
//   - "*.tmp.html" matches "index.tmp.html"
//   - "page?.html" matches "page1.html"
//
// Invalid patterns never match.
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
