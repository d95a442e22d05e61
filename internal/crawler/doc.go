// Package crawler turns a directory of HTML pages into a link graph.
//
// # Architecture
//
// The package is designed around the Corpus type, which lists the pages of
// a directory, parses them in parallel, and assembles a model.Graph from
// the links it finds. Parser handles a single file.
//
// Design decision: We read local files instead of fetching URLs because:
//  1. PageRank needs a closed set of pages; a crawl never is
//  2. The same directory always yields the same graph
//  3. Link targets can be checked against the file listing directly
//
// # Components
//
//   - Corpus: lists, parses and links the pages of a directory
//   - Parser: HTML parser that extracts the title and <a href> targets
//   - BuildGraph: shorthand for NewCorpus(os.DirFS(dir)).Load
//
// # Link rules
//
// Only links between pages of the corpus survive:
//   - javascript:, mailto:, tel:, data: and other schemes are ignored
//   - absolute URLs with a host are ignored
//   - query strings and fragments are stripped
//   - links to files that are not pages of the corpus are dropped
//   - links from a page to itself are dropped
//   - repeated links to the same page count once
//
// # Usage
//
//	corpus, err := crawler.BuildGraph(ctx, "corpus0",
//	    crawler.WithIgnorePatterns([]string{"draft-*"}))
package crawler
