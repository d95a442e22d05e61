package model

// Corpus is the output of the extraction step: the link graph of a
// directory of pages plus the metadata collected while parsing it.
type Corpus struct {
	// Source is the directory (or other location) the corpus was read from.
	Source string

	// Graph is the validated link graph.
	Graph *Graph

	// Titles maps pages to the text of their <title> element.
	// Pages without a title are absent.
	Titles map[PageID]string

	// Skipped lists the files that matched an ignore pattern.
	Skipped []string

	// DroppedLinks counts links that were discarded because they pointed
	// outside the corpus or back at their own page.
	DroppedLinks int
}
