// Package model defines the core data structures used throughout linkrank.
//
// This package contains the following main types:
//   - Graph: the immutable link graph of a corpus
//   - Distribution: a rank value per page
//   - Corpus: a graph plus the metadata gathered while extracting it
//   - RankReport: the result of ranking one corpus
//   - Summary: the per-page view of a RankReport used by report writers
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, the estimators, the pipeline and the report
// writers all need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage. Graph is the exception: it is rebuilt from the corpus,
// never stored.
package model
