package config

import "path/filepath"

// CorpusConfig holds corpus-specific configuration for a single directory.
// This allows tuning the estimators and the page listing per corpus.
type CorpusConfig struct {
	// Damping overrides the global damping factor for this corpus.
	// If zero, the global value is used.
	Damping float64 `yaml:"damping,omitempty"`

	// Samples overrides the global sample count for this corpus.
	// If zero, the global value is used.
	Samples int `yaml:"samples,omitempty"`

	// Threshold overrides the global convergence threshold for this corpus.
	// If zero, the global value is used.
	Threshold float64 `yaml:"threshold,omitempty"`

	// Extensions are the file extensions treated as pages (default ".html").
	Extensions []string `yaml:"extensions,omitempty"`

	// IgnorePatterns are file name patterns to leave out of the corpus.
	// Patterns use glob syntax (e.g., "draft-*").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// File represents the structure of the .linkrank configuration file.
type File struct {
	// Corpora maps corpus directories to their corpus-specific configurations.
	// Keys are directory paths as given on the command line; they are compared
	// after filepath.Clean, so "corpus0/" and "corpus0" are the same key.
	Corpora map[string]CorpusConfig `yaml:"corpora,omitempty"`

	// Defaults contains default configuration applied to all corpora
	// unless overridden in the corpus-specific configuration.
	Defaults CorpusConfig `yaml:"defaults,omitempty"`
}

// GetCorpusConfig returns the configuration for a specific corpus directory.
// It merges the corpus-specific configuration with defaults.
func (cf *File) GetCorpusConfig(dir string) CorpusConfig {
	result := cf.Defaults

	corpusConfig, ok := cf.Corpora[dir]
	if !ok {
		clean := filepath.Clean(dir)
		for key, c := range cf.Corpora {
			if filepath.Clean(key) == clean {
				corpusConfig, ok = c, true
				break
			}
		}
	}
	if !ok {
		return result
	}

	if corpusConfig.Damping != 0 {
		result.Damping = corpusConfig.Damping
	}
	if corpusConfig.Samples != 0 {
		result.Samples = corpusConfig.Samples
	}
	if corpusConfig.Threshold != 0 {
		result.Threshold = corpusConfig.Threshold
	}
	if len(corpusConfig.Extensions) > 0 {
		result.Extensions = corpusConfig.Extensions
	}
	if len(corpusConfig.IgnorePatterns) > 0 {
		result.IgnorePatterns = corpusConfig.IgnorePatterns
	}

	return result
}
