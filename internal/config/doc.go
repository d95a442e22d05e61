// Package config provides configuration structures and utilities for linkrank.
// It defines the estimator parameters, the .linkrank file with per-corpus
// overrides, and report and storage preferences.
package config
