// Package main provides the entry point for the linkrank CLI.
//
// linkrank ranks the pages of a directory of HTML files by importance.
// It estimates PageRank twice, once by simulating a random surfer and once
// by iterating the PageRank equation, and reports both.
//
// Usage:
//
//	linkrank rank <corpus-dir>
//	linkrank history <corpus-dir>
//
// See --help for all available options.
package main

// main is the entry point for linkrank.
func main() {
	Execute()
}
