// Package main provides the entry point for the newshound CLI.
//
// newshound searches a news site for a phrase within a category, filters the
// results to a window of recent months and writes one report row per
// article, downloading each article image alongside.
//
// Usage:
//
//	newshound run --site-url https://news.example.com --phrase Economy --months 2
//	newshound run --payload work-item.json
//	newshound selectors > selectors.yaml
//
// See --help for all available options.
package main

func main() {
	Execute()
}
