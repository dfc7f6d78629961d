// Package main provides the entry point for the criticat CLI.
//
// criticat reviews a PDF for formatting and layout problems: every page is
// rendered, inspected by a vision model, and the findings are written to
// criticat_feedback.json, optionally posted to a pull request, and sprinkled
// with cat jokes.
//
// Usage:
//
//	criticat review paper.pdf --project-id my-project
//	criticat serve --transport http
//	criticat history paper.pdf
//
// See --help for all available options.
package main

// main is the entry point for criticat.
func main() {
	Execute()
}
