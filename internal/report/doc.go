// Package report builds ReviewReports and renders them.
//
// Build assembles a report from its parts. Marshal and Parse convert it to
// and from the JSON feedback file. The Writer implementations render a
// report as JSON, as a Markdown pull request comment (via
// github.com/nao1215/markdown) or as plain text for terminals.
package report
