// Package server exposes the review pipeline over the Model Context
// Protocol.
//
// The "review" tool takes a PDF path and optional project, location and joke
// mode overrides, and returns the same JSON document the CLI writes to
// criticat_feedback.json. The criticat://health and criticat://rubric
// resources report service status and the checked categories. The server
// runs over stdio, SSE or streamable HTTP.
package server
