// Package analyzer asks a vision model to review rendered pages.
//
// Every request carries the page images, a fixed rubric of formatting
// criteria and the JSON schema the answer must follow. The schema is
// generated from the response types with github.com/invopop/jsonschema so
// the prompt and the decoder cannot drift apart.
//
// A batch of pages is one model call. The decoded response is split back
// into one PageFinding per page, keyed by page index.
package analyzer
