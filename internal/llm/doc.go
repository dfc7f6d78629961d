// Package llm abstracts the vision language model used to review pages.
//
// Model is the capability the rest of the application depends on. Gemini
// implements it on Vertex AI through google.golang.org/genai and records
// token usage with OpenTelemetry; Stub implements it deterministically for
// tests and dry runs.
package llm
