package model

import "time"

// ReviewMetadata identifies the reviewed document and the run that produced
// a report.
type ReviewMetadata struct {
	// Document is the identifier of the reviewed PDF, usually its path.
	Document string `json:"document"`
	// Digest is the hex SHA-256 of the PDF bytes.
	Digest string `json:"digest,omitempty"`
	// PageCount is the number of rendered pages.
	PageCount int `json:"page_count"`
	// Model is the remote model that performed the analysis.
	Model string `json:"model,omitempty"`
	// JokeMode is the mode the jokes were selected with.
	JokeMode JokeMode `json:"joke_mode"`
	// GeneratedAt is when the report was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// ReviewReport is the final artifact of one pipeline run. It is built once
// and not modified afterwards.
type ReviewReport struct {
	Verdict  ReviewVerdict  `json:"verdict"`
	Jokes    JokeSet        `json:"jokes"`
	Metadata ReviewMetadata `json:"metadata"`
}
