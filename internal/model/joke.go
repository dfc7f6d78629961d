package model

import (
	"fmt"
	"strings"
)

// JokeMode controls how many cat jokes are attached to a review.
type JokeMode string

const (
	// JokeModeNone never adds jokes.
	JokeModeNone JokeMode = "none"
	// JokeModeDefault adds one joke when the document fails review.
	JokeModeDefault JokeMode = "default"
	// JokeModeChaotic adds one to three jokes regardless of the outcome.
	JokeModeChaotic JokeMode = "chaotic"
)

// JokeModes lists every valid mode.
var JokeModes = []JokeMode{JokeModeNone, JokeModeDefault, JokeModeChaotic}

// ParseJokeMode converts s to a JokeMode. Empty input yields JokeModeDefault.
func ParseJokeMode(s string) (JokeMode, error) {
	switch mode := JokeMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return JokeModeDefault, nil
	case JokeModeNone, JokeModeDefault, JokeModeChaotic:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown joke mode %q: must be one of none, default, chaotic", s)
	}
}

// String returns the mode name.
func (m JokeMode) String() string {
	return string(m)
}

// MaxJokes is the largest JokeSet any mode produces.
const MaxJokes = 3

// JokeSet is the ordered list of jokes selected for a run.
// It holds at most MaxJokes entries and never repeats one.
type JokeSet []string
