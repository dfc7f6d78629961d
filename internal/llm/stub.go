package llm

import (
	"context"
	"sync"
)

// Call records one invocation of a Stub.
type Call struct {
	Prompt Prompt
	Images []Image
}

// Stub is a deterministic Model for tests and offline runs. Every call is
// answered by Respond and recorded.
type Stub struct {
	// Respond computes the response for a call. It may block on ctx.
	Respond func(ctx context.Context, call Call) (string, error)
	// ModelName is returned by Name; defaults to "stub".
	ModelName string

	mu    sync.Mutex
	calls []Call
}

// NewStaticStub returns a Stub that always answers with response.
func NewStaticStub(response string) *Stub {
	return &Stub{
		Respond: func(context.Context, Call) (string, error) {
			return response, nil
		},
	}
}

// Generate records the call and delegates to Respond.
func (s *Stub) Generate(ctx context.Context, prompt Prompt, images []Image) (string, error) {
	call := Call{Prompt: prompt, Images: images}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Respond == nil {
		return "", ErrEmptyResponse
	}
	return s.Respond(ctx, call)
}

// Name returns ModelName or "stub".
func (s *Stub) Name() string {
	if s.ModelName == "" {
		return "stub"
	}
	return s.ModelName
}

// Calls returns a copy of the recorded calls.
func (s *Stub) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}
