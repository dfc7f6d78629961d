// Package joke picks cat jokes to attach to a review.
package joke

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/FarDust/criticat/internal/model"
)

// Selector chooses jokes from a pool using an injected random source.
// It is safe for concurrent use.
type Selector struct {
	mu   sync.Mutex
	rng  *rand.Rand
	pool []string
}

// Option configures a Selector.
type Option func(*Selector)

// WithPool replaces the joke pool. Duplicate entries are removed.
func WithPool(pool []string) Option {
	return func(s *Selector) {
		seen := make(map[string]bool, len(pool))
		s.pool = s.pool[:0:0]
		for _, j := range pool {
			if j != "" && !seen[j] {
				seen[j] = true
				s.pool = append(s.pool, j)
			}
		}
	}
}

// New creates a Selector drawing from rng. A nil rng uses a randomly
// seeded source.
func New(rng *rand.Rand, opts ...Option) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s := &Selector{rng: rng, pool: slices.Clone(DefaultPool)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSeeded creates a Selector whose choices are fully determined by seed.
func NewSeeded(seed uint64, opts ...Option) *Selector {
	return New(rand.New(rand.NewPCG(seed, seed)), opts...)
}

// Count returns how many jokes mode calls for given verdict.
//
//	none:    always 0
//	default: 0 when the document passes, 1 when it fails
//	chaotic: uniform over {1, 2, 3}, regardless of the verdict
func (s *Selector) Count(verdict model.ReviewVerdict, mode model.JokeMode) int {
	switch mode {
	case model.JokeModeDefault:
		if verdict.Pass {
			return 0
		}
		return 1
	case model.JokeModeChaotic:
		s.mu.Lock()
		defer s.mu.Unlock()
		return 1 + s.rng.IntN(model.MaxJokes)
	default:
		return 0
	}
}

// Select returns the jokes for verdict under mode. Jokes never repeat within
// a set; when the pool is smaller than the requested count every joke is
// returned once.
func (s *Selector) Select(verdict model.ReviewVerdict, mode model.JokeMode) model.JokeSet {
	n := s.Count(verdict, mode)
	n = min(n, len(s.pool))
	if n <= 0 {
		return model.JokeSet{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Partial Fisher-Yates over the pool indices.
	idx := make([]int, len(s.pool))
	for i := range idx {
		idx[i] = i
	}
	set := make(model.JokeSet, 0, n)
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		set = append(set, s.pool[idx[i]])
	}
	return set
}
