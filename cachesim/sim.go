package cachesim

import (
	"fmt"
	"io"
	"math/rand"
)

// Simulator replays a trace through a cache, writing command output to Out.
type Simulator struct {
	trace   *Trace
	cache   *Cache
	out     io.Writer
	verbose bool
}

// NewSimulator builds the cache described by the trace header.
func NewSimulator(trace *Trace, out io.Writer, rng *rand.Rand) (*Simulator, error) {
	cache, err := New(trace.Cache, rng)
	if err != nil {
		return nil, err
	}

	return &Simulator{trace: trace, cache: cache, out: out}, nil
}

// Cache returns the simulated cache.
func (s *Simulator) Cache() *Cache {
	return s.cache
}

// Run executes every command in order.
func (s *Simulator) Run() error {
	for _, cmd := range s.trace.Commands {
		if err := s.exec(cmd); err != nil {
			return fmt.Errorf("line %d: %w", cmd.Line, err)
		}
	}

	return nil
}

func (s *Simulator) exec(cmd Command) error {
	switch cmd.Op {
	case OpToggleVerbose:
		s.verbose = !s.verbose

	case OpLoad:
		hit := s.cache.Load(cmd.Address)
		if s.verbose {
			fmt.Fprintln(s.out, s.cache.describe("read", cmd.Address, hit))
		}

	case OpStore:
		hit := s.cache.Store(cmd.Address)
		if s.verbose {
			fmt.Fprintln(s.out, s.cache.describe("write", cmd.Address, hit))
		}

	case OpPrint:
		return s.cache.WriteContents(s.out)

	case OpHitRate:
		rate, ok := s.cache.Stats().HitRate()
		if !ok {
			return fmt.Errorf("hit rate requested before any access")
		}

		_, err := fmt.Fprintf(s.out, "\nHit rate: %f%%\n", rate)

		return err
	}

	return nil
}
