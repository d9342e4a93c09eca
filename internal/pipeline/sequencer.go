package pipeline

import "sync/atomic"

// Sequencer issues monotonically increasing request numbers. A consumer that issues several
// requests applies a response only when IsLatest reports its number is still the newest.
type Sequencer struct {
	last atomic.Uint64
}

// Next returns a new sequence number, starting at 1.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// IsLatest reports whether seq is the most recently issued number.
func (s *Sequencer) IsLatest(seq uint64) bool {
	return seq != 0 && seq == s.last.Load()
}
