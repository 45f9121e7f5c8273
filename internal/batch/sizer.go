package batch

import "sync"

// AdaptiveSizer tunes the chunk size of operations without a fixed provider
// maximum. It grows by one on success and shrinks by a quarter (at least two)
// on failure, staying within [floor, ceiling].
type AdaptiveSizer struct {
	ceiling int
	floor   int

	mu      sync.Mutex
	current int
}

// NewAdaptiveSizer creates a sizer starting at InitialAdaptiveBatchSize with
// the given ceiling. A ceiling below the floor lowers the floor to match.
func NewAdaptiveSizer(ceiling int) *AdaptiveSizer {
	if ceiling <= 0 {
		ceiling = 1
	}
	floor := MinAdaptiveBatchSize
	if floor > ceiling {
		floor = ceiling
	}
	start := InitialAdaptiveBatchSize
	if start > ceiling {
		start = ceiling
	}
	return &AdaptiveSizer{ceiling: ceiling, floor: floor, current: start}
}

// Current returns the chunk size in effect.
func (s *AdaptiveSizer) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Max returns the ceiling.
func (s *AdaptiveSizer) Max() int { return s.ceiling }

// Record adjusts the size after one chunk outcome and returns the new size.
func (s *AdaptiveSizer) Record(success bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if success {
		s.current = min(s.ceiling, s.current+1)
		return s.current
	}

	reduction := max(2, s.current/4)
	s.current = max(s.floor, s.current-reduction)
	return s.current
}
