package analytics

import (
	"math/rand"
	"sync"
	"time"
)

// LockedSource is a seedable RandomSource safe for use from the ticker
// goroutine and HTTP-triggered cycles at the same time.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededSource returns a deterministic source. A zero seed uses the clock.
func NewSeededSource(seed int64) *LockedSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedSource{rnd: rand.New(rand.NewSource(seed))}
}

func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// FixedSource always returns the same value. Useful for pinning jitter in tests.
type FixedSource float64

func (f FixedSource) Float64() float64 { return float64(f) }
