package flow

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Random is the source of the uniform draws in [0,1) deciding failures and latencies
type Random interface {
	Float64() float64
}

// NewRandom returns a goroutine-safe generator. A zero seed picks one from the clock.
func NewRandom(seed int64) Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRandom{r: rand.New(rand.NewSource(seed))}
}

type lockedRandom struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// FixedRandom replays a fixed sequence of draws, repeating the last value
// once exhausted. An empty sequence always draws 0.5.
type FixedRandom struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewFixedRandom(values ...float64) *FixedRandom {
	return &FixedRandom{values: values}
}

func (f *FixedRandom) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.values) == 0 {
		return 0.5
	}
	if f.next >= len(f.values) {
		return f.values[len(f.values)-1]
	}
	v := f.values[f.next]
	f.next++
	return v
}

// Sleeper suspends a run for a simulated duration
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits in real time, scaled by Scale. A scale of 0 means 1.
type TimerSleeper struct {
	Scale float64
}

func (s TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	scale := s.Scale
	if scale <= 0 {
		scale = 1
	}
	d = time.Duration(float64(d) * scale)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay returns immediately
type NoDelay struct{}

func (NoDelay) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
