// Package random provides the injectable uniform source used for card
// draws and work assignment.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source draws an integer uniformly from [0, n). n must be positive.
type Source interface {
	Intn(n int) int
}

// cryptoSource uses crypto/rand so it is safe for concurrent use
type cryptoSource struct{}

// NewCrypto returns the production source
func NewCrypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		// rand.Reader does not fail on supported platforms
		panic(fmt.Sprintf("random: crypto source failed: %v", err))
	}
	return int(v.Int64())
}

// seededSource is a deterministic PCG generator guarded by a mutex
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded returns a reproducible source for tests and replays
func NewSeeded(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Fixed replays the given values in order, wrapping around, each reduced mod n
type Fixed struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewFixed returns a scripted source
func NewFixed(values ...int) *Fixed {
	if len(values) == 0 {
		values = []int{0}
	}
	return &Fixed{values: values}
}

func (f *Fixed) Intn(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values[f.pos%len(f.values)]
	f.pos++
	if v < 0 {
		v = -v
	}
	return v % n
}
