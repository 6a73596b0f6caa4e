// Package nonce mints the millisecond nonces that order exchange actions.
package nonce

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source returns the next nonce. Implementations must never repeat a value
// for the same wallet.
type Source func() int64

// Monotonic issues max(last+1, now in ms). Safe for concurrent use.
type Monotonic struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewMonotonic returns a generator anchored to the wall clock. An optional
// start value seeds the sequence so the first nonce is at least start.
func NewMonotonic(start ...int64) *Monotonic {
	m := &Monotonic{now: time.Now}
	if len(start) > 0 {
		m.last = start[0] - 1
	}
	return m
}

// WithClock replaces the wall clock, for tests.
func (m *Monotonic) WithClock(now func() time.Time) *Monotonic {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Monotonic) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := max(m.last+1, m.now().UnixMilli())
	m.last = next
	return next
}

// Source adapts m to the Source function type.
func (m *Monotonic) Source() Source {
	return m.Next
}

// Registry hands out one Monotonic per wallet so every signer holding the
// same key draws from a single sequence.
type Registry struct {
	mu      sync.Mutex
	wallets map[common.Address]*Monotonic
}

func NewRegistry() *Registry {
	return &Registry{wallets: make(map[common.Address]*Monotonic)}
}

func (r *Registry) For(wallet common.Address) *Monotonic {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.wallets[wallet]
	if !ok {
		m = NewMonotonic()
		r.wallets[wallet] = m
	}
	return m
}

var defaultRegistry = NewRegistry()

// ForWallet returns the process-wide generator for wallet.
func ForWallet(wallet common.Address) *Monotonic {
	return defaultRegistry.For(wallet)
}
