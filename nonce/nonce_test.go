package nonce

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/maxatome/go-testdeep/td"
)

func frozen(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestStrictlyIncreasingWithFrozenClock(t *testing.T) {
	m := NewMonotonic().WithClock(frozen(1_700_000_000_000))

	const n = 1000
	seen := make(map[int64]bool, n)
	prev := int64(0)
	for range n {
		v := m.Next()
		td.Cmp(t, v, td.Gt(prev))
		td.Cmp(t, seen[v], false)
		seen[v] = true
		prev = v
	}
	td.Cmp(t, prev, int64(1_700_000_000_000+n-1))
}

func TestTracksWallClock(t *testing.T) {
	now := int64(1_700_000_000_000)
	m := NewMonotonic().WithClock(func() time.Time { return time.UnixMilli(now) })

	td.Cmp(t, m.Next(), now)
	now += 50
	td.Cmp(t, m.Next(), now)
}

func TestStartSeedsSequence(t *testing.T) {
	m := NewMonotonic(5_000_000_000_000).WithClock(frozen(1_700_000_000_000))

	td.Cmp(t, m.Next(), int64(5_000_000_000_000))
	td.Cmp(t, m.Source()(), int64(5_000_000_000_001))
}

func TestConcurrentCallersNeverCollide(t *testing.T) {
	m := NewMonotonic().WithClock(frozen(1))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]int{}
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				v := m.Next()
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	td.Cmp(t, seen, td.Len(8*200))
}

func TestRegistrySharesPerWallet(t *testing.T) {
	r := NewRegistry()
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	td.Cmp(t, r.For(a), td.Shallow(r.For(a)))
	td.Cmp(t, r.For(a) == r.For(b), false)
	td.Cmp(t, ForWallet(a), td.Shallow(ForWallet(a)))
}
