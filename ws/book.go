package ws

import (
	"context"
	"fmt"
	"slices"

	"github.com/banky/hyperliquid-exec/info"
)

// L2Snapshot returns the newest book of coin. A standing subscription is
// served from memory; otherwise a temporary subscription waits for the
// first book the server pushes.
func (c *Client) L2Snapshot(ctx context.Context, coin string) (*info.L2BookSnapshot, error) {
	c.mu.RLock()
	book, ok := c.books[bookKey(coin)]
	started := c.conn != nil
	c.mu.RUnlock()

	if ok {
		return cloneBook(book), nil
	}
	if !started {
		return nil, ErrNotStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan info.L2BookSnapshot, 1)
	sub, err := c.SubscribeL2Book(ctx, coin, ch)
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	select {
	case b := <-ch:
		return cloneBook(b), nil
	case err := <-sub.Err():
		return nil, fmt.Errorf("l2Book %s: %w", coin, err)
	}
}

func cloneBook(b info.L2BookSnapshot) *info.L2BookSnapshot {
	b.Levels[0] = slices.Clone(b.Levels[0])
	b.Levels[1] = slices.Clone(b.Levels[1])
	return &b
}
