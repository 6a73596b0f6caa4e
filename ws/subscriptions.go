package ws

import (
	"context"
	"slices"
	"strings"

	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/coder/websocket"
)

// Subscription is a live feed registration.
type Subscription interface {
	// Unsubscribe is idempotent.
	Unsubscribe()
	// Err yields why the subscription ended, then closes.
	Err() <-chan error
}

type subscription struct {
	cancel  context.CancelCauseFunc
	errChan chan error
}

func (s *subscription) Unsubscribe()      { s.cancel(nil) }
func (s *subscription) Err() <-chan error { return s.errChan }

type bookSubscriber struct {
	id   int64
	coin string
	ctx  context.Context
	end  context.CancelCauseFunc
	// latest undelivered book, capacity 1
	pending chan info.L2BookSnapshot
}

// offer replaces any undelivered book with b. Only the read loop calls it.
func (s *bookSubscriber) offer(b info.L2BookSnapshot) {
	for {
		select {
		case s.pending <- b:
			return
		default:
		}
		select {
		case <-s.pending:
		default:
		}
	}
}

func (s *bookSubscriber) deliver(out chan<- info.L2BookSnapshot) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case b := <-s.pending:
			select {
			case out <- b:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func bookKey(coin string) string {
	return strings.ToLower(strings.TrimSpace(coin))
}

func bookRequest(method, coin string) map[string]any {
	return map[string]any{
		"method":       method,
		"subscription": map[string]any{"type": "l2Book", "coin": coin},
	}
}

// SubscribeL2Book streams books of coin to ch until ctx ends, the
// subscription is cancelled or the connection drops. A slow reader only
// ever sees the newest book.
func (c *Client) SubscribeL2Book(
	ctx context.Context,
	coin string,
	ch chan<- info.L2BookSnapshot,
) (Subscription, error) {
	key := bookKey(coin)
	if key == "" {
		return nil, types.NewValidationError("coin", "is required")
	}

	subCtx, cancel := context.WithCancelCause(ctx)
	sub := &bookSubscriber{
		coin:    strings.TrimSpace(coin),
		ctx:     subCtx,
		end:     cancel,
		pending: make(chan info.L2BookSnapshot, 1),
	}

	c.mu.Lock()
	select {
	case <-c.stop:
		c.mu.Unlock()
		cancel(ErrClosed)
		return nil, ErrClosed
	default:
	}
	c.nextID++
	sub.id = c.nextID
	first := len(c.subs[key]) == 0
	c.subs[key] = append(c.subs[key], sub)
	conn := c.conn
	c.mu.Unlock()

	if first && conn != nil {
		if err := c.write(ctx, conn, bookRequest("subscribe", sub.coin)); err != nil {
			cancel(err)
			c.unsubscribe(sub)
			return nil, err
		}
	}

	errChan := make(chan error, 1)
	go sub.deliver(ch)
	go func() {
		<-subCtx.Done()
		errChan <- context.Cause(subCtx)
		close(errChan)
		c.unsubscribe(sub)
	}()

	return &subscription{cancel: cancel, errChan: errChan}, nil
}

func (c *Client) routeBook(book info.L2BookSnapshot) {
	key := bookKey(book.Coin)

	c.mu.Lock()
	subs := slices.Clone(c.subs[key])
	if len(subs) > 0 {
		c.books[key] = book
	}
	c.mu.Unlock()

	if len(subs) == 0 {
		c.log.WithField("coin", book.Coin).Debug("l2Book message without subscribers")
		return
	}
	for _, s := range subs {
		s.offer(book)
	}
}

// unsubscribe drops sub and tells the server once the coin has no
// subscribers left.
func (c *Client) unsubscribe(sub *bookSubscriber) {
	key := bookKey(sub.coin)

	c.mu.Lock()
	before := len(c.subs[key])
	c.subs[key] = slices.DeleteFunc(c.subs[key], func(s *bookSubscriber) bool { return s.id == sub.id })
	last := before > 0 && len(c.subs[key]) == 0
	if len(c.subs[key]) == 0 {
		delete(c.subs, key)
		delete(c.books, key)
	}
	conn := c.conn
	c.mu.Unlock()

	if !last || conn == nil {
		return
	}

	err := c.write(context.Background(), conn, bookRequest("unsubscribe", sub.coin))
	if err != nil && websocket.CloseStatus(err) == -1 {
		c.log.WithError(err).WithField("coin", sub.coin).Debug("failed to send unsubscribe")
	}
}

// endAll terminates every subscription with cause.
func (c *Client) endAll(cause error) {
	c.mu.RLock()
	var subs []*bookSubscriber
	for _, s := range c.subs {
		subs = append(subs, s...)
	}
	c.mu.RUnlock()

	for _, s := range subs {
		s.end(cause)
	}
}
