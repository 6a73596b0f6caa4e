package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banky/hyperliquid-exec/exchange"
	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/coder/websocket"
	"github.com/maxatome/go-testdeep/helpers/tdsuite"
	"github.com/maxatome/go-testdeep/td"
	"github.com/sirupsen/logrus"
)

var _ exchange.BookSource = (*Client)(nil)

const bookTemplate = `{"channel":"l2Book","data":{"coin":%q,"time":1700000000000,"levels":[
	[{"px":"50000.01","sz":"1","n":1},{"px":"49999.98","sz":"2","n":1}],
	[{"px":"50000.02","sz":"1","n":1},{"px":"50000.05","sz":"3","n":2}]
]}}`

func errorIs(target error) td.TestDeep {
	return td.Smuggle(func(err error) bool { return errors.Is(err, target) }, true)
}

// ===== Suite wiring =====

type WSSuite struct{}

func TestWSSuite(t *testing.T) {
	tdsuite.Run(t, &WSSuite{})
}

// ===== Mock WebSocket Server =====

// mockWSServer answers every l2Book subscribe with one book and records
// the requests it receives.
type mockWSServer struct {
	server   *httptest.Server
	requests chan map[string]any
	// closes the connection right after the first book
	dropAfterBook bool
}

func newMockWSServer(t testing.TB, dropAfterBook bool) *mockWSServer {
	s := &mockWSServer{
		requests:      make(chan map[string]any, 32),
		dropAfterBook: dropAfterBook,
	}

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "test complete")

		ctx := context.Background()
		_ = conn.Write(ctx, websocket.MessageText, []byte(connectedBanner))

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			select {
			case s.requests <- msg:
			default:
			}

			switch msg["method"] {
			case "ping":
				_ = conn.Write(ctx, websocket.MessageText, []byte(`{"channel":"pong"}`))
			case "subscribe":
				sub, _ := msg["subscription"].(map[string]any)
				coin, _ := sub["coin"].(string)
				ack, _ := json.Marshal(map[string]any{"channel": "subscriptionResponse", "data": msg})
				_ = conn.Write(ctx, websocket.MessageText, ack)
				_ = conn.Write(ctx, websocket.MessageText, fmt.Appendf(nil, bookTemplate, coin))
				if s.dropAfterBook {
					conn.Close(websocket.StatusInternalError, "going away")
					return
				}
			}
		}
	}))

	return s
}

func (s *mockWSServer) close() {
	s.server.Close()
}

// next waits for the next request the server received.
func (s *mockWSServer) next(t *td.T) map[string]any {
	t.Helper()
	select {
	case msg := <-s.requests:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for websocket request")
		return nil
	}
}

func newTestClient(t *td.T, url string) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)

	client, err := New(Config{BaseURL: url, Logger: log})
	t.Require().CmpNoError(err)
	return client
}

// ===== Tests =====

func (s *WSSuite) TestWSURL(assert, require *td.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://127.0.0.1:8080", want: "ws://127.0.0.1:8080/ws"},
		{base: "https://api.hyperliquid.xyz", want: "wss://api.hyperliquid.xyz/ws"},
		{base: "https://example.com/api/", want: "wss://example.com/api/ws"},
		{base: "wss://api.hyperliquid-testnet.xyz", want: "wss://api.hyperliquid-testnet.xyz/ws"},
	}
	for _, tt := range tests {
		got, err := wsURL(tt.base)
		if assert.CmpNoError(err, tt.base) {
			assert.Cmp(got, tt.want, tt.base)
		}
	}

	_, err := New(Config{BaseURL: "ftp://example.com"})
	assert.Cmp(err, td.Isa(&types.ValidationError{}))
}

func (s *WSSuite) TestSnapshotBeforeStart(assert, require *td.T) {
	client := newTestClient(require, "http://127.0.0.1:1")
	defer client.Close()

	_, err := client.L2Snapshot(context.Background(), "BTC")
	assert.Cmp(err, errorIs(ErrNotStarted))
}

func (s *WSSuite) TestL2SnapshotUsesTemporarySubscription(assert, require *td.T) {
	server := newMockWSServer(require.TB, false)
	defer server.close()

	client := newTestClient(require, server.server.URL)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.CmpNoError(client.Start(ctx))

	book, err := client.L2Snapshot(ctx, "BTC")
	require.CmpNoError(err)
	assert.Cmp(book.Coin, "BTC")
	assert.Cmp(book.Levels[0], td.Len(2))
	assert.Cmp(book.Levels[0][0].Px.String(), "50000.01")

	assert.Cmp(server.next(require), map[string]any{
		"method":       "subscribe",
		"subscription": map[string]any{"type": "l2Book", "coin": "BTC"},
	})
	assert.Cmp(server.next(require), map[string]any{
		"method":       "unsubscribe",
		"subscription": map[string]any{"type": "l2Book", "coin": "BTC"},
	})

	client.mu.RLock()
	assert.Empty(client.subs)
	assert.Empty(client.books)
	client.mu.RUnlock()
}

func (s *WSSuite) TestStandingSubscriptionServesSnapshots(assert, require *td.T) {
	server := newMockWSServer(require.TB, false)
	defer server.close()

	client := newTestClient(require, server.server.URL)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.CmpNoError(client.Start(ctx))

	books := make(chan info.L2BookSnapshot)
	sub, err := client.SubscribeL2Book(ctx, "ETH", books)
	require.CmpNoError(err)
	defer sub.Unsubscribe()

	select {
	case b := <-books:
		assert.Cmp(b.Coin, "ETH")
	case <-time.After(2 * time.Second):
		require.Fatal("timeout waiting for l2Book")
	}
	assert.Cmp(server.next(require)["method"], "subscribe")

	// Served from memory: no second subscribe reaches the server.
	book, err := client.L2Snapshot(ctx, "eth")
	require.CmpNoError(err)
	assert.Cmp(book.Levels[1][1].Px.String(), "50000.05")
	select {
	case msg := <-server.requests:
		assert.Cmp(msg["method"], td.Not("subscribe"))
	default:
	}

	tick, err := exchange.DeriveTickSize(ctx, client, "ETH")
	require.CmpNoError(err)
	assert.Cmp(tick.String(), "0.01")
}

func (s *WSSuite) TestSubscriptionEndsOnUnsubscribe(assert, require *td.T) {
	server := newMockWSServer(require.TB, false)
	defer server.close()

	client := newTestClient(require, server.server.URL)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.CmpNoError(client.Start(ctx))

	sub, err := client.SubscribeL2Book(ctx, "SOL", make(chan info.L2BookSnapshot, 1))
	require.CmpNoError(err)

	sub.Unsubscribe()
	sub.Unsubscribe()

	select {
	case err := <-sub.Err():
		assert.Cmp(err, errorIs(context.Canceled))
	case <-time.After(2 * time.Second):
		require.Fatal("timeout waiting for subscription end")
	}
}

func (s *WSSuite) TestConnectionLossEndsSubscriptions(assert, require *td.T) {
	server := newMockWSServer(require.TB, true)
	defer server.close()

	client := newTestClient(require, server.server.URL)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.CmpNoError(client.Start(ctx))

	sub, err := client.SubscribeL2Book(ctx, "BTC", make(chan info.L2BookSnapshot, 1))
	require.CmpNoError(err)

	select {
	case err := <-sub.Err():
		assert.Cmp(err, td.Contains("connection lost"))
	case <-time.After(2 * time.Second):
		require.Fatal("timeout waiting for subscription end")
	}

	_, err = client.L2Snapshot(ctx, "BTC")
	assert.Cmp(err, errorIs(ErrNotStarted))
}

func (s *WSSuite) TestClosedClientRejectsSubscriptions(assert, require *td.T) {
	client := newTestClient(require, "http://127.0.0.1:1")
	client.Close()
	client.Close()

	_, err := client.SubscribeL2Book(context.Background(), "BTC", make(chan info.L2BookSnapshot))
	assert.Cmp(err, errorIs(ErrClosed))

	_, err = client.SubscribeL2Book(context.Background(), " ", make(chan info.L2BookSnapshot))
	assert.Cmp(err, td.Isa(&types.ValidationError{}))
}

func (s *WSSuite) TestHandleMessageIgnoresNoise(assert, require *td.T) {
	client := newTestClient(require, "http://127.0.0.1:1")
	defer client.Close()

	client.handleMessage([]byte(`{"channel":"pong"}`))
	client.handleMessage([]byte(`not json`))
	client.handleMessage([]byte(`{"channel":"trades","data":[]}`))
	client.handleMessage([]byte(`{"channel":"l2Book","data":{"coin":"BTC","levels":"bad"}}`))
	// Books without subscribers are not retained.
	client.handleMessage(fmt.Appendf(nil, bookTemplate, "BTC"))

	client.mu.RLock()
	defer client.mu.RUnlock()
	assert.Empty(client.books)
}
