// Package ws streams live order books from the websocket API.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/banky/hyperliquid-exec/info"
	"github.com/banky/hyperliquid-exec/types"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	defaultPingInterval = 50 * time.Second
	writeTimeout        = 5 * time.Second
	readLimit           = 1 << 20

	connectedBanner = "Websocket connection established."
)

var (
	ErrNotStarted = errors.New("websocket: client not started")
	ErrClosed     = errors.New("websocket: client closed")
)

// Config for the websocket client
type Config struct {
	// BaseURL is the REST base URL. http(s) maps to ws(s) and /ws is
	// appended.
	BaseURL      string
	Logger       logrus.FieldLogger
	PingInterval time.Duration
}

// Client multiplexes l2Book subscriptions over one connection and keeps
// the latest book of every subscribed coin.
type Client struct {
	url          string
	log          logrus.FieldLogger
	pingInterval time.Duration

	mu     sync.RWMutex
	conn   *websocket.Conn
	nextID int64
	subs   map[string][]*bookSubscriber
	books  map[string]info.L2BookSnapshot

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg Config) (*Client, error) {
	u, err := wsURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	ping := cfg.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}

	return &Client{
		url:          u,
		log:          log.WithField("component", "ws"),
		pingInterval: ping,
		subs:         make(map[string][]*bookSubscriber),
		books:        make(map[string]info.L2BookSnapshot),
		stop:         make(chan struct{}),
	}, nil
}

func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", types.NewValidationError("baseUrl", "unsupported URL scheme %q", u.Scheme)
	}

	u.Path = path.Join("/", u.Path, "ws")
	return u.String(), nil
}

// Start dials the server, replays subscriptions registered before the
// connection existed and starts the read and ping loops.
func (c *Client) Start(ctx context.Context) error {
	select {
	case <-c.stop:
		return ErrClosed
	default:
	}

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	conn.SetReadLimit(readLimit)

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "duplicate connection")
		return errors.New("websocket: client already started")
	}
	c.conn = conn
	var coins []string
	for _, subs := range c.subs {
		if len(subs) > 0 {
			coins = append(coins, subs[0].coin)
		}
	}
	c.mu.Unlock()

	c.wg.Add(2)
	go c.readLoop(conn)
	go c.pingLoop(conn)

	for _, coin := range coins {
		if err := c.write(ctx, conn, bookRequest("subscribe", coin)); err != nil {
			return err
		}
	}

	c.log.WithField("url", c.url).Debug("websocket connected")
	return nil
}

// Close ends every subscription and the connection. Safe to call more than
// once.
func (c *Client) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "closing")
		}
		c.endAll(ErrClosed)
	})
	c.wg.Wait()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			select {
			case <-c.stop:
				return
			default:
			}

			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.WithError(err).Warn("websocket read failed")
			}
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				clear(c.books)
			}
			c.mu.Unlock()
			c.endAll(fmt.Errorf("websocket connection lost: %w", err))
			return
		}

		if string(data) == connectedBanner {
			continue
		}
		c.handleMessage(data)
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.write(context.Background(), conn, map[string]string{"method": "ping"}); err != nil {
				c.log.WithError(err).Debug("websocket ping failed")
				return
			}
		}
	}
}

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) handleMessage(data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.WithError(err).Warn("failed to decode websocket message")
		return
	}

	switch msg.Channel {
	case "pong", "subscriptionResponse":
	case "l2Book":
		var book info.L2BookSnapshot
		if err := json.Unmarshal(msg.Data, &book); err != nil {
			c.log.WithError(err).Warn("failed to decode l2Book message")
			return
		}
		c.routeBook(book)
	case "error":
		c.log.WithField("data", string(msg.Data)).Warn("websocket error message")
	default:
		c.log.WithField("channel", msg.Channel).Debug("websocket message on unknown channel")
	}
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}
