// Package feed listens to a nest's change feed and refreshes the affected
// resources.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	gosync "sync"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/nestmate/internal/state"
	"github.com/dukerupert/nestmate/internal/sync"
	"github.com/dukerupert/nestmate/internal/websocket"
)

// Syncer is the part of sync.Syncer the feed drives.
type Syncer interface {
	Sync(ctx context.Context, r state.Resource) sync.Result
	SyncAll(ctx context.Context) []sync.Result
}

type Option func(*Subscriber)

func WithReconnectDelay(d time.Duration) Option {
	return func(s *Subscriber) { s.reconnectDelay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) { s.logger = l }
}

func WithUserAgent(ua string) Option {
	return func(s *Subscriber) { s.userAgent = ua }
}

// Subscriber keeps one websocket open to the feed URL, reconnecting after a
// fixed delay when it drops.
type Subscriber struct {
	url            string
	syncer         Syncer
	logger         *slog.Logger
	reconnectDelay time.Duration
	userAgent      string

	mu     gosync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(url string, syncer Syncer, opts ...Option) *Subscriber {
	s := &Subscriber{
		url:            url,
		syncer:         syncer,
		logger:         slog.Default(),
		reconnectDelay: 5 * time.Second,
		userAgent:      "nestmate",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "feed")
	return s
}

// Start connects in the background. Calling it again while running is a no-op.
func (s *Subscriber) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop closes the connection and waits for the loop to exit.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Subscriber) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	connected := false
	for {
		err := s.listen(ctx, connected)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("feed disconnected", "error", err, "retry_in", s.reconnectDelay)
		}
		if errors.Is(err, errConnected) {
			connected = true
		}

		select {
		case <-time.After(s.reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

var errConnected = errors.New("connection closed")

// listen dials and handles messages until the connection fails. Once a dial
// succeeds, the returned error wraps errConnected. A reconnect resyncs
// everything since messages may have been missed.
func (s *Subscriber) listen(ctx context.Context, resync bool) error {
	conn, _, err := ws.Dial(ctx, s.url, &ws.DialOptions{
		HTTPHeader: http.Header{"User-Agent": []string{s.userAgent}},
	})
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.CloseNow()
	s.logger.Info("feed connected", "url", s.url)

	if resync {
		s.syncer.SyncAll(ctx)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", errConnected, err)
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("bad feed message", "error", err)
			continue
		}
		s.handle(ctx, msg)
	}
}

func (s *Subscriber) handle(ctx context.Context, msg websocket.Message) {
	r, ok := resourceFor(msg.Entity)
	if !ok {
		s.logger.Debug("ignoring feed message", "type", msg.Type)
		return
	}
	res := s.syncer.Sync(ctx, r)
	if res.Err != nil {
		s.logger.Warn("feed sync failed", "resource", r, "error", res.Err)
	}
}

func resourceFor(entity string) (state.Resource, bool) {
	r := state.Resource(entity)
	if r == state.ResourceUser {
		return "", false
	}
	for _, known := range state.Resources {
		if known == r {
			return r, true
		}
	}
	return "", false
}
