package credora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Event Categories
// ============================================================================

const (
	EventConnected    = "connected"
	EventMessage      = "message"
	EventError        = "error"
	EventDisconnected = "disconnected"
)

// Handler is the callback type for every event category.
// Payloads: nil for connected and disconnected, the decoded JSON value for
// message, the transport error for error.
type Handler func(payload any)

// ============================================================================
// Configuration
// ============================================================================

const (
	DefaultEndpoint             = "ws://localhost:8000/ws"
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
)

// ChannelConfig configures a NotificationChannel.
type ChannelConfig struct {
	Endpoint string
	// MaxReconnectAttempts bounds automatic reconnection. Negative disables it.
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Dialer               Dialer
	Logger               *slog.Logger
}

func (c *ChannelConfig) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Dialer == nil {
		c.Dialer = &WebSocketDialer{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ChannelState represents the connection state.
type ChannelState string

const (
	StateIdle       ChannelState = "idle"
	StateConnecting ChannelState = "connecting"
	StateOpen       ChannelState = "open"
	// StateClosed means the session ended and a reconnect is pending.
	StateClosed ChannelState = "closed"
)

// ============================================================================
// Listener Registry
// ============================================================================

type listener struct {
	id      uuid.UUID
	handler Handler
}

type listenerRegistry struct {
	mu         sync.RWMutex
	byCategory map[string][]listener
}

func newListenerRegistry() *listenerRegistry {
	return &listenerRegistry{byCategory: make(map[string][]listener)}
}

func (r *listenerRegistry) add(category string, h Handler) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.byCategory[category] = append(r.byCategory[category], listener{id: id, handler: h})
	r.mu.Unlock()
	return id
}

func (r *listenerRegistry) remove(category string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ls := r.byCategory[category]
	for i, l := range ls {
		if l.id == id {
			r.byCategory[category] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// snapshot copies the handlers so callbacks may subscribe or unsubscribe
// while a dispatch is in progress.
func (r *listenerRegistry) snapshot(category string) []listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]listener(nil), r.byCategory[category]...)
}

func (r *listenerRegistry) clear() {
	r.mu.Lock()
	r.byCategory = make(map[string][]listener)
	r.mu.Unlock()
}

// ============================================================================
// NotificationChannel
// ============================================================================

// NotificationChannel keeps at most one real-time session open, reconnects a
// bounded number of times after it drops, and fans inbound events out to
// subscribers by category.
//
// Handlers run synchronously on the channel's read goroutine in subscription
// order, so inbound frames are delivered in the order they arrived.
type NotificationChannel struct {
	config    *ChannelConfig
	logger    *slog.Logger
	listeners *listenerRegistry
	afterFunc func(time.Duration, func()) (stop func() bool)

	mu                sync.Mutex
	state             ChannelState
	conn              Conn
	credential        string
	reconnectAttempts int
	// epoch is bumped by Disconnect; goroutines and timers started under an
	// older epoch become no-ops.
	epoch         uint64
	cancelFn      context.CancelFunc
	stopReconnect func() bool
}

// NewNotificationChannel creates an idle channel. Call Connect to open a session.
func NewNotificationChannel(config *ChannelConfig) *NotificationChannel {
	cfg := ChannelConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.defaults()
	return &NotificationChannel{
		config:    &cfg,
		logger:    cfg.Logger.With("component", "notification_channel"),
		listeners: newListenerRegistry(),
		afterFunc: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		state: StateIdle,
	}
}

// State returns the current connection state.
func (nc *NotificationChannel) State() ChannelState {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.state
}

// ReconnectAttempts returns the number of automatic reconnects made since the
// last successful session.
func (nc *NotificationChannel) ReconnectAttempts() int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.reconnectAttempts
}

// ReconnectBudgetExhausted reports whether the automatic reconnect budget is
// used up. From an EventDisconnected handler it tells whether the session that
// just ended will be retried.
func (nc *NotificationChannel) ReconnectBudgetExhausted() bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.reconnectAttempts >= nc.config.MaxReconnectAttempts
}

// Connect starts opening a session authenticated with credential and returns
// immediately. It is a no-op while a session is open or being opened.
// Failures are reported to EventError subscribers.
func (nc *NotificationChannel) Connect(credential string) {
	nc.mu.Lock()
	start := nc.connectLocked(credential)
	nc.mu.Unlock()
	if start != nil {
		start()
	}
}

func (nc *NotificationChannel) connectLocked(credential string) func() {
	if nc.state == StateOpen || nc.state == StateConnecting {
		return nil
	}
	if nc.stopReconnect != nil {
		nc.stopReconnect()
		nc.stopReconnect = nil
	}

	nc.credential = credential
	nc.state = StateConnecting
	ctx, cancel := context.WithCancel(context.Background())
	nc.cancelFn = cancel
	epoch := nc.epoch
	sessionURL := nc.sessionURL(credential)

	return func() { go nc.open(ctx, epoch, sessionURL) }
}

// Disconnect closes the session, cancels any pending reconnect and removes
// every subscriber. Subscribers must register again after a later Connect.
func (nc *NotificationChannel) Disconnect() {
	nc.mu.Lock()
	nc.epoch++
	if nc.stopReconnect != nil {
		nc.stopReconnect()
		nc.stopReconnect = nil
	}
	conn := nc.conn
	cancel := nc.cancelFn
	nc.conn = nil
	nc.cancelFn = nil
	nc.state = StateIdle
	nc.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			nc.logger.Debug("close notification session", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		nc.logger.Info("notification channel disconnected", "reason", "client disconnect")
		nc.emit(EventDisconnected, nil)
	}
	nc.listeners.clear()
}

// Subscribe registers h for category and returns a func that removes this
// registration. Calling the returned func more than once is safe.
func (nc *NotificationChannel) Subscribe(category string, h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}
	id := nc.listeners.add(category, h)
	return func() { nc.listeners.remove(category, id) }
}

// Emit delivers payload to the subscribers of category. It is how callers
// publish their own categories on the shared channel.
func (nc *NotificationChannel) Emit(category string, payload any) {
	nc.emit(category, payload)
}

// Send encodes payload as JSON and writes it as one frame. Nothing is queued:
// without an open session the payload is dropped and ErrNotConnected returned.
func (nc *NotificationChannel) Send(ctx context.Context, payload any) error {
	nc.mu.Lock()
	conn := nc.conn
	open := nc.state == StateOpen
	nc.mu.Unlock()

	if !open || conn == nil {
		nc.logger.Warn("notification channel is not connected, dropping payload")
		return ErrNotConnected
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := conn.Write(ctx, data); err != nil {
		nc.logger.Warn("notification frame write failed", "error", err)
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (nc *NotificationChannel) sessionURL(credential string) string {
	u, err := url.Parse(nc.config.Endpoint)
	if err != nil {
		return nc.config.Endpoint + "?token=" + url.QueryEscape(credential)
	}
	q := u.Query()
	q.Set("token", credential)
	u.RawQuery = q.Encode()
	return u.String()
}

func (nc *NotificationChannel) open(ctx context.Context, epoch uint64, sessionURL string) {
	conn, err := nc.config.Dialer.Dial(ctx, sessionURL)

	nc.mu.Lock()
	if nc.epoch != epoch {
		nc.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		nc.mu.Unlock()
		nc.logger.Warn("notification channel connect failed", "error", err)
		nc.emit(EventError, err)
		nc.sessionEnded(epoch)
		return
	}
	nc.conn = conn
	nc.state = StateOpen
	nc.reconnectAttempts = 0
	nc.mu.Unlock()

	nc.logger.Info("notification channel connected")
	nc.emit(EventConnected, nil)
	nc.readLoop(ctx, epoch, conn)
}

func (nc *NotificationChannel) readLoop(ctx context.Context, epoch uint64, conn Conn) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			nc.mu.Lock()
			stale := nc.epoch != epoch
			nc.mu.Unlock()
			if stale {
				return
			}

			if errors.Is(err, ErrSessionClosed) {
				nc.logger.Info("notification channel disconnected", "reason", err)
			} else {
				nc.logger.Warn("notification channel transport error", "error", err)
				nc.emit(EventError, err)
			}
			nc.sessionEnded(epoch)
			return
		}

		var payload any
		if err := json.Unmarshal(data, &payload); err != nil {
			// Malformed frames are dropped without reaching any subscriber.
			nc.logger.Error("discarding undecodable notification frame", "error", err, "size", len(data))
			continue
		}
		nc.emit(EventMessage, payload)
	}
}

// sessionEnded emits disconnected and then decides whether to schedule the
// next automatic attempt.
func (nc *NotificationChannel) sessionEnded(epoch uint64) {
	nc.mu.Lock()
	if nc.epoch != epoch {
		nc.mu.Unlock()
		return
	}
	nc.conn = nil
	nc.state = StateClosed
	if nc.cancelFn != nil {
		nc.cancelFn()
		nc.cancelFn = nil
	}
	nc.mu.Unlock()

	nc.emit(EventDisconnected, nil)

	nc.mu.Lock()
	defer nc.mu.Unlock()
	// A subscriber may have called Connect or Disconnect from its handler.
	if nc.epoch != epoch || nc.state != StateClosed {
		return
	}
	if nc.reconnectAttempts >= nc.config.MaxReconnectAttempts {
		nc.state = StateIdle
		nc.logger.Warn("notification channel giving up on reconnect",
			"attempts", nc.reconnectAttempts,
		)
		return
	}

	nc.reconnectAttempts++
	attempt := nc.reconnectAttempts
	nc.stopReconnect = nc.afterFunc(nc.config.ReconnectDelay, func() {
		nc.reconnect(epoch, attempt)
	})
}

func (nc *NotificationChannel) reconnect(epoch uint64, attempt int) {
	nc.mu.Lock()
	if nc.epoch != epoch || nc.state != StateClosed {
		nc.mu.Unlock()
		return
	}
	nc.stopReconnect = nil
	nc.state = StateIdle
	start := nc.connectLocked(nc.credential)
	nc.mu.Unlock()

	nc.logger.Info("attempting to reconnect notification channel",
		"attempt", attempt,
		"max", nc.config.MaxReconnectAttempts,
	)
	if start != nil {
		start()
	}
}

func (nc *NotificationChannel) emit(category string, payload any) {
	for _, l := range nc.listeners.snapshot(category) {
		nc.invoke(category, l.handler, payload)
	}
}

func (nc *NotificationChannel) invoke(category string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			nc.logger.Error("notification listener panicked", "category", category, "panic", r)
		}
	}()
	h(payload)
}
