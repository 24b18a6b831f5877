package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"charm-reso-lab/internal/domain"
	"charm-reso-lab/internal/observability"
)

// WSConfig configures streaming source behavior.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the capacity of the event channel. Once full, the reader
	// blocks instead of dropping events.
	Buffer int
}

// DefaultWSConfig returns the default streaming configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            1024,
	}
}

// WSSource streams collision events from an upstream WebSocket feed, one
// CollisionMessage per text frame. It reconnects with exponential backoff
// when the connection drops and keeps it alive with periodic pings.
// Collision indices are assigned in arrival order.
type WSSource struct {
	endpoint string
	config   WSConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	events chan *domain.CollisionEvent
	nextID int64 // touched by the read loop only

	done chan struct{}
	wg   sync.WaitGroup
}

var _ EventSource = (*WSSource)(nil)

// NewWSSource connects to the endpoint and starts the read and ping loops.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig, logger *log.Logger) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultWSConfig().Buffer
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		events:   make(chan *domain.CollisionEvent, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// Events exposes the stream for channel-based consumers. The channel is
// closed after Close.
func (s *WSSource) Events() <-chan *domain.CollisionEvent {
	return s.events
}

// Next implements EventSource on top of the stream. It returns io.EOF once
// the source has been closed and the buffered events drained.
func (s *WSSource) Next(ctx context.Context) (*domain.CollisionEvent, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the source. Buffered events remain readable until the
// events channel is drained.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.events)
	return nil
}

// readLoop reads frames, decodes them and pushes events downstream,
// reconnecting with exponential backoff on connection errors.
func (s *WSSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay = s.nextDelay(reconnectDelay)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			s.logger.Printf("ws read: %v, reconnecting", err)
			s.dropConn()
			if !s.reconnect(reconnectDelay) {
				return
			}
			reconnectDelay = s.nextDelay(reconnectDelay)
			continue
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

// reconnect waits for the backoff delay and dials again. It returns false
// when the source is shutting down.
func (s *WSSource) reconnect(delay time.Duration) bool {
	select {
	case <-s.done:
		return false
	case <-time.After(delay):
	}

	observability.RecordWSReconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := s.connect(ctx)
	cancel()

	if err != nil {
		// Dial failed, the loop retries with a longer delay
		s.logger.Printf("ws reconnect: %v", err)
	}
	return !s.closed.Load()
}

func (s *WSSource) nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > s.config.MaxReconnectDelay {
		d = s.config.MaxReconnectDelay
	}
	return d
}

func (s *WSSource) dropConn() {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// handleMessage decodes one frame and forwards the event. Malformed frames
// are counted and skipped so a single bad record cannot stall the stream.
func (s *WSSource) handleMessage(message []byte) {
	start := time.Now()

	var msg CollisionMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		observability.RecordDecodeError("json")
		s.logger.Printf("ws decode: %v", err)
		return
	}

	ev := msg.Event(s.nextID)
	s.nextID++

	// Block until the consumer takes the event - never drop
	select {
	case s.events <- ev:
	case <-s.done:
		return
	}

	observability.RecordEventReceived()
	observability.RecordWSMessageLatency(time.Since(start).Seconds())
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, the reader handles reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}
