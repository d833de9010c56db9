package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GentleMercenary/ofnotify/internal/protocol"
)

var ErrEndpointRequired = errors.New("socket: endpoint required")

// Connector performs the session handshake: open the transport, send the
// authentication frame, and wait bounded for the connected acknowledgement.
type Connector struct {
	cfg Config
}

func NewConnector(cfg Config) *Connector {
	return &Connector{cfg: cfg.WithDefaults()}
}

// Connect dials endpoint, authenticates with token and returns a live
// session. Any handshake failure closes the transport before returning.
func (c *Connector) Connect(ctx context.Context, endpoint, token string) (*Session, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEndpointRequired
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("socket: dial %s: %w", endpoint, err)
	}
	log.Debug().Str("endpoint", endpoint).Msg("socket: transport open")

	s := newSession(conn, c.cfg)
	if err := s.handshake(token); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.start()
	log.Info().Str("endpoint", endpoint).Msg("socket: session connected")
	return s, nil
}

func (s *Session) handshake(token string) error {
	s.state.Store(int32(StateConnecting))

	frame, err := protocol.EncodeConnect(token)
	if err != nil {
		return fmt.Errorf("socket: encode connect frame: %w", err)
	}
	deadline := time.Now().Add(s.cfg.HandshakeTimeout)
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("socket: send connect frame: %w", err)
	}

	_ = s.conn.SetReadDeadline(deadline)
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("socket: handshake read: %w", err)
	}
	_ = s.conn.SetReadDeadline(time.Time{})
	_ = s.conn.SetWriteDeadline(time.Time{})

	msg, err := protocol.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedHandshake, err)
	}
	connected, ok := msg.(protocol.Connected)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrUnexpectedHandshake, msg)
	}

	log.Debug().Str("version", connected.Version).Msg("socket: handshake acknowledged")
	return nil
}
