package socket

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GentleMercenary/ofnotify/internal/observability"
	"github.com/GentleMercenary/ofnotify/internal/protocol"
)

const messageBuffer = 64

// Session is one live realtime connection. While connected it runs exactly
// two goroutines: the heartbeat loop (sole writer) and the read loop (sole
// reader). Either one terminates the session at most once; Close waits for
// both to stop.
type Session struct {
	conn *websocket.Conn
	cfg  Config

	state atomic.Int32

	// heartbeat precomputed once; the probe never varies.
	heartbeat []byte

	messages chan protocol.Message
	// ack is the level-triggered liveness signal from the read loop to the
	// heartbeat loop. Capacity one: repeated acks before a consume collapse
	// into a single wakeup.
	ack chan struct{}

	done     chan struct{}
	wg       sync.WaitGroup
	termOnce sync.Once
	termErr  error
}

func newSession(conn *websocket.Conn, cfg Config) *Session {
	hb, err := protocol.EncodeHeartbeat()
	if err != nil {
		// The heartbeat frame is a constant; this cannot fail at runtime.
		panic(fmt.Sprintf("socket: encode heartbeat frame: %v", err))
	}
	return &Session{
		conn:      conn,
		cfg:       cfg,
		heartbeat: hb,
		messages:  make(chan protocol.Message, messageBuffer),
		ack:       make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (s *Session) start() {
	s.state.Store(int32(StateConnected))
	s.wg.Add(2)
	go s.heartbeatLoop()
	go s.readLoop()
}

// Messages delivers decoded application and control frames. The channel is
// closed when the read loop stops.
func (s *Session) Messages() <-chan protocol.Message {
	return s.messages
}

// Done is closed once the session reaches Terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports the terminal cause. Valid after Done is closed; nil means the
// session was closed explicitly or the remote closed cleanly.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.termErr
	default:
		return nil
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Close terminates the session and waits for both loops to stop. It is
// idempotent and safe to call from any goroutine.
func (s *Session) Close() error {
	s.terminate("closed", nil)
	s.wg.Wait()
	return nil
}

func (s *Session) terminate(cause string, err error) {
	s.termOnce.Do(func() {
		s.termErr = err
		s.state.Store(int32(StateTerminated))
		close(s.done)
		_ = s.conn.Close()
		observability.RecordSessionTermination(cause)
		if err != nil {
			log.Error().Err(err).Str("cause", cause).Msg("socket: session terminated")
		} else {
			log.Info().Str("cause", cause).Msg("socket: session terminated")
		}
	})
}

func (s *Session) terminating() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// heartbeatLoop owns the write half. Cadence is fixed: each iteration
// starts HeartbeatInterval after the previous one regardless of how long
// the send and the ack wait took.
func (s *Session) heartbeatLoop() {
	defer s.wg.Done()
	for {
		start := time.Now()

		_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, s.heartbeat); err != nil {
			if !s.terminating() {
				s.terminate("transport_write", fmt.Errorf("socket: heartbeat send: %w", err))
			}
			return
		}

		ackTimer := time.NewTimer(s.cfg.AckTimeout)
		select {
		case <-s.ack:
			ackTimer.Stop()
			observability.RecordHeartbeatRoundTrip(time.Since(start))
			log.Trace().Dur("rtt", time.Since(start)).Msg("socket: heartbeat acknowledged")
		case <-ackTimer.C:
			s.terminate("heartbeat_timeout", ErrHeartbeatTimeout)
			return
		case <-s.done:
			ackTimer.Stop()
			return
		}

		cadence := time.NewTimer(time.Until(start.Add(s.cfg.HeartbeatInterval)))
		select {
		case <-cadence.C:
		case <-s.done:
			cadence.Stop()
			return
		}
	}
}

// readLoop owns the read half. One undecodable frame is dropped, not
// fatal: the remote adds shapes over time.
func (s *Session) readLoop() {
	defer s.wg.Done()
	defer close(s.messages)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case s.terminating():
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				s.terminate("remote_closed", nil)
			default:
				s.terminate("transport_read", fmt.Errorf("socket: read: %w", err))
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Warn().Err(err).Str("frame", clip(data)).Msg("socket: dropping undecodable frame")
			continue
		}

		if _, ok := msg.(protocol.Onlines); ok {
			select {
			case s.ack <- struct{}{}:
			default:
			}
			continue
		}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		}
	}
}

func clip(data []byte) string {
	const max = 256
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
