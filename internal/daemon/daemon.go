// Package daemon runs realtime sessions on behalf of a consumer. It owns
// everything the session core deliberately does not: fetching the websocket
// credentials, reconnecting with backoff after a termination, and keeping
// the account looking active.
package daemon

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GentleMercenary/ofnotify/internal/ofapi"
	"github.com/GentleMercenary/ofnotify/internal/protocol"
	"github.com/GentleMercenary/ofnotify/internal/socket"
)

type Config struct {
	Socket  socket.Config
	Backoff BackoffConfig
	// MaxConnectAttempts bounds consecutive failed connection attempts.
	// Zero or negative means retry forever.
	MaxConnectAttempts int
	// Reconnect re-establishes the session after any termination. When
	// false the daemon stops after the first terminal event.
	Reconnect bool
	// ActivityMean is the mean of the exponentially distributed interval
	// between synthetic activity posts. Zero disables the simulator.
	ActivityMean time.Duration
}

func DefaultConfig() Config {
	return Config{
		Socket:       socket.DefaultConfig(),
		Backoff:      DefaultBackoffConfig(),
		Reconnect:    true,
		ActivityMean: time.Minute,
	}
}

// Daemon drives sessions and republishes their output to the consumer.
type Daemon struct {
	client    *ofapi.Client
	connector *socket.Connector
	cfg       Config

	// rng is confined to Run's goroutine (backoff jitter). The activity
	// loop runs concurrently and carries its own source: *rand.Rand is
	// not safe for shared use.
	rng *rand.Rand

	onMessage    func(protocol.Message)
	onDisconnect func(error)
}

func New(client *ofapi.Client, cfg Config) *Daemon {
	cfg.Socket = cfg.Socket.WithDefaults()
	return &Daemon{
		client:    client,
		connector: socket.NewConnector(cfg.Socket),
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// OnMessage registers the consumer callback for application messages.
func (d *Daemon) OnMessage(f func(protocol.Message)) *Daemon {
	d.onMessage = f
	return d
}

// OnDisconnect registers the consumer callback for terminal session errors.
// It is invoked at most once per session.
func (d *Daemon) OnDisconnect(f func(error)) *Daemon {
	d.onDisconnect = f
	return d
}

// Run connects and serves sessions until ctx is cancelled or, with
// Reconnect disabled, until the first session ends. The activity loop
// lives exactly as long as Run does.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if d.cfg.ActivityMean > 0 {
		go d.activityLoop(ctx)
	}

	var attempt int
	for {
		attempt++
		sessErr, err := d.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// The session was live; start counting attempts fresh.
			attempt = 0
			if d.onDisconnect != nil {
				d.onDisconnect(sessErr)
			}
			if !d.cfg.Reconnect {
				return sessErr
			}
		} else {
			log.Warn().Err(err).Int("attempt", attempt).Msg("daemon: connect failed")
			if d.cfg.MaxConnectAttempts > 0 && attempt >= d.cfg.MaxConnectAttempts {
				return err
			}
			if !d.cfg.Reconnect {
				return err
			}
		}

		if err := d.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

// runSession performs one connect/serve cycle. The first return value is
// the session's terminal cause (nil on clean closure); the second is a
// connect-phase failure.
func (d *Daemon) runSession(ctx context.Context) (error, error) {
	me, err := d.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", me.Username).Msg("daemon: connecting")

	sess, err := d.connector.Connect(ctx, me.WsURL, me.WsAuthToken)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case msg, ok := <-sess.Messages():
			if !ok {
				return sess.Err(), nil
			}
			if em, isErr := msg.(protocol.ErrorMessage); isErr {
				log.Error().Int("code", em.Code).Msg("daemon: remote error frame")
				_ = sess.Close()
				return fmt.Errorf("daemon: remote error code %d", em.Code), nil
			}
			if d.onMessage != nil {
				d.onMessage(msg)
			}
		}
	}
}

func (d *Daemon) sleepBackoff(ctx context.Context, attempt int) error {
	delay := NextBackoffDelay(d.cfg.Backoff, attempt, d.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// clickStats is the synthetic activity payload. Field values mirror what
// the web client reports for menu navigation.
type clickStats struct {
	Page      string `json:"page"`
	Block     string `json:"block"`
	EventTime string `json:"eventTime"`
}

var clickPages = []string{"Collections", "Subscribes", "Profile", "Chats"}

// activityLoop posts randomized navigation events at exponentially
// distributed intervals so the account does not look dormant.
func (d *Daemon) activityLoop(ctx context.Context) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		interval := time.Duration(rng.ExpFloat64() * float64(d.cfg.ActivityMean))
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		click := clickStats{
			Page:      clickPages[rng.Intn(len(clickPages))],
			Block:     "Menu",
			EventTime: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		}
		resp, err := d.client.Post(ctx, "/api2/v2/users/clicks-stats", click)
		if err != nil {
			log.Debug().Err(err).Msg("daemon: activity post failed")
			continue
		}
		_ = resp.Body.Close()
		log.Trace().Str("page", click.Page).Msg("daemon: activity posted")
	}
}
