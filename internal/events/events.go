// Package events publishes quiz lifecycle events to NATS.
//
// Subjects:
//
//	geoquiz.game.started   a game (or a restarted round) began
//	geoquiz.game.finished  a round ended (all found, time up, out of lives)
//
// When no broker is configured the Noop publisher is used and events are dropped.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	SubjectStarted  = "geoquiz.game.started"
	SubjectFinished = "geoquiz.game.finished"
)

// Event is the JSON payload of every subject.
type Event struct {
	Subject   string    `json:"-"`
	GameID    string    `json:"gameId"`
	Round     int       `json:"round"`
	PlayerID  string    `json:"playerId,omitempty"`
	Variant   string    `json:"variant"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Reason    string    `json:"reason,omitempty"`
	ElapsedMs int64     `json:"elapsedMs,omitempty"`
	At        time.Time `json:"at"`
}

// Encode returns the wire payload for e.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// NATS publishes events on a broker connection.
type NATS struct {
	nc *nats.Conn
}

// Connect dials url. An empty url returns Noop so callers need no branching.
func Connect(url string) (Publisher, error) {
	if url == "" {
		return Noop{}, nil
	}
	opts := []nats.Option{
		nats.Name("geoquiz-server"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATS{nc: nc}, nil
}

// Publish encodes e and publishes it on e.Subject.
func (p *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Subject == "" {
		return fmt.Errorf("events: missing subject")
	}
	data, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.nc.Publish(e.Subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain")
		p.nc.Close()
	}
}
