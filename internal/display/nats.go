package display

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// MessagePublisher is the subset of *nats.Conn used by Publisher.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Publisher is a Sink that publishes every event as JSON on
// "<subject>.<event type>".
type Publisher struct {
	*emitter
	conn    MessagePublisher
	subject string
}

// NewPublisher creates a publisher for the given game id and subject prefix.
func NewPublisher(conn MessagePublisher, subject, game string) *Publisher {
	p := &Publisher{
		conn:    conn,
		subject: subject,
	}
	p.emitter = newEmitter(game, p.publish)
	return p
}

func (p *Publisher) publish(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("encode %s event: %v", ev.Type, err)
		return
	}
	subject := p.subject + "." + string(ev.Type)
	if err := p.conn.Publish(subject, b); err != nil {
		log.Printf("publish %s: %v", subject, err)
	}
}

// Connect dials a NATS server for display publishing.
func Connect(url, name string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
