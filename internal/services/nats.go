package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Event subjects published on the delivery-events stream.
const (
	EventProjectCreated  = "delivery.project.created"
	EventContentsRemoved = "delivery.project.contents_removed"
	EventFilesReconciled = "delivery.files.reconciled"
)

// EventPublisher pushes lifecycle events to NATS JetStream. A nil
// publisher is valid and drops events, so unit tests and dev setups
// without a broker keep working.
type EventPublisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// ConnectNATS connects to the broker and ensures the event stream
// exists. Failure to ensure streams is logged, not fatal: delivery of
// data matters more than delivery of events about it.
func ConnectNATS(url string) (*EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("delivery-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := js.StreamInfo("delivery-events"); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     "delivery-events",
			Subjects: []string{"delivery.>"},
			MaxAge:   7 * 24 * time.Hour,
		})
		if err != nil {
			log.Printf("[NATS] warning: failed to ensure stream: %v", err)
		}
	}

	log.Println("[NATS] connected and JetStream initialized")
	return &EventPublisher{nc: conn, js: js}, nil
}

// Publish sends one event, fire and forget.
func (p *EventPublisher) Publish(subject string, payload map[string]interface{}) {
	if p == nil || p.js == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[NATS] marshal event %s: %v", subject, err)
		return
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		log.Printf("[NATS] publish %s: %v", subject, err)
	}
}

// Close drains the connection.
func (p *EventPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
