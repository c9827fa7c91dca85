package identity

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

// EventsSubject carries identity lifecycle events between processes.
const EventsSubject = "identity.events"

// Event types on EventsSubject.
const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
	EventRevoked   = "revoked"
)

// Event is the wire payload on EventsSubject.
type Event struct {
	Type string `json:"type"`
	UID  string `json:"uid"`
}

// EventBus publishes identity events and delivers ones from other processes.
type EventBus interface {
	Publish(ev Event) error
	Subscribe(fn func(Event)) (unsubscribe func(), err error)
}

// NATSBus is an EventBus over core NATS.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

// ConnectNATS dials url with a bounded reconnect policy.
func ConnectNATS(url string) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("movie-discovery-identity"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATSBus{nc: nc, subject: EventsSubject}, nil
}

func (b *NATSBus) Publish(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, payload)
}

// Subscribe drops messages that do not decode.
func (b *NATSBus) Subscribe(fn func(Event)) (func(), error) {
	sub, err := b.nc.Subscribe(b.subject, func(msg *nats.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", b.subject, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *NATSBus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	b.nc.Close()
}
