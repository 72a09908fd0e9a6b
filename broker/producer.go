package broker

import (
	"errors"
	"fmt"
	"time"

	"notewiz-notes/notewiz/models"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

var ErrProducerNotInitialized = errors.New("broker producer is not initialized")

// Publisher is the subset of *nats.Conn used for publishing.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect dials NATS with unlimited reconnects so a broker restart does not
// take the server down with it.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("notewiz"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	return nc, nil
}

type Producer struct {
	pub Publisher
}

func NewProducer(pub Publisher) *Producer {
	return &Producer{pub: pub}
}

// PublishMessage sends raw bytes on subject.
func (p *Producer) PublishMessage(subject string, data []byte) error {
	if p == nil || p.pub == nil {
		return ErrProducerNotInitialized
	}
	if err := p.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("Published message")
	return nil
}

// PublishNotification announces a persisted notification so the process
// holding the recipient's connections can push it.
func (p *Producer) PublishNotification(n models.Notification) error {
	event := models.NewNotificationEvent(n)
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("encode notification event: %w", err)
	}
	return p.PublishMessage(NotificationCreatedSubject, data)
}
