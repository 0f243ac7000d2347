package realtime

import (
	"encoding/json"
	"fmt"
	"kbc/internal/api/models"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const unknownProject = "unknown"

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher sends flow generation events to NATS subjects of the form
// <prefix>.project.<projectId>.flow.generation.<status>.
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger zerolog.Logger
}

func NewNATSPublisher(natsURL, prefix string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("kbc-flow-generation"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newNATSPublisher(nc, prefix, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, logger zerolog.Logger) *NATSPublisher {
	if prefix = sanitizeToken(prefix); prefix == "" {
		prefix = "kbc"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// PublishGenerationEvent publishes the event as JSON. It does not wait for a
// server acknowledgement.
func (p *NATSPublisher) PublishGenerationEvent(event models.FlowGenerationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal generation event: %w", err)
	}

	subject := GenerationSubject(p.prefix, event.ProjectID, event.Status)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %q: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Str("requestId", event.RequestID).Msg("Published generation event")
	return nil
}

// Close drains the NATS connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("nats drain")
	}
}

// GenerationSubject builds the subject for an event. The project id is
// reduced to a single subject token.
func GenerationSubject(prefix, projectID string, status models.GenerationStatus) string {
	project := sanitizeToken(projectID)
	if project == "" {
		project = unknownProject
	}
	return fmt.Sprintf("%s.project.%s.flow.generation.%s", prefix, project, status)
}

// sanitizeToken replaces characters NATS treats specially inside a token.
func sanitizeToken(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// GenerationSubscriber follows generation events published by NATSPublisher.
type GenerationSubscriber struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

func NewGenerationSubscriber(natsURL, prefix string, logger zerolog.Logger) (*GenerationSubscriber, error) {
	nc, err := nats.Connect(natsURL, nats.Name("kbc-flow-events"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if prefix = sanitizeToken(prefix); prefix == "" {
		prefix = "kbc"
	}
	return &GenerationSubscriber{conn: nc, prefix: prefix, logger: logger}, nil
}

// Subscribe listens on <prefix>.project.*.flow.generation.* and hands every
// decodable event to fn. Malformed messages are logged and skipped.
func (s *GenerationSubscriber) Subscribe(fn func(projectID string, event models.FlowGenerationEvent)) error {
	subject := fmt.Sprintf("%s.project.*.flow.generation.*", s.prefix)
	_, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		projectID, event, err := decodeGenerationEvent(msg.Subject, msg.Data)
		if err != nil {
			s.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("Skipping generation event")
			return
		}
		fn(projectID, event)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %q: %w", subject, err)
	}
	s.logger.Info().Str("subject", subject).Msg("Subscribed to generation events")
	return nil
}

func (s *GenerationSubscriber) Close() {
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn().Err(err).Msg("nats drain")
	}
}

// decodeGenerationEvent reads "<prefix>.project.<projectId>.flow.generation.<status>"
// and the JSON payload. The subject status must agree with the payload.
func decodeGenerationEvent(subject string, data []byte) (string, models.FlowGenerationEvent, error) {
	var event models.FlowGenerationEvent

	parts := strings.Split(subject, ".")
	if len(parts) != 6 || parts[1] != "project" || parts[3] != "flow" || parts[4] != "generation" {
		return "", event, fmt.Errorf("unexpected subject %q", subject)
	}
	if err := json.Unmarshal(data, &event); err != nil {
		return "", event, fmt.Errorf("decode event: %w", err)
	}
	if string(event.Status) != parts[5] {
		return "", event, fmt.Errorf("subject status %q does not match payload status %q", parts[5], event.Status)
	}
	return parts[2], event, nil
}
