// Package events emits field lifecycle events to Kafka so downstream
// consumers (audit, search indexing) see template changes as they are
// saved.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	appctx "github.com/Ramsey-B/dahlia/pkg/context"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

// Event types for template field lifecycle.
const (
	EventFieldsSaved    = "template.fields.saved"
	EventSessionOpened  = "template.session.opened"
	EventSessionClosed  = "template.session.closed"
	EventPartnerRemoved = "template.partner.removed"
)

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	case "none":
		return 0
	default:
		return kafka.Snappy
	}
}

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compressionCodec(cfg.Compression),
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// TemplateEvent is an event about a template's field set
type TemplateEvent struct {
	EventType  string          `json:"event_type"`
	TenantID   string          `json:"tenant_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	TemplateID int64           `json:"template_id"`
	SessionID  string          `json:"session_id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// SavedData is the payload of a template.fields.saved event
type SavedData struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Publish publishes a template event, keyed by template id so events for
// one template stay ordered.
func (p *Producer) Publish(ctx context.Context, event *TemplateEvent) error {
	ctx, span := tracing.StartSpan(ctx, "events.Producer.Publish")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.TenantID == "" {
		event.TenantID = appctx.GetTenantID(ctx)
	}
	if event.UserID == "" {
		event.UserID = appctx.GetUserID(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte("template-" + strconv.FormatInt(event.TemplateID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish template event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type":  event.EventType,
		"template_id": event.TemplateID,
	}).Debug("Published template event")

	return nil
}

// PublishSaved publishes a template.fields.saved event with the save
// counts as payload.
func (p *Producer) PublishSaved(ctx context.Context, templateID int64, sessionID string, saved SavedData) error {
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}

	return p.Publish(ctx, &TemplateEvent{
		EventType:  EventFieldsSaved,
		TemplateID: templateID,
		SessionID:  sessionID,
		Data:       data,
	})
}

