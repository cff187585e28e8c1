package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/pkg/logger"
	"github.com/farelProject/v-technology/pkg/metrics"
)

const (
	// StreamName is the name of the events stream.
	StreamName = "VTECH_EVENTS"

	// SubjectPrefix is the prefix for all event subjects.
	SubjectPrefix = "vtech"
)

// publisher is the part of JetStream the stream manager needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
	js     publisher
	logger *logger.Logger
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, log *logger.Logger) *StreamManager {
	return &StreamManager{client: client, js: client.JetStream(), logger: log.Named("events")}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Account and chat session events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event type.
func EventSubject(eventType model.EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

// PublishEvent publishes an event to JetStream, filling in id and time.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.ChatEvent) (uint64, error) {
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.js.Publish(ctx, EventSubject(event.Type), data)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	m.logger.Debug("event published",
		zap.String("type", string(event.Type)),
		zap.Uint64("sequence", ack.Sequence),
	)
	return ack.Sequence, nil
}

// Tail delivers events of the given types (all types when empty) to fn until
// ctx is done. With fromStart the stream is replayed from its first event,
// otherwise only new events are delivered.
func (m *StreamManager) Tail(ctx context.Context, types []model.EventType, fromStart bool, fn func(*model.ChatEvent)) error {
	cfg := jetstream.OrderedConsumerConfig{DeliverPolicy: jetstream.DeliverNewPolicy}
	if fromStart {
		cfg.DeliverPolicy = jetstream.DeliverAllPolicy
	}
	for _, t := range types {
		cfg.FilterSubjects = append(cfg.FilterSubjects, EventSubject(t))
	}

	consumer, err := m.client.JetStream().OrderedConsumer(ctx, StreamName, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		event, err := decodeEvent(msg)
		if err != nil {
			m.logger.Warn("skipping malformed event", zap.String("subject", msg.Subject()), zap.Error(err))
			return
		}
		fn(event)
	})
	if err != nil {
		return fmt.Errorf("failed to consume events: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return nil
}

func decodeEvent(msg jetstream.Msg) (*model.ChatEvent, error) {
	var event model.ChatEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return nil, err
	}
	if meta, err := msg.Metadata(); err == nil {
		event.Sequence = meta.Sequence.Stream
	}
	return &event, nil
}
