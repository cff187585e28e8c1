package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/farelProject/v-technology/internal/model"
	"github.com/farelProject/v-technology/pkg/logger"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(subject, data)
	if ack := args.Get(0); ack != nil {
		return ack.(*jetstream.PubAck), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "vtech.session.saved", EventSubject(model.EventSessionSaved))
	assert.Equal(t, "vtech.password.reset_requested", EventSubject(model.EventPasswordResetRequested))
}

func TestPublishEvent(t *testing.T) {
	pub := new(mockPublisher)
	m := &StreamManager{js: pub, logger: logger.NewNop()}

	var sent []byte
	pub.On("Publish", "vtech.user.registered", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]byte) }).
		Return(&jetstream.PubAck{Stream: StreamName, Sequence: 42}, nil)

	event := &model.ChatEvent{Type: model.EventUserRegistered, UserID: "u1"}
	seq, err := m.PublishEvent(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded model.ChatEvent
	require.NoError(t, json.Unmarshal(sent, &decoded))
	assert.Equal(t, "u1", decoded.UserID)
	pub.AssertExpectations(t)
}

func TestPublishEventError(t *testing.T) {
	pub := new(mockPublisher)
	m := &StreamManager{js: pub, logger: logger.NewNop()}

	pub.On("Publish", "vtech.limit.reached", mock.Anything).Return(nil, errors.New("no responders"))

	_, err := m.PublishEvent(context.Background(), &model.ChatEvent{Type: model.EventLimitReached})
	assert.Error(t, err)
}
