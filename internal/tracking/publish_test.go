package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	topic string
	data  []byte
	attrs map[string]string
	err   error
}

func (s *stubPublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	s.topic, s.data, s.attrs = topic, data, attrs
	if s.err != nil {
		return "", s.err
	}
	return "msg-9", nil
}

func TestQueuePublishesEnvelope(t *testing.T) {
	pub := &stubPublisher{}
	q, err := NewQueue(pub, "crm-tracking-events")
	require.NoError(t, err)

	id, err := q.Publish(context.Background(), event("booking.started", "q@x.com", `{"estimated_total":99}`))
	require.NoError(t, err)
	assert.Equal(t, "msg-9", id)
	assert.Equal(t, "crm-tracking-events", pub.topic)
	assert.Equal(t, "booking.started", pub.attrs["event_type"])

	decoded, err := DecodeEnvelope(pub.data)
	require.NoError(t, err)
	assert.Equal(t, "q@x.com", decoded.Email())
	assert.JSONEq(t, `{"estimated_total":99}`, string(decoded.EventData))
}

func TestQueueRejectsInvalidEnvelope(t *testing.T) {
	pub := &stubPublisher{}
	q, err := NewQueue(pub, "topic")
	require.NoError(t, err)

	_, err = q.Publish(context.Background(), Envelope{EventData: json.RawMessage(`{}`)})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Nil(t, pub.data)
}

func TestQueuePublishFailureIsDependencyError(t *testing.T) {
	q, err := NewQueue(&stubPublisher{err: errors.New("unavailable")}, "topic")
	require.NoError(t, err)

	_, err = q.Publish(context.Background(), event("page.viewed", "", `{}`))
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestNewQueueRequiresTopic(t *testing.T) {
	_, err := NewQueue(&stubPublisher{}, "")
	assert.Error(t, err)
	_, err = NewQueue(nil, "topic")
	assert.Error(t, err)
}
