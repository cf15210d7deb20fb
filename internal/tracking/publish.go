package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/pubsub"
)

// Queue hands validated envelopes to the tracking worker over Pub/Sub.
type Queue struct {
	publisher pubsub.Publisher
	topic     string
}

func NewQueue(publisher pubsub.Publisher, topic string) (*Queue, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("tracking topic is required")
	}
	return &Queue{publisher: publisher, topic: topic}, nil
}

// Publish validates env and publishes it. The message id is returned for logs.
func (q *Queue) Publish(ctx context.Context, env Envelope) (string, error) {
	if err := env.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode event envelope")
	}
	attrs := map[string]string{"event_type": env.Type()}
	id, err := q.publisher.Publish(ctx, q.topic, data, attrs)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish tracking event")
	}
	return id, nil
}
