package tasks

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"github.com/angelmondragon/rentalcrm-backend/pkg/pubsub"
)

const (
	alertEventType = "task.created"

	DefaultAlertTimeout = 5 * time.Second
)

// AlertNotifier publishes high and urgent tasks to a Pub/Sub topic so the
// sales team can be paged. Publishing runs in the background under its own
// timeout; failures are logged and dropped.
type AlertNotifier struct {
	publisher pubsub.Publisher
	topic     string
	timeout   time.Duration
	logg      *logger.Logger
	inflight  sync.WaitGroup
}

func NewAlertNotifier(publisher pubsub.Publisher, topic string, timeout time.Duration, logg *logger.Logger) *AlertNotifier {
	if publisher == nil || strings.TrimSpace(topic) == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultAlertTimeout
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "task-alerts", Output: io.Discard})
	}
	return &AlertNotifier{publisher: publisher, topic: topic, timeout: timeout, logg: logg}
}

// TaskCreated returns immediately; the publish outlives the caller's context.
func (n *AlertNotifier) TaskCreated(ctx context.Context, task Task) {
	if n == nil || !task.Priority.Alerting() {
		return
	}

	ctx = n.logg.WithFields(ctx, map[string]any{
		"task_id":    task.ID,
		"contact_id": task.ContactID,
		"priority":   task.Priority,
		"topic":      n.topic,
	})

	data, err := json.Marshal(task)
	if err != nil {
		n.logg.Error(ctx, "encode task alert", err)
		return
	}
	attrs := map[string]string{
		"event_type": alertEventType,
		"priority":   string(task.Priority),
		"contact_id": task.ContactID,
	}

	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if _, err := n.publisher.Publish(pubCtx, n.topic, data, attrs); err != nil {
			n.logg.Warn(n.logg.WithField(ctx, "error", err.Error()), "task alert publish failed")
			return
		}
		n.logg.Info(ctx, "task alert published")
	}()
}

// Wait blocks until in-flight alerts finish. Call it before closing the publisher.
func (n *AlertNotifier) Wait() {
	if n == nil {
		return
	}
	n.inflight.Wait()
}
