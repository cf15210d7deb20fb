package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	topic string
	data  []byte
	attrs map[string]string
}

type stubPublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (s *stubPublisher) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, publishCall{topic: topic, data: data, attrs: attrs})
	if s.err != nil {
		return "", s.err
	}
	return "msg-1", nil
}

func (s *stubPublisher) recorded() []publishCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]publishCall(nil), s.calls...)
}

// hangingPublisher blocks until its context ends, like an unreachable Pub/Sub.
type hangingPublisher struct {
	errs chan error
}

func (h *hangingPublisher) Publish(ctx context.Context, _ string, _ []byte, _ map[string]string) (string, error) {
	<-ctx.Done()
	h.errs <- ctx.Err()
	return "", ctx.Err()
}

func TestAlertNotifierPublishesAlertingPriorities(t *testing.T) {
	pub := &stubPublisher{}
	n := NewAlertNotifier(pub, "crm-task-alerts", 0, nil)
	require.NotNil(t, n)

	n.TaskCreated(context.Background(), Task{ID: "task_1", ContactID: "contact_1", Priority: enums.TaskPriorityUrgent})
	n.Wait()
	n.TaskCreated(context.Background(), Task{ID: "task_2", ContactID: "contact_1", Priority: enums.TaskPriorityHigh})
	n.TaskCreated(context.Background(), Task{ID: "task_3", ContactID: "contact_1", Priority: enums.TaskPriorityMedium})
	n.Wait()

	calls := pub.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "crm-task-alerts", calls[0].topic)
	assert.Equal(t, "urgent", calls[0].attrs["priority"])
	assert.Equal(t, "task.created", calls[0].attrs["event_type"])

	var decoded Task
	require.NoError(t, json.Unmarshal(calls[1].data, &decoded))
	assert.Equal(t, "task_2", decoded.ID)
}

func TestAlertNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &stubPublisher{err: errors.New("unavailable")}
	n := NewAlertNotifier(pub, "crm-task-alerts", 0, nil)

	assert.NotPanics(t, func() {
		n.TaskCreated(context.Background(), Task{ID: "task_1", Priority: enums.TaskPriorityUrgent})
		n.Wait()
	})
	assert.Len(t, pub.recorded(), 1)
}

func TestEnqueueDoesNotWaitOnSlowAlertPublisher(t *testing.T) {
	pub := &hangingPublisher{errs: make(chan error, 1)}
	n := NewAlertNotifier(pub, "crm-task-alerts", 200*time.Millisecond, nil)
	q := newTestQueue(t, kv.NewMemoryStore(), WithNotifier(n))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	task, err := q.Enqueue(ctx, "contact_1", Draft{Title: "Follow up", Priority: enums.TaskPriorityUrgent})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	n.Wait()
	assert.ErrorIs(t, <-pub.errs, context.DeadlineExceeded)
}

func TestAlertPublishSurvivesCallerCancellation(t *testing.T) {
	pub := &stubPublisher{}
	n := NewAlertNotifier(pub, "crm-task-alerts", time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.TaskCreated(ctx, Task{ID: "task_1", Priority: enums.TaskPriorityHigh})
	n.Wait()

	assert.Len(t, pub.recorded(), 1)
}

func TestAlertNotifierDisabledWithoutTopic(t *testing.T) {
	assert.Nil(t, NewAlertNotifier(&stubPublisher{}, " ", 0, nil))
	assert.Nil(t, NewAlertNotifier(nil, "topic", 0, nil))

	var n *AlertNotifier
	assert.NotPanics(t, func() {
		n.TaskCreated(context.Background(), Task{Priority: enums.TaskPriorityUrgent})
		n.Wait()
	})
}
