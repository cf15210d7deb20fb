package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu    sync.Mutex
	tasks []Task
}

func (r *recordingNotifier) TaskCreated(_ context.Context, task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
}

func newTestQueue(t *testing.T, store kv.Store, opts ...Option) *Queue {
	t.Helper()
	seq := 0
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(prefix string) string {
			seq++
			return fmt.Sprintf("%s%04d", prefix, seq)
		}),
	}
	q, err := NewQueue(store, append(base, opts...)...)
	require.NoError(t, err)
	return q
}

func TestEnqueueDefaults(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	q := newTestQueue(t, store)

	due := fixedNow.Add(time.Hour)
	task, err := q.Enqueue(ctx, "contact_1", Draft{
		Title:    "URGENT: Follow up - Abandoned Booking",
		Priority: enums.TaskPriorityUrgent,
		DueDate:  &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "task_0001", task.ID)
	assert.Equal(t, enums.TaskStatusPending, task.Status)
	assert.Equal(t, DefaultAssignee, task.AssignedTo)
	assert.Equal(t, fixedNow, task.CreatedAt)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, due, *task.DueDate)

	var byID, byIndex Task
	require.NoError(t, store.Get(ctx, "crm_task_task_0001", &byID))
	require.NoError(t, store.Get(ctx, "crm_contact_task_contact_1_task_0001", &byIndex))
	assert.Equal(t, byID, byIndex)
}

func TestEnqueueKeepsExplicitAssignee(t *testing.T) {
	q := newTestQueue(t, kv.NewMemoryStore(), WithDefaultAssignee("night_desk"))

	explicit, err := q.Enqueue(context.Background(), "contact_1", Draft{
		Title:      "Send Booking Confirmation & Welcome",
		Priority:   enums.TaskPriorityHigh,
		AssignedTo: "customer_service",
	})
	require.NoError(t, err)
	assert.Equal(t, "customer_service", explicit.AssignedTo)
	assert.Nil(t, explicit.DueDate)

	fallback, err := q.Enqueue(context.Background(), "contact_1", Draft{Title: "Call back", Priority: enums.TaskPriorityLow})
	require.NoError(t, err)
	assert.Equal(t, "night_desk", fallback.AssignedTo)
}

func TestEnqueueNeverDeduplicates(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, kv.NewMemoryStore())
	draft := Draft{Title: "Follow up - Payment Failed", Priority: enums.TaskPriorityHigh}

	first, err := q.Enqueue(ctx, "contact_1", draft)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, "contact_1", draft)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := q.ListForContact(ctx, "contact_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestEnqueueValidation(t *testing.T) {
	q := newTestQueue(t, kv.NewMemoryStore())
	ctx := context.Background()

	cases := map[string]struct {
		contactID string
		draft     Draft
	}{
		"missing contact": {"", Draft{Title: "x", Priority: enums.TaskPriorityLow}},
		"missing title":   {"contact_1", Draft{Title: "  ", Priority: enums.TaskPriorityLow}},
		"bad priority":    {"contact_1", Draft{Title: "x", Priority: "critical"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := q.Enqueue(ctx, tc.contactID, tc.draft)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestEnqueueNotifiesAfterWrite(t *testing.T) {
	notifier := &recordingNotifier{}
	q := newTestQueue(t, kv.NewMemoryStore(), WithNotifier(notifier))

	task, err := q.Enqueue(context.Background(), "contact_1", Draft{Title: "x", Priority: enums.TaskPriorityMedium})
	require.NoError(t, err)
	require.Len(t, notifier.tasks, 1)
	assert.Equal(t, task.ID, notifier.tasks[0].ID)
}

type failingStore struct{ kv.Store }

func (failingStore) Set(context.Context, string, any) error {
	return errors.New("connection refused")
}

func TestEnqueueStoreFailureSkipsNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	q := newTestQueue(t, failingStore{Store: kv.NewMemoryStore()}, WithNotifier(notifier))

	_, err := q.Enqueue(context.Background(), "contact_1", Draft{Title: "x", Priority: enums.TaskPriorityHigh})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))
	assert.Empty(t, notifier.tasks)
}

func TestNewQueueRequiresStore(t *testing.T) {
	_, err := NewQueue(nil)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}
