package tasks

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/internal/ids"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
)

const (
	KeyPrefix        = "crm_task_"
	ContactKeyPrefix = "crm_contact_task_"

	DefaultAssignee = "sales_team"
)

// Task is a follow-up item for a human operator. Status changes happen
// outside the CRM core.
type Task struct {
	ID          string             `json:"id"`
	ContactID   string             `json:"contact_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    enums.TaskPriority `json:"priority"`
	Status      enums.TaskStatus   `json:"status"`
	AssignedTo  string             `json:"assigned_to"`
	DueDate     *time.Time         `json:"due_date"`
	CreatedAt   time.Time          `json:"created_at"`
}

type Draft struct {
	Title       string
	Description string
	Priority    enums.TaskPriority
	AssignedTo  string
	DueDate     *time.Time
}

// Notifier is told about every task after it is stored. Implementations
// must not block the caller on failure.
type Notifier interface {
	TaskCreated(ctx context.Context, task Task)
}

// Queue creates tasks. It never deduplicates: two identical drafts yield two tasks.
type Queue struct {
	store           kv.Store
	now             func() time.Time
	newID           ids.Generator
	defaultAssignee string
	notifier        Notifier
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithIDGenerator(gen ids.Generator) Option {
	return func(q *Queue) { q.newID = gen }
}

func WithDefaultAssignee(assignee string) Option {
	return func(q *Queue) {
		if strings.TrimSpace(assignee) != "" {
			q.defaultAssignee = assignee
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(q *Queue) { q.notifier = n }
}

func NewQueue(store kv.Store, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "task store required")
	}
	q := &Queue{store: store, now: time.Now, newID: ids.New, defaultAssignee: DefaultAssignee}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

func (q *Queue) Enqueue(ctx context.Context, contactID string, draft Draft) (*Task, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id required")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task title required")
	}
	if !draft.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "task priority invalid").
			WithDetails(map[string]any{"priority": draft.Priority})
	}

	task := Task{
		ID:          q.newID(ids.PrefixTask),
		ContactID:   contactID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Status:      enums.TaskStatusPending,
		AssignedTo:  draft.AssignedTo,
		CreatedAt:   q.now().UTC(),
	}
	if strings.TrimSpace(task.AssignedTo) == "" {
		task.AssignedTo = q.defaultAssignee
	}
	if draft.DueDate != nil {
		due := draft.DueDate.UTC()
		task.DueDate = &due
	}

	if err := q.store.Set(ctx, KeyPrefix+task.ID, task); err != nil {
		return nil, wrapStore(err, "write task")
	}
	if err := q.store.Set(ctx, ContactKeyPrefix+contactID+"_"+task.ID, task); err != nil {
		return nil, wrapStore(err, "write task index")
	}

	if q.notifier != nil {
		q.notifier.TaskCreated(ctx, task)
	}
	return &task, nil
}

// ListForContact returns the contact's tasks in creation order.
func (q *Queue) ListForContact(ctx context.Context, contactID string) ([]Task, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id required")
	}
	items, err := kv.ScanPrefixInto[Task](ctx, q.store, ContactKeyPrefix+contactID+"_")
	if err != nil {
		return nil, wrapStore(err, "list tasks")
	}
	return items, nil
}

func wrapStore(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, kv.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
