package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/internal/activities"
	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"github.com/angelmondragon/rentalcrm-backend/pkg/metrics"
)

const (
	DefaultAbandonedBookingSLA = time.Hour
	DefaultChatPreviewLength   = 100

	// otherEventLabel replaces unknown event types in metric labels.
	otherEventLabel = "other"
)

type ContactResolver interface {
	ResolveOrCreate(ctx context.Context, email string, hint contacts.Hint) (*contacts.Contact, bool, error)
	Update(ctx context.Context, contactID string, patch contacts.Patch) (*contacts.Contact, error)
}

type ActivityAppender interface {
	Append(ctx context.Context, contactID string, draft activities.Draft) (*activities.Activity, error)
}

type TaskEnqueuer interface {
	Enqueue(ctx context.Context, contactID string, draft tasks.Draft) (*tasks.Task, error)
}

// Result is what the dispatcher reports for one envelope. It never carries a
// panic or an unhandled error out of ProcessEvent.
type Result struct {
	Success   bool
	ContactID string
	Error     string
	Code      pkgerrors.Code
	Err       error
	// Applied is set when a handler reached the store before failing, so some
	// of the event may already be persisted.
	Applied bool
}

// Redeliverable reports whether a failed event may succeed on another
// attempt without applying any of it twice. Counters and tasks are not
// idempotent, so only failures that happened before the first handler
// write qualify.
func (r Result) Redeliverable() bool {
	return !r.Success && !r.Applied && pkgerrors.CodeOf(r.Err) == pkgerrors.CodeDependency
}

// Dispatcher folds tracking events into contacts, activities and tasks. It
// holds no state of its own beyond its collaborators.
type Dispatcher struct {
	contacts   ContactResolver
	activities ActivityAppender
	tasks      TaskEnqueuer
	handlers   map[enums.CRMEventType]handlerEntry
	logg       *logger.Logger
	metrics    *metrics.EventMetrics
	now        func() time.Time

	abandonedSLA      time.Duration
	chatPreviewLength int
}

type Option func(*Dispatcher)

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithMetrics(m *metrics.EventMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithAbandonedBookingSLA(sla time.Duration) Option {
	return func(d *Dispatcher) {
		if sla > 0 {
			d.abandonedSLA = sla
		}
	}
}

func WithChatPreviewLength(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.chatPreviewLength = n
		}
	}
}

func NewDispatcher(contactsSvc ContactResolver, activityLog ActivityAppender, taskQueue TaskEnqueuer, logg *logger.Logger, opts ...Option) (*Dispatcher, error) {
	if contactsSvc == nil {
		return nil, errors.New("contact registry is required")
	}
	if activityLog == nil {
		return nil, errors.New("activity log is required")
	}
	if taskQueue == nil {
		return nil, errors.New("task queue is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	d := &Dispatcher{
		contacts:          contactsSvc,
		activities:        activityLog,
		tasks:             taskQueue,
		handlers:          defaultHandlers(),
		logg:              logg,
		metrics:           metrics.NewEventMetrics(nil),
		now:               time.Now,
		abandonedSLA:      DefaultAbandonedBookingSLA,
		chatPreviewLength: DefaultChatPreviewLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ProcessRaw decodes body as an envelope and processes it.
func (d *Dispatcher) ProcessRaw(ctx context.Context, body []byte) Result {
	env, err := DecodeEnvelope(body)
	if err != nil {
		d.metrics.ObserveEvent(otherEventLabel, metrics.OutcomeInvalid, 0)
		return d.failure(ctx, err)
	}
	return d.ProcessEvent(ctx, env)
}

// ProcessEvent applies one envelope. Anonymous events and unknown types
// succeed; every failure comes back as a Result with Success false.
func (d *Dispatcher) ProcessEvent(ctx context.Context, env Envelope) (res Result) {
	start := d.now()
	eventType := env.Type()
	label := otherEventLabel
	if enums.CRMEventType(eventType).IsValid() {
		label = eventType
	}
	outcome := metrics.OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			outcome = metrics.OutcomeFailed
			res = d.failure(ctx, pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", r), "process event"))
		}
		d.metrics.ObserveEvent(label, outcome, d.now().Sub(start))
	}()

	if err := env.Validate(); err != nil {
		outcome = metrics.OutcomeInvalid
		return d.failure(ctx, err)
	}
	ctx = d.logg.WithEventType(ctx, eventType)

	email := env.Email()
	if email == "" {
		outcome = metrics.OutcomeAnonymous
		d.logg.Info(ctx, "anonymous tracking event")
		return Result{Success: true}
	}

	entry, known := d.handlers[enums.CRMEventType(eventType)]
	var payload any
	if known {
		payload = entry.factory()
		if err := decodePayload(eventType, env.EventData, payload); err != nil {
			outcome = metrics.OutcomeInvalid
			return d.failure(ctx, err)
		}
	}

	hint := contacts.Hint{Name: env.Customer.Name, Phone: env.Customer.Phone}
	contact, created, err := d.contacts.ResolveOrCreate(ctx, email, hint)
	if err != nil {
		return d.failure(ctx, err)
	}
	if created {
		d.metrics.IncContactCreated()
	}
	ctx = d.logg.WithContactID(ctx, contact.ID)

	if !known {
		outcome = metrics.OutcomeUnknown
		d.logg.Info(ctx, "unknown tracking event type")
		return Result{Success: true, ContactID: contact.ID}
	}

	ec := &eventContext{d: d, envelope: env, contact: contact, now: d.now().UTC()}
	if err := entry.handle(ctx, ec, payload); err != nil {
		if ec.mutated {
			ctx = d.logg.WithField(ctx, "partially_applied", true)
		}
		res := d.failure(ctx, err)
		res.Applied = ec.mutated
		return res
	}

	outcome = metrics.OutcomeProcessed
	d.logg.Debug(ctx, "tracking event processed")
	return Result{Success: true, ContactID: contact.ID}
}

func (d *Dispatcher) failure(ctx context.Context, err error) Result {
	code := pkgerrors.CodeOf(err)
	message := pkgerrors.MetadataFor(code).PublicMessage
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		message = typed.Message()
	}

	if code == pkgerrors.CodeValidation {
		d.logg.Warn(d.logg.WithField(ctx, "error", err.Error()), "tracking event rejected")
	} else {
		d.logg.Error(ctx, "tracking event failed", err)
	}
	return Result{Success: false, Error: message, Code: code, Err: err}
}
