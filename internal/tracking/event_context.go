package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/internal/activities"
	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
)

// eventContext carries one event through its handler. contact always holds
// the latest stored copy.
type eventContext struct {
	d        *Dispatcher
	envelope Envelope
	contact  *contacts.Contact
	now      time.Time
	// mutated flips before the first write; a failed write may still land.
	mutated bool
}

// update merges patch, stamping last_action and last_activity.
func (ec *eventContext) update(ctx context.Context, action string, patch contacts.Patch) error {
	now := ec.now
	patch.LastAction = &action
	patch.LastActivity = &now

	ec.mutated = true
	updated, err := ec.d.contacts.Update(ctx, ec.contact.ID, patch)
	if err != nil {
		return err
	}
	ec.contact = updated
	return nil
}

func (ec *eventContext) record(ctx context.Context, activityType, description string) error {
	draft := activities.Draft{
		Type:        activityType,
		Description: description,
		Timestamp:   ec.envelope.OccurredAt(),
	}
	if meta := ec.envelope.metadata(); meta != nil {
		draft.Metadata = meta
	}
	ec.mutated = true
	_, err := ec.d.activities.Append(ctx, ec.contact.ID, draft)
	return err
}

func (ec *eventContext) enqueue(ctx context.Context, draft tasks.Draft) error {
	ec.mutated = true
	task, err := ec.d.tasks.Enqueue(ctx, ec.contact.ID, draft)
	if err != nil {
		return err
	}
	ec.d.metrics.IncTaskCreated(task.Priority.String())
	return nil
}

func (ec *eventContext) dueIn(d time.Duration) *time.Time {
	due := ec.now.Add(d)
	return &due
}

func invalidPayload(eventType string) error {
	return fmt.Errorf("invalid payload for %s", eventType)
}
