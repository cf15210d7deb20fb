package activities

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/internal/ids"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
)

const (
	KeyPrefix        = "crm_activity_"
	ContactKeyPrefix = "crm_contact_activity_"
)

// Activity is an immutable timeline entry. Description is rendered once at
// creation and never re-derived.
type Activity struct {
	ID          string          `json:"id"`
	ContactID   string          `json:"contact_id"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// Draft is the caller-supplied part of an Activity.
type Draft struct {
	Type        string
	Description string
	Timestamp   *time.Time
	Metadata    any
}

// Log appends activities under their contact and lists them back.
type Log struct {
	store kv.Store
	now   func() time.Time
	newID ids.Generator
}

func NewLog(store kv.Store, now func() time.Time, gen ids.Generator) (*Log, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity store required")
	}
	if now == nil {
		now = time.Now
	}
	if gen == nil {
		gen = ids.New
	}
	return &Log{store: store, now: now, newID: gen}, nil
}

// Append writes the activity record and its contact-scoped index entry. The
// contact is not looked up; callers resolve it first.
func (l *Log) Append(ctx context.Context, contactID string, draft Draft) (*Activity, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id required")
	}
	if strings.TrimSpace(draft.Type) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "activity type required")
	}

	activity := Activity{
		ID:          l.newID(ids.PrefixActivity),
		ContactID:   contactID,
		Type:        draft.Type,
		Description: draft.Description,
		Timestamp:   l.now().UTC(),
	}
	if draft.Timestamp != nil && !draft.Timestamp.IsZero() {
		activity.Timestamp = draft.Timestamp.UTC()
	}
	if draft.Metadata != nil {
		meta, err := kv.Encode(draft.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "activity metadata not serialisable")
		}
		activity.Metadata = meta
	}

	if err := l.store.Set(ctx, KeyPrefix+activity.ID, activity); err != nil {
		return nil, wrapStore(err, "write activity")
	}
	if err := l.store.Set(ctx, contactKey(contactID, activity.ID), activity); err != nil {
		return nil, wrapStore(err, "write activity index")
	}
	return &activity, nil
}

// ListForContact returns the contact's activities in insertion order.
// TODO: page through the index once timelines outgrow a single scan.
func (l *Log) ListForContact(ctx context.Context, contactID string) ([]Activity, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id required")
	}
	items, err := kv.ScanPrefixInto[Activity](ctx, l.store, ContactKeyPrefix+contactID+"_")
	if err != nil {
		return nil, wrapStore(err, "list activities")
	}
	return items, nil
}

func contactKey(contactID, activityID string) string {
	return ContactKeyPrefix + contactID + "_" + activityID
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
