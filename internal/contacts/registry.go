package contacts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/internal/ids"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

// Locker serialises resolve-or-create for a single email.
type Locker interface {
	Lock(ctx context.Context, email string) (release func(context.Context), err error)
}

// Registry resolves customer emails to contacts and applies field updates.
// Every write touches both the id-keyed and the email-keyed copy.
type Registry struct {
	store  kv.Store
	now    func() time.Time
	newID  ids.Generator
	locker Locker
	logg   *logger.Logger
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithIDGenerator(gen ids.Generator) Option {
	return func(r *Registry) { r.newID = gen }
}

// WithLocker enables the per-email resolve lock.
func WithLocker(locker Locker) Option {
	return func(r *Registry) { r.locker = locker }
}

func WithLogger(logg *logger.Logger) Option {
	return func(r *Registry) { r.logg = logg }
}

func NewRegistry(store kv.Store, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "contacts store required")
	}
	r := &Registry{store: store, now: time.Now, newID: ids.New}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ResolveOrCreate returns the contact for email, creating it from hint when
// absent. An existing contact is returned unchanged. The bool reports creation.
//
// Without a Locker, two first-time calls racing on the same email can both
// create; the later write owns the email key.
func (r *Registry) ResolveOrCreate(ctx context.Context, email string, hint Hint) (*Contact, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "customer email required")
	}

	if r.locker != nil {
		release, err := r.locker.Lock(ctx, email)
		if err != nil {
			r.warn(ctx, "resolve lock unavailable, continuing unlocked", err)
		} else {
			defer release(context.WithoutCancel(ctx))
		}
	}

	existing, err := r.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		return nil, false, err
	}

	contact := newContact(r.newID(ids.PrefixContact), email, hint, r.now().UTC())
	if err := r.write(ctx, &contact); err != nil {
		return nil, false, err
	}
	return &contact, true, nil
}

// Update merges patch into the stored contact and refreshes updated_at.
func (r *Registry) Update(ctx context.Context, contactID string, patch Patch) (*Contact, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id required")
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}

	contact, err := r.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	patch.apply(contact)

	now := r.now().UTC()
	if now.Before(contact.CreatedAt) {
		now = contact.CreatedAt
	}
	contact.UpdatedAt = now

	if err := r.write(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (r *Registry) Get(ctx context.Context, contactID string) (*Contact, error) {
	var contact Contact
	if err := r.store.Get(ctx, idKey(contactID), &contact); err != nil {
		return nil, storeError(err, "contact not found", "load contact")
	}
	return &contact, nil
}

func (r *Registry) FindByEmail(ctx context.Context, email string) (*Contact, error) {
	var contact Contact
	if err := r.store.Get(ctx, emailKey(email), &contact); err != nil {
		return nil, storeError(err, "contact not found", "load contact by email")
	}
	return &contact, nil
}

// List returns one contact per email, ordered by email.
func (r *Registry) List(ctx context.Context) ([]Contact, error) {
	items, err := kv.ScanPrefixInto[Contact](ctx, r.store, EmailKeyPrefix)
	if err != nil {
		return nil, storeError(err, "", "list contacts")
	}
	return items, nil
}

func (r *Registry) write(ctx context.Context, contact *Contact) error {
	if err := r.store.Set(ctx, idKey(contact.ID), contact); err != nil {
		return storeError(err, "", "write contact")
	}
	if err := r.store.Set(ctx, emailKey(contact.Email), contact); err != nil {
		return storeError(err, "", "write contact email index")
	}
	return nil
}

func (r *Registry) warn(ctx context.Context, msg string, err error) {
	if r.logg == nil {
		return
	}
	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), msg)
}

// storeError maps kv failures onto the error taxonomy.
func storeError(err error, notFoundMsg, op string) error {
	if errors.Is(err, kv.ErrNotFound) && notFoundMsg != "" {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
