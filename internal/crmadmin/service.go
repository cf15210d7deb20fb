package crmadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/rentalcrm-backend/internal/activities"
	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"go.uber.org/multierr"
)

// crmPrefix covers every key the CRM core writes.
const (
	crmPrefix       = "crm_"
	deleteBatchSize = 500
)

type contactReader interface {
	Get(ctx context.Context, contactID string) (*contacts.Contact, error)
	FindByEmail(ctx context.Context, email string) (*contacts.Contact, error)
	List(ctx context.Context) ([]contacts.Contact, error)
}

type activityReader interface {
	ListForContact(ctx context.Context, contactID string) ([]activities.Activity, error)
}

type taskReader interface {
	ListForContact(ctx context.Context, contactID string) ([]tasks.Task, error)
}

// Service backs the dashboard read API and the bulk-clear escape hatch.
type Service interface {
	ListContacts(ctx context.Context) ([]contacts.Contact, error)
	LookupContact(ctx context.Context, email string) (*contacts.Contact, error)
	ContactDetail(ctx context.Context, contactID string) (*ContactDetail, error)
	ContactActivities(ctx context.Context, contactID string) ([]activities.Activity, error)
	ContactTasks(ctx context.Context, contactID string) ([]tasks.Task, error)
	ClearAll(ctx context.Context) (*ClearResult, error)
}

type ServiceParams struct {
	Store      kv.Store
	Contacts   contactReader
	Activities activityReader
	Tasks      taskReader
	Logger     *logger.Logger
}

type ContactDetail struct {
	Contact    contacts.Contact      `json:"contact"`
	Activities []activities.Activity `json:"activities"`
	Tasks      []tasks.Task          `json:"tasks"`
}

// ClearResult counts what ClearAll removed. Contacts counts id records, so
// orphaned duplicates from a resolve race are included.
type ClearResult struct {
	Contacts   int `json:"contacts"`
	Activities int `json:"activities"`
	Tasks      int `json:"tasks"`
	Keys       int `json:"keys"`
}

type service struct {
	store      kv.Store
	contacts   contactReader
	activities activityReader
	tasks      taskReader
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, errors.New("store required")
	}
	if params.Contacts == nil {
		return nil, errors.New("contact registry required")
	}
	if params.Activities == nil {
		return nil, errors.New("activity log required")
	}
	if params.Tasks == nil {
		return nil, errors.New("task queue required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	return &service{
		store:      params.Store,
		contacts:   params.Contacts,
		activities: params.Activities,
		tasks:      params.Tasks,
		logg:       params.Logger,
	}, nil
}

func (s *service) ListContacts(ctx context.Context) ([]contacts.Contact, error) {
	return s.contacts.List(ctx)
}

func (s *service) LookupContact(ctx context.Context, email string) (*contacts.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	return s.contacts.FindByEmail(ctx, email)
}

func (s *service) ContactDetail(ctx context.Context, contactID string) (*ContactDetail, error) {
	contact, err := s.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	acts, err := s.activities.ListForContact(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	taskList, err := s.tasks.ListForContact(ctx, contact.ID)
	if err != nil {
		return nil, err
	}
	return &ContactDetail{Contact: *contact, Activities: acts, Tasks: taskList}, nil
}

func (s *service) ContactActivities(ctx context.Context, contactID string) ([]activities.Activity, error) {
	if _, err := s.contacts.Get(ctx, contactID); err != nil {
		return nil, err
	}
	return s.activities.ListForContact(ctx, contactID)
}

func (s *service) ContactTasks(ctx context.Context, contactID string) ([]tasks.Task, error) {
	if _, err := s.contacts.Get(ctx, contactID); err != nil {
		return nil, err
	}
	return s.tasks.ListForContact(ctx, contactID)
}

// ClearAll deletes every CRM key in batches. Failed batches are reported
// together; counts cover only the batches that were deleted.
func (s *service) ClearAll(ctx context.Context) (*ClearResult, error) {
	entries, err := s.store.ScanPrefix(ctx, crmPrefix)
	if err != nil {
		return nil, wrapStore(err, "scan crm keys")
	}
	keys := kv.Keys(entries)

	result := &ClearResult{}
	var errs error
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		batch := keys[start:end]
		if err := s.store.Delete(ctx, batch...); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete keys %d-%d: %w", start, end-1, err))
			continue
		}
		result.add(batch)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"contacts":   result.Contacts,
		"activities": result.Activities,
		"tasks":      result.Tasks,
		"keys":       result.Keys,
	})
	if errs != nil {
		s.logg.Error(logCtx, "crm clear incomplete", errs)
		return result, wrapStore(errs, "clear crm data")
	}
	s.logg.Warn(logCtx, "crm data cleared")
	return result, nil
}

func (r *ClearResult) add(keys []string) {
	for _, key := range keys {
		r.Keys++
		switch {
		case strings.HasPrefix(key, activities.ContactKeyPrefix),
			strings.HasPrefix(key, tasks.ContactKeyPrefix),
			strings.HasPrefix(key, contacts.EmailKeyPrefix):
			// index copies
		case strings.HasPrefix(key, activities.KeyPrefix):
			r.Activities++
		case strings.HasPrefix(key, tasks.KeyPrefix):
			r.Tasks++
		case strings.HasPrefix(key, contacts.KeyPrefix):
			r.Contacts++
		}
	}
}

func wrapStore(err error, op string) error {
	for _, e := range multierr.Errors(err) {
		if pkgerrors.CodeOf(e) == pkgerrors.CodeDependency {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
}
