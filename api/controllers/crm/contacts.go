package crm

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rentalcrm-backend/api/responses"
	"github.com/angelmondragon/rentalcrm-backend/api/validators"
	"github.com/angelmondragon/rentalcrm-backend/internal/activities"
	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/crmadmin"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
	"github.com/angelmondragon/rentalcrm-backend/pkg/pagination"
)

func contactEmail(c contacts.Contact) string { return c.Email }
func activityID(a activities.Activity) string { return a.ID }
func taskID(t tasks.Task) string { return t.ID }

// writePage pages a key-ordered listing using the limit and cursor query parameters.
func writePage[T any](w http.ResponseWriter, r *http.Request, logg *logger.Logger, items []T, keyOf func(T) string) {
	params, err := validators.ParsePageParams(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	page, err := pagination.Apply(items, keyOf, params)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
		return
	}
	responses.WriteSuccess(w, page)
}

// ListContacts pages through every contact known to the CRM, ordered by email.
func ListContacts(svc crmadmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		list, err := svc.ListContacts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePage(w, r, logg, list, contactEmail)
	}
}

func LookupContact(svc crmadmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		query, err := validators.ParseEmailQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contact, err := svc.LookupContact(r.Context(), query.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

// ContactDetail returns a contact with its activities and tasks.
func ContactDetail(svc crmadmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		path, err := validators.ParseContactPath(chi.URLParam(r, "contactId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.ContactDetail(r.Context(), path.ContactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ContactActivities(svc crmadmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		path, err := validators.ParseContactPath(chi.URLParam(r, "contactId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ContactActivities(r.Context(), path.ContactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePage(w, r, logg, list, activityID)
	}
}

func ContactTasks(svc crmadmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "crm service unavailable"))
			return
		}
		path, err := validators.ParseContactPath(chi.URLParam(r, "contactId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ContactTasks(r.Context(), path.ContactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writePage(w, r, logg, list, taskID)
	}
}
