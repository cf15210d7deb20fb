package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/pagination"
)

// EmailQuery is the lookup filter used by the CRM dashboard.
type EmailQuery struct {
	Email string `json:"email" validate:"required,max=320"`
}

// ParseEmailQuery reads and validates the email query parameter.
func ParseEmailQuery(r *http.Request) (EmailQuery, error) {
	query := EmailQuery{Email: SanitizeString(r.URL.Query().Get("email"), 0)}
	if err := ValidateStruct(query); err != nil {
		return EmailQuery{}, err
	}
	return query, nil
}

// ContactPath is the contact identifier taken from the route.
type ContactPath struct {
	ContactID string `json:"contactId" validate:"required,startswith=contact_,max=128"`
}

// ParseContactPath validates a contact id path value.
func ParseContactPath(raw string) (ContactPath, error) {
	path := ContactPath{ContactID: strings.TrimSpace(raw)}
	if err := ValidateStruct(path); err != nil {
		return ContactPath{}, err
	}
	return path, nil
}

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParsePageParams reads limit and cursor for key-ordered listings.
func ParsePageParams(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
