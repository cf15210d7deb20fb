// Package ids mints the surrogate identifiers used in CRM storage keys.
package ids

import "github.com/google/uuid"

const (
	PrefixContact  = "contact_"
	PrefixActivity = "activity_"
	PrefixTask     = "task_"
)

// Generator returns a fresh identifier for a record kind.
type Generator func(prefix string) string

// New returns prefix followed by a UUIDv7. Version 7 ids sort by creation
// time, so a key-ordered prefix scan yields insertion order.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return prefix + uuid.NewString()
	}
	return prefix + id.String()
}
