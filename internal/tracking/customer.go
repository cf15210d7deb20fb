package tracking

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
)

func handleCustomerCreated(ctx context.Context, ec *eventContext, payload any) error {
	if _, ok := payload.(*CustomerCreatedEvent); !ok {
		return invalidPayload("customer.created")
	}
	status := enums.LeadStatusNewLead
	if err := ec.update(ctx, "Registered", contacts.Patch{LeadStatus: &status}); err != nil {
		return err
	}
	return ec.record(ctx, "Customer Registered", fmt.Sprintf("New customer registered: %s", ec.contact.Email))
}

func handleCustomerLogin(ctx context.Context, ec *eventContext, payload any) error {
	if _, ok := payload.(*CustomerLoginEvent); !ok {
		return invalidPayload("customer.login")
	}
	if err := ec.update(ctx, "Logged In", contacts.Patch{WebsiteVisitsDelta: 1}); err != nil {
		return err
	}
	return ec.record(ctx, "Customer Login", fmt.Sprintf("Customer logged in (Visit #%d)", ec.contact.WebsiteVisits))
}

func handleCustomerUpdated(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*CustomerUpdatedEvent)
	if !ok {
		return invalidPayload("customer.updated")
	}
	if err := ec.update(ctx, "Updated Profile", profilePatch(event.Updates)); err != nil {
		return err
	}
	return ec.record(ctx, "Profile Updated", "Customer updated their profile")
}

// profilePatch maps the writable profile fields. An explicit first or last
// name wins over the matching half of name.
func profilePatch(u ProfileUpdates) contacts.Patch {
	var patch contacts.Patch
	if u.Name != nil {
		first, last := contacts.SplitName(*u.Name)
		patch.FirstName = &first
		patch.LastName = &last
	}
	if u.FirstName != nil {
		patch.FirstName = trimmed(*u.FirstName)
	}
	if u.LastName != nil {
		patch.LastName = trimmed(*u.LastName)
	}
	if u.Phone != nil {
		patch.Phone = trimmed(*u.Phone)
	}
	if u.LeadSource != nil && strings.TrimSpace(*u.LeadSource) != "" {
		patch.LeadSource = trimmed(*u.LeadSource)
	}
	return patch
}

func trimmed(value string) *string {
	out := strings.TrimSpace(value)
	return &out
}
