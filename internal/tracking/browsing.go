package tracking

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
)

func handleSearchPerformed(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*SearchPerformedEvent)
	if !ok {
		return invalidPayload("search.performed")
	}
	var patch contacts.Patch
	location := event.location()
	if location != "" {
		patch.LastSearchLocation = &location
	} else {
		location = "unknown location"
	}
	if err := ec.update(ctx, "Searched Vehicles", patch); err != nil {
		return err
	}
	return ec.record(ctx, "Vehicle Search", fmt.Sprintf("Searched for vehicles in %s", location))
}

func handleVehicleViewed(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*VehicleViewedEvent)
	if !ok {
		return invalidPayload("vehicle.viewed")
	}
	var patch contacts.Patch
	if name := event.VehicleName.String(); name != "" {
		patch.LastVehicleViewed = &name
	}
	if err := ec.update(ctx, "Viewed Vehicle", patch); err != nil {
		return err
	}
	return ec.record(ctx, "Vehicle Viewed", fmt.Sprintf("Viewed %s (%s) - $%s/day",
		event.VehicleName.orUnknown(), event.VehicleType.orUnknown(), amountText(event.DailyRate)))
}

func handlePageViewed(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*PageViewedEvent)
	if !ok {
		return invalidPayload("page.viewed")
	}
	page := event.Page.orUnknown()
	if err := ec.update(ctx, "Viewed "+page, contacts.Patch{WebsiteVisitsDelta: 1}); err != nil {
		return err
	}
	return ec.record(ctx, "Page Viewed", fmt.Sprintf("Viewed %s page (Visit #%d)", page, ec.contact.WebsiteVisits))
}

func handleFormSubmitted(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*FormSubmittedEvent)
	if !ok {
		return invalidPayload("form.submitted")
	}
	if err := ec.update(ctx, "Submitted Form", contacts.Patch{}); err != nil {
		return err
	}
	return ec.record(ctx, "Form Submitted", fmt.Sprintf("Submitted %s form", event.FormType.orUnknown()))
}

func handleChatMessageSent(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*ChatMessageSentEvent)
	if !ok {
		return invalidPayload("chat.message_sent")
	}
	if err := ec.update(ctx, "Sent Chat Message", contacts.Patch{}); err != nil {
		return err
	}
	preview := previewText(string(event.Message), ec.d.chatPreviewLength)
	return ec.record(ctx, "Chat Message", fmt.Sprintf("Sent message: \"%s\"", preview))
}

// previewText keeps the first limit runes and marks the cut with "...".
func previewText(message string, limit int) string {
	runes := []rune(message)
	if limit <= 0 || len(runes) <= limit {
		return message
	}
	return string(runes[:limit]) + "..."
}
