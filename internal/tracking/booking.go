package tracking

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
)

const (
	abandonedTaskTitle = "URGENT: Follow up - Abandoned Booking"
	confirmTaskTitle   = "Send Booking Confirmation & Welcome"
	confirmAssignee    = "customer_service"
)

func handleBookingStarted(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*BookingStartedEvent)
	if !ok {
		return invalidPayload("booking.started")
	}
	status := enums.LeadStatusBookingInProgress
	// The deal value follows the latest quote, so a quote without an amount clears it.
	patch := contacts.Patch{LeadStatus: &status, ClearDealValue: !event.EstimatedTotal.Valid}
	if event.EstimatedTotal.Valid {
		patch.EstimatedDealValue = &event.EstimatedTotal.Decimal
	}
	if err := ec.update(ctx, "Started Booking", patch); err != nil {
		return err
	}
	return ec.record(ctx, "Booking Started", fmt.Sprintf("Started booking %s for %s to %s - Est. $%s",
		event.VehicleName.orUnknown(), event.PickupDate.orUnknown(), event.ReturnDate.orUnknown(),
		amountText(event.EstimatedTotal)))
}

func handleBookingStepCompleted(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*BookingStepCompletedEvent)
	if !ok {
		return invalidPayload("booking.step_completed")
	}
	step := event.Step.orUnknown()
	if err := ec.update(ctx, fmt.Sprintf("Completed %s Step", step), contacts.Patch{}); err != nil {
		return err
	}
	return ec.record(ctx, "Booking Progress", fmt.Sprintf("Completed booking step: %s", step))
}

// handleBookingAbandoned raises the one time-boxed follow-up. The due date
// counts from processing time so client delays do not shrink the window.
func handleBookingAbandoned(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*BookingAbandonedEvent)
	if !ok {
		return invalidPayload("booking.abandoned")
	}
	status := enums.LeadStatusAbandonedBooking
	// The deal value follows the latest quote, so a quote without an amount clears it.
	patch := contacts.Patch{LeadStatus: &status, ClearDealValue: !event.TotalPrice.Valid}
	if event.TotalPrice.Valid {
		patch.EstimatedDealValue = &event.TotalPrice.Decimal
	}
	if err := ec.update(ctx, "Abandoned Booking", patch); err != nil {
		return err
	}

	vehicle, step, price := event.VehicleName.orUnknown(), event.AbandonedAtStep.orUnknown(), amountText(event.TotalPrice)
	if err := ec.record(ctx, "Booking Abandoned",
		fmt.Sprintf("⚠️ Abandoned booking for %s at %s step - Value: $%s", vehicle, step, price)); err != nil {
		return err
	}
	return ec.enqueue(ctx, tasks.Draft{
		Title:       abandonedTaskTitle,
		Description: fmt.Sprintf("Customer abandoned $%s booking for %s at %s step. Call immediately to assist.", price, vehicle, step),
		Priority:    enums.TaskPriorityUrgent,
		DueDate:     ec.dueIn(ec.d.abandonedSLA),
	})
}

func handleBookingCompleted(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*BookingCompletedEvent)
	if !ok {
		return invalidPayload("booking.completed")
	}
	status := enums.LeadStatusCustomerActive
	patch := contacts.Patch{LeadStatus: &status, TotalBookingsDelta: 1}
	if event.TotalAmount.Valid {
		patch.TotalRevenueDelta = event.TotalAmount.Decimal
	}
	if err := ec.update(ctx, "Completed Booking", patch); err != nil {
		return err
	}

	confirmation := event.ConfirmationNumber.orUnknown()
	if err := ec.record(ctx, "Booking Completed", fmt.Sprintf(
		"✅ Completed booking #%s for %s - $%s (Total bookings: %d, Lifetime value: $%s)",
		confirmation, event.VehicleName.orUnknown(), amountText(event.TotalAmount),
		ec.contact.TotalBookings, ec.contact.TotalRevenue.String())); err != nil {
		return err
	}
	return ec.enqueue(ctx, tasks.Draft{
		Title:       confirmTaskTitle,
		Description: fmt.Sprintf("Send confirmation for booking #%s and welcome materials", confirmation),
		Priority:    enums.TaskPriorityHigh,
		AssignedTo:  confirmAssignee,
	})
}
