package tracking

import (
	"context"
	"fmt"

	"github.com/angelmondragon/rentalcrm-backend/internal/contacts"
	"github.com/angelmondragon/rentalcrm-backend/internal/tasks"
	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
)

func handlePaymentAttempted(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*PaymentEvent)
	if !ok {
		return invalidPayload("payment.attempted")
	}
	if err := ec.update(ctx, "Attempted Payment", contacts.Patch{}); err != nil {
		return err
	}
	return ec.record(ctx, "Payment Attempted", fmt.Sprintf("Attempted payment of $%s", amountText(event.Amount)))
}

func handlePaymentSuccessful(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*PaymentEvent)
	if !ok {
		return invalidPayload("payment.successful")
	}
	if err := ec.update(ctx, "Payment Successful", contacts.Patch{}); err != nil {
		return err
	}
	return ec.record(ctx, "Payment Successful", fmt.Sprintf("✅ Payment successful: $%s", amountText(event.Amount)))
}

func handlePaymentFailed(ctx context.Context, ec *eventContext, payload any) error {
	event, ok := payload.(*PaymentEvent)
	if !ok {
		return invalidPayload("payment.failed")
	}
	status := enums.LeadStatusPaymentFailed
	if err := ec.update(ctx, "Payment Failed", contacts.Patch{LeadStatus: &status}); err != nil {
		return err
	}

	amount := amountText(event.Amount)
	if err := ec.record(ctx, "Payment Failed",
		fmt.Sprintf("❌ Payment failed: $%s - Reason: %s", amount, event.Error.orUnknown())); err != nil {
		return err
	}
	return ec.enqueue(ctx, tasks.Draft{
		Title:       "Follow up - Payment Failed",
		Description: fmt.Sprintf("Payment of $%s failed. Contact customer to assist with payment.", amount),
		Priority:    enums.TaskPriorityHigh,
	})
}
