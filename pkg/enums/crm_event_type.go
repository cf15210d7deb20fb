package enums

import "fmt"

// CRMEventType is the event_type carried by a tracking envelope.
type CRMEventType string

const (
	CRMEventCustomerCreated      CRMEventType = "customer.created"
	CRMEventCustomerLogin        CRMEventType = "customer.login"
	CRMEventCustomerUpdated      CRMEventType = "customer.updated"
	CRMEventSearchPerformed      CRMEventType = "search.performed"
	CRMEventVehicleViewed        CRMEventType = "vehicle.viewed"
	CRMEventBookingStarted       CRMEventType = "booking.started"
	CRMEventBookingStepCompleted CRMEventType = "booking.step_completed"
	CRMEventBookingAbandoned     CRMEventType = "booking.abandoned"
	CRMEventBookingCompleted     CRMEventType = "booking.completed"
	CRMEventPaymentAttempted     CRMEventType = "payment.attempted"
	CRMEventPaymentSuccessful    CRMEventType = "payment.successful"
	CRMEventPaymentFailed        CRMEventType = "payment.failed"
	CRMEventPageViewed           CRMEventType = "page.viewed"
	CRMEventFormSubmitted        CRMEventType = "form.submitted"
	CRMEventChatMessageSent      CRMEventType = "chat.message_sent"
)

var validCRMEventTypes = []CRMEventType{
	CRMEventCustomerCreated,
	CRMEventCustomerLogin,
	CRMEventCustomerUpdated,
	CRMEventSearchPerformed,
	CRMEventVehicleViewed,
	CRMEventBookingStarted,
	CRMEventBookingStepCompleted,
	CRMEventBookingAbandoned,
	CRMEventBookingCompleted,
	CRMEventPaymentAttempted,
	CRMEventPaymentSuccessful,
	CRMEventPaymentFailed,
	CRMEventPageViewed,
	CRMEventFormSubmitted,
	CRMEventChatMessageSent,
}

// CRMEventTypes returns every known event type.
func CRMEventTypes() []CRMEventType {
	out := make([]CRMEventType, len(validCRMEventTypes))
	copy(out, validCRMEventTypes)
	return out
}

func (e CRMEventType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known CRMEventType.
func (e CRMEventType) IsValid() bool {
	for _, candidate := range validCRMEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseCRMEventType converts the raw string to CRMEventType.
func ParseCRMEventType(value string) (CRMEventType, error) {
	for _, candidate := range validCRMEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid crm event type %q", value)
}
