package tracking

import (
	"context"

	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
)

// handlerFunc applies one event to the resolved contact. payload is the value
// produced by the entry's factory after event_data was decoded into it.
type handlerFunc func(ctx context.Context, ec *eventContext, payload any) error

type handlerEntry struct {
	factory func() any
	handle  handlerFunc
}

func defaultHandlers() map[enums.CRMEventType]handlerEntry {
	return map[enums.CRMEventType]handlerEntry{
		enums.CRMEventCustomerCreated: {
			factory: func() any { return &CustomerCreatedEvent{} },
			handle:  handleCustomerCreated,
		},
		enums.CRMEventCustomerLogin: {
			factory: func() any { return &CustomerLoginEvent{} },
			handle:  handleCustomerLogin,
		},
		enums.CRMEventCustomerUpdated: {
			factory: func() any { return &CustomerUpdatedEvent{} },
			handle:  handleCustomerUpdated,
		},
		enums.CRMEventSearchPerformed: {
			factory: func() any { return &SearchPerformedEvent{} },
			handle:  handleSearchPerformed,
		},
		enums.CRMEventVehicleViewed: {
			factory: func() any { return &VehicleViewedEvent{} },
			handle:  handleVehicleViewed,
		},
		enums.CRMEventBookingStarted: {
			factory: func() any { return &BookingStartedEvent{} },
			handle:  handleBookingStarted,
		},
		enums.CRMEventBookingStepCompleted: {
			factory: func() any { return &BookingStepCompletedEvent{} },
			handle:  handleBookingStepCompleted,
		},
		enums.CRMEventBookingAbandoned: {
			factory: func() any { return &BookingAbandonedEvent{} },
			handle:  handleBookingAbandoned,
		},
		enums.CRMEventBookingCompleted: {
			factory: func() any { return &BookingCompletedEvent{} },
			handle:  handleBookingCompleted,
		},
		enums.CRMEventPaymentAttempted: {
			factory: func() any { return &PaymentEvent{} },
			handle:  handlePaymentAttempted,
		},
		enums.CRMEventPaymentSuccessful: {
			factory: func() any { return &PaymentEvent{} },
			handle:  handlePaymentSuccessful,
		},
		enums.CRMEventPaymentFailed: {
			factory: func() any { return &PaymentEvent{} },
			handle:  handlePaymentFailed,
		},
		enums.CRMEventPageViewed: {
			factory: func() any { return &PageViewedEvent{} },
			handle:  handlePageViewed,
		},
		enums.CRMEventFormSubmitted: {
			factory: func() any { return &FormSubmittedEvent{} },
			handle:  handleFormSubmitted,
		},
		enums.CRMEventChatMessageSent: {
			factory: func() any { return &ChatMessageSentEvent{} },
			handle:  handleChatMessageSent,
		},
	}
}
