package tracking

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Text accepts a JSON string, number or bool. Browser payloads send ids and
// labels with whichever type the page happened to hold.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return err
	}
	switch scalar.(type) {
	case float64, bool:
		*t = Text(data)
		return nil
	default:
		return errors.New("expected a string or number")
	}
}

func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

func (t Text) orUnknown() string {
	if s := t.String(); s != "" {
		return s
	}
	return unknownValue
}

const unknownValue = "unknown"

// amountText renders a currency amount the way descriptions show it.
func amountText(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return "0"
	}
	return amount.Decimal.String()
}

type validatable interface {
	validate() error
}

func nonNegative(field string, amount decimal.NullDecimal) error {
	if amount.Valid && amount.Decimal.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" cannot be negative")
	}
	return nil
}

type CustomerCreatedEvent struct{}

type CustomerLoginEvent struct{}

// ProfileUpdates lists the contact fields a customer.updated event may write.
type ProfileUpdates struct {
	Name       *string `json:"name"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	LeadSource *string `json:"lead_source"`
}

type CustomerUpdatedEvent struct {
	Updates ProfileUpdates `json:"updates"`
}

type SearchPerformedEvent struct {
	Location       Text `json:"location"`
	PickupLocation Text `json:"pickup_location"`
}

func (e SearchPerformedEvent) location() string {
	if loc := e.Location.String(); loc != "" {
		return loc
	}
	return e.PickupLocation.String()
}

type VehicleViewedEvent struct {
	VehicleID   Text                `json:"vehicle_id"`
	VehicleName Text                `json:"vehicle_name"`
	VehicleType Text                `json:"vehicle_type"`
	DailyRate   decimal.NullDecimal `json:"daily_rate"`
}

type BookingStartedEvent struct {
	VehicleID      Text                `json:"vehicle_id"`
	VehicleName    Text                `json:"vehicle_name"`
	PickupLocation Text                `json:"pickup_location"`
	PickupDate     Text                `json:"pickup_date"`
	ReturnDate     Text                `json:"return_date"`
	EstimatedTotal decimal.NullDecimal `json:"estimated_total"`
}

func (e *BookingStartedEvent) validate() error {
	return nonNegative("estimated_total", e.EstimatedTotal)
}

type BookingStepCompletedEvent struct {
	Step        Text `json:"step"`
	VehicleID   Text `json:"vehicle_id"`
	VehicleName Text `json:"vehicle_name"`
}

type BookingAbandonedEvent struct {
	AbandonedAtStep Text                `json:"abandoned_at_step"`
	VehicleID       Text                `json:"vehicle_id"`
	VehicleName     Text                `json:"vehicle_name"`
	PickupLocation  Text                `json:"pickup_location"`
	PickupDate      Text                `json:"pickup_date"`
	ReturnDate      Text                `json:"return_date"`
	TotalPrice      decimal.NullDecimal `json:"total_price"`
}

func (e *BookingAbandonedEvent) validate() error {
	return nonNegative("total_price", e.TotalPrice)
}

type BookingCompletedEvent struct {
	BookingID          Text                `json:"booking_id"`
	ConfirmationNumber Text                `json:"confirmation_number"`
	VehicleID          Text                `json:"vehicle_id"`
	VehicleName        Text                `json:"vehicle_name"`
	PickupLocation     Text                `json:"pickup_location"`
	PickupDate         Text                `json:"pickup_date"`
	ReturnDate         Text                `json:"return_date"`
	TotalAmount        decimal.NullDecimal `json:"total_amount"`
}

func (e *BookingCompletedEvent) validate() error {
	return nonNegative("total_amount", e.TotalAmount)
}

// PaymentEvent covers payment.attempted, payment.successful and payment.failed.
type PaymentEvent struct {
	Amount decimal.NullDecimal `json:"amount"`
	Error  Text                `json:"error"`
}

type PageViewedEvent struct {
	Page Text `json:"page"`
}

type FormSubmittedEvent struct {
	FormType Text `json:"form_type"`
}

type ChatMessageSentEvent struct {
	Message Text `json:"message"`
}

// decodePayload fills dest from event_data. Absent data leaves dest zero.
func decodePayload(eventType string, raw json.RawMessage, dest any) error {
	if hasData(raw) {
		if err := json.Unmarshal(raw, dest); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event_data").
				WithDetails(map[string]any{"event_type": eventType, "reason": err.Error()})
		}
	}
	if v, ok := dest.(validatable); ok {
		if err := v.validate(); err != nil {
			return err
		}
	}
	return nil
}
