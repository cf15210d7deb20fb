package tracking

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
)

// Envelope is the event body posted by the storefront. EventType stays a raw
// string because unknown types are accepted.
type Envelope struct {
	EventType string          `json:"event_type"`
	Customer  *Customer       `json:"customer,omitempty"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	Session   *Session        `json:"session,omitempty"`
}

type Customer struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Session struct {
	SessionID string `json:"session_id,omitempty"`
	Device    string `json:"device,omitempty"`
	Browser   string `json:"browser,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// DecodeEnvelope parses and validates a raw envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed event envelope")
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Validate checks the envelope shape. It never touches storage.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.EventType) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event_type is required")
	}
	if hasData(e.EventData) && bytes.TrimSpace(e.EventData)[0] != '{' {
		return pkgerrors.New(pkgerrors.CodeValidation, "event_data must be an object").
			WithDetails(map[string]any{"event_type": e.EventType})
	}
	return nil
}

func (e Envelope) Type() string {
	return strings.TrimSpace(e.EventType)
}

// Email returns the trimmed customer email, empty for anonymous events.
func (e Envelope) Email() string {
	if e.Customer == nil {
		return ""
	}
	return strings.TrimSpace(e.Customer.Email)
}

// OccurredAt returns event_data.timestamp when it is a valid RFC 3339 time.
func (e Envelope) OccurredAt() *time.Time {
	if !hasData(e.EventData) {
		return nil
	}
	var stamp struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(e.EventData, &stamp); err != nil || stamp.Timestamp == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, stamp.Timestamp)
	if err != nil {
		return nil
	}
	return &parsed
}

// metadata is what the activity log keeps for audit.
type metadata struct {
	EventData  json.RawMessage `json:"event_data,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	Session    *Session        `json:"session,omitempty"`
}

func (e Envelope) metadata() *metadata {
	meta := &metadata{Session: e.Session}
	if hasData(e.EventData) {
		meta.EventData = e.EventData
	}
	if e.Customer != nil {
		meta.CustomerID = strings.TrimSpace(e.Customer.ID)
	}
	if meta.EventData == nil && meta.CustomerID == "" && meta.Session == nil {
		return nil
	}
	return meta
}

func hasData(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
