package contacts

import (
	"strings"
	"time"

	"github.com/angelmondragon/rentalcrm-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	DefaultLeadSource = "Website"
	actionCreated     = "Created"
)

func init() {
	// Stored documents are read by the dashboard, which expects JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Contact is the durable CRM record for one customer email.
type Contact struct {
	ID                 string           `json:"id"`
	Email              string           `json:"email"`
	FirstName          string           `json:"first_name"`
	LastName           string           `json:"last_name"`
	Phone              string           `json:"phone"`
	LeadSource         string           `json:"lead_source"`
	LeadStatus         enums.LeadStatus `json:"lead_status"`
	LastActivity       time.Time        `json:"last_activity"`
	LastAction         string           `json:"last_action"`
	LastVehicleViewed  string           `json:"last_vehicle_viewed,omitempty"`
	LastSearchLocation string           `json:"last_search_location,omitempty"`
	EstimatedDealValue *decimal.Decimal `json:"estimated_deal_value"`
	TotalBookings      int              `json:"total_bookings"`
	TotalRevenue       decimal.Decimal  `json:"total_revenue"`
	WebsiteVisits      int              `json:"website_visits"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Hint carries profile data used only when a contact is first created.
type Hint struct {
	Name  string
	Phone string
}

// SplitName returns the first word and the remainder of a full name.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func newContact(id, email string, hint Hint, now time.Time) Contact {
	first, last := SplitName(hint.Name)
	return Contact{
		ID:            id,
		Email:         email,
		FirstName:     first,
		LastName:      last,
		Phone:         strings.TrimSpace(hint.Phone),
		LeadSource:    DefaultLeadSource,
		LeadStatus:    enums.LeadStatusNewLead,
		LastActivity:  now,
		LastAction:    actionCreated,
		TotalRevenue:  decimal.Zero,
		WebsiteVisits: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Patch is a shallow merge: nil fields are preserved. Counters are applied as
// non-negative deltas so totals can only grow.
type Patch struct {
	FirstName          *string
	LastName           *string
	Phone              *string
	LeadSource         *string
	LeadStatus         *enums.LeadStatus
	LastActivity       *time.Time
	LastAction         *string
	LastVehicleViewed  *string
	LastSearchLocation *string
	EstimatedDealValue *decimal.Decimal
	// ClearDealValue nulls estimated_deal_value; EstimatedDealValue wins if both are set.
	ClearDealValue bool

	TotalBookingsDelta int
	TotalRevenueDelta  decimal.Decimal
	WebsiteVisitsDelta int
}

func (p Patch) validate() error {
	if p.TotalBookingsDelta < 0 || p.WebsiteVisitsDelta < 0 || p.TotalRevenueDelta.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "contact counters cannot decrease")
	}
	return nil
}

func (p Patch) apply(c *Contact) {
	setString(&c.FirstName, p.FirstName)
	setString(&c.LastName, p.LastName)
	setString(&c.Phone, p.Phone)
	setString(&c.LeadSource, p.LeadSource)
	setString(&c.LastAction, p.LastAction)
	setString(&c.LastVehicleViewed, p.LastVehicleViewed)
	setString(&c.LastSearchLocation, p.LastSearchLocation)
	if p.LeadStatus != nil {
		c.LeadStatus = *p.LeadStatus
	}
	if p.LastActivity != nil {
		c.LastActivity = *p.LastActivity
	}
	if p.EstimatedDealValue != nil {
		value := *p.EstimatedDealValue
		c.EstimatedDealValue = &value
	} else if p.ClearDealValue {
		c.EstimatedDealValue = nil
	}
	c.TotalBookings += p.TotalBookingsDelta
	c.TotalRevenue = c.TotalRevenue.Add(p.TotalRevenueDelta)
	c.WebsiteVisits += p.WebsiteVisitsDelta
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
