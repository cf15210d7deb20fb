package enums

// LeadStatus is the coarse funnel-stage label on a contact. Handlers overwrite
// it unconditionally, so any value may follow any other.
type LeadStatus string

const (
	LeadStatusNewLead           LeadStatus = "New Lead"
	LeadStatusBookingInProgress LeadStatus = "Hot Lead - Booking In Progress"
	LeadStatusAbandonedBooking  LeadStatus = "Hot Lead - Abandoned Booking"
	LeadStatusPaymentFailed     LeadStatus = "Hot Lead - Payment Failed"
	LeadStatusCustomerActive    LeadStatus = "Customer - Active"
)

func (l LeadStatus) String() string {
	return string(l)
}
