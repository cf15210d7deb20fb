package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCRMEventType(t *testing.T) {
	got, err := ParseCRMEventType("booking.abandoned")
	require.NoError(t, err)
	assert.Equal(t, CRMEventBookingAbandoned, got)

	_, err = ParseCRMEventType("quote.requested")
	assert.Error(t, err)
	assert.Len(t, CRMEventTypes(), 15)
}

func TestTaskPriority(t *testing.T) {
	assert.True(t, TaskPriorityUrgent.Alerting())
	assert.True(t, TaskPriorityHigh.Alerting())
	assert.False(t, TaskPriorityMedium.Alerting())

	_, err := ParseTaskPriority("critical")
	assert.Error(t, err)
	assert.True(t, TaskStatusInProgress.IsValid())
}

func TestStaffRole(t *testing.T) {
	assert.True(t, StaffRoleAdmin.CanReadCRM())
	assert.True(t, StaffRoleStaff.CanReadCRM())
	assert.False(t, StaffRoleCustomer.CanReadCRM())
	assert.False(t, StaffRole("root").IsValid())
}
