package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T, store kv.Store) *Log {
	t.Helper()
	seq := 0
	log, err := NewLog(store, func() time.Time { return fixedNow }, func(prefix string) string {
		seq++
		return fmt.Sprintf("%s%04d", prefix, seq)
	})
	require.NoError(t, err)
	return log
}

func TestAppendWritesRecordAndIndex(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	log := newTestLog(t, store)

	act, err := log.Append(ctx, "contact_1", Draft{
		Type:        "Vehicle Viewed",
		Description: "Viewed Toyota Corolla (Sedan) - $45/day",
		Metadata:    map[string]any{"vehicle_id": "v1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "activity_0001", act.ID)
	assert.Equal(t, fixedNow, act.Timestamp)
	assert.JSONEq(t, `{"vehicle_id":"v1"}`, string(act.Metadata))

	var byID, byIndex Activity
	require.NoError(t, store.Get(ctx, "crm_activity_activity_0001", &byID))
	require.NoError(t, store.Get(ctx, "crm_contact_activity_contact_1_activity_0001", &byIndex))
	assert.Equal(t, byID, byIndex)
}

func TestAppendUsesSuppliedTimestamp(t *testing.T) {
	log := newTestLog(t, kv.NewMemoryStore())
	supplied := time.Date(2026, 4, 30, 22, 15, 0, 0, time.FixedZone("PDT", -7*3600))

	act, err := log.Append(context.Background(), "contact_1", Draft{Type: "Customer Login", Timestamp: &supplied})
	require.NoError(t, err)
	assert.True(t, act.Timestamp.Equal(supplied))
	assert.Equal(t, time.UTC, act.Timestamp.Location())
}

func TestListForContactIsScopedAndOrdered(t *testing.T) {
	ctx := context.Background()
	log := newTestLog(t, kv.NewMemoryStore())

	for i := 0; i < 3; i++ {
		_, err := log.Append(ctx, "contact_1", Draft{Type: fmt.Sprintf("step-%d", i)})
		require.NoError(t, err)
		_, err = log.Append(ctx, "contact_10", Draft{Type: "noise"})
		require.NoError(t, err)
	}

	items, err := log.ListForContact(ctx, "contact_1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, fmt.Sprintf("step-%d", i), item.Type)
		assert.Equal(t, "contact_1", item.ContactID)
	}
}

func TestAppendValidation(t *testing.T) {
	store := kv.NewMemoryStore()
	log := newTestLog(t, store)

	_, err := log.Append(context.Background(), "", Draft{Type: "x"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = log.Append(context.Background(), "contact_1", Draft{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	_, err = log.Append(context.Background(), "contact_1", Draft{Type: "x", Metadata: json.RawMessage(`{bad`)})
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}
