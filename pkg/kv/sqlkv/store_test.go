package sqlkv

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type task struct {
	ID       string `json:"id"`
	Priority string `json:"priority"`
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Record{}))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(conn)
}

func TestStoreGetSetUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var got task
	assert.ErrorIs(t, store.Get(ctx, "crm_task_1", &got), kv.ErrNotFound)

	require.NoError(t, store.Set(ctx, "crm_task_1", task{ID: "1", Priority: "high"}))
	require.NoError(t, store.Set(ctx, "crm_task_1", task{ID: "1", Priority: "urgent"}))
	require.NoError(t, store.Get(ctx, "crm_task_1", &got))
	assert.Equal(t, "urgent", got.Priority)

	var count int64
	require.NoError(t, store.db.Model(&Record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStoreScanPrefixTreatsUnderscoreLiterally(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "crm_contact_task_c1_b", task{ID: "b"}))
	require.NoError(t, store.Set(ctx, "crm_contact_task_c1_a", task{ID: "a"}))
	require.NoError(t, store.Set(ctx, "crm_contact_task_c10_a", task{ID: "other"}))
	require.NoError(t, store.Set(ctx, "crmXcontact_task_c1_z", task{ID: "wildcard"}))
	require.NoError(t, store.Set(ctx, "CRM_CONTACT_TASK_C1_Q", task{ID: "upper"}))

	entries, err := store.ScanPrefix(ctx, "crm_contact_task_c1_")
	require.NoError(t, err)
	assert.Equal(t, []string{"crm_contact_task_c1_a", "crm_contact_task_c1_b"}, kv.Keys(entries))
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "a", task{ID: "a"}))
	require.NoError(t, store.Set(ctx, "b", task{ID: "b"}))
	require.NoError(t, store.Delete(ctx, "a", "missing"))
	require.NoError(t, store.Delete(ctx))

	entries, err := store.ScanPrefix(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, kv.Keys(entries))
	require.NoError(t, store.Ping(ctx))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `crm\_task\_`, escapeLike("crm_task_"))
	assert.Equal(t, `100\%\\`, escapeLike(`100%\`))
}
