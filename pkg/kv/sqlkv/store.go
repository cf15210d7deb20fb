// Package sqlkv implements kv.Store on a single SQL table through GORM.
package sqlkv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalcrm-backend/pkg/errors"
	"github.com/angelmondragon/rentalcrm-backend/pkg/kv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deleteBatch = 500

// Record is one row of kv_store.
type Record struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Record) TableName() string { return "kv_store" }

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ kv.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Get(ctx context.Context, key string, dest any) error {
	var rec Record
	err := s.db.WithContext(ctx).Where(&Record{Key: key}).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return kv.ErrNotFound
		}
		return unavailable(err, "select")
	}
	return kv.Decode(key, []byte(rec.Value), dest)
}

// Set upserts the row so the write is a single statement.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := kv.Encode(value)
	if err != nil {
		return err
	}
	rec := Record{Key: key, Value: string(data), UpdatedAt: s.now().UTC()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
	if err != nil {
		return unavailable(err, "upsert")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		err := s.db.WithContext(ctx).
			Where(clause.IN{Column: clause.Column{Name: "key"}, Values: toAny(keys[start:end])}).
			Delete(&Record{}).Error
		if err != nil {
			return unavailable(err, "delete")
		}
	}
	return nil
}

// ScanPrefix narrows with LIKE, then filters with a byte-wise prefix check
// because SQLite LIKE is case-insensitive. Ordering happens in Go so it does
// not depend on the database collation.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]kv.Entry, error) {
	var rows []Record
	err := s.db.WithContext(ctx).
		Where(`"key" LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Find(&rows).Error
	if err != nil {
		return nil, unavailable(err, "scan")
	}

	entries := make([]kv.Entry, 0, len(rows))
	for _, row := range rows {
		if !strings.HasPrefix(row.Key, prefix) {
			continue
		}
		entries = append(entries, kv.Entry{Key: row.Key, Value: []byte(row.Value)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable(err, "ping")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable(err, "ping")
	}
	return nil
}

func unavailable(err error, op string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("kv_store %s failed", op))
}

func escapeLike(prefix string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
}

func toAny(keys []string) []any {
	out := make([]any, len(keys))
	for i, key := range keys {
		out[i] = key
	}
	return out
}
