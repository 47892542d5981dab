// Package bunkv stores key-value records in a kv_entries table through bun.
// The same model serves the postgres and sqlite dialects.
package bunkv

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key       string    `bun:"key,pk"`
	Value     []byte    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// KVStore implements storage.Store on the kv_entries table.
type KVStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewKVStore(db *bun.DB) *KVStore {
	return &KVStore{db: db, now: time.Now}
}

// CreateTable creates kv_entries from the model when it does not exist yet.
// Postgres gets the table from migrations instead.
func CreateTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*kvEntry)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e kvEntry
	err := s.db.NewSelect().Model(&e).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e.Value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	e := &kvEntry{Key: key, Value: value, UpdatedAt: s.now()}
	_, err := s.db.NewInsert().
		Model(e).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*kvEntry)(nil)).Where("key = ?", key).Exec(ctx)
	return err
}
