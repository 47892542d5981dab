// Package storage defines the durable key-value contract shared by the score
// ledger, statistics and preferences, plus JSON helpers on top of it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-quiz-service/internal/domain"
)

// Store is a durable key-value store holding opaque (JSON) values.
type Store interface {
	// Get returns the raw value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the value at key into dst. It returns found=false for a
// missing key and an error wrapping domain.ErrStorageCorrupt for a value that
// cannot be decoded. After a corrupt read dst may be partially filled and
// callers should start again from their default value.
func GetJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: key %s: %v", domain.ErrStorageCorrupt, key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
