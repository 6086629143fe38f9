// Package store provides the named-collection persistence contract the
// engine runs on, plus the available backends. A collection is a raw
// JSON document, written whole; the engine never assumes transactional
// coupling between collections.
package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names used by the engine.
const (
	CollectionStudents       = "students"
	CollectionConductRecords = "conductRecords"
	CollectionSettings       = "settings"
	CollectionPendingOrders  = "pendingOrders"
	CollectionCoinGrants     = "coinGrants"
)

// Store is the external persistence contract. Get returns nil with no
// error for a collection that was never written.
type Store interface {
	Get(ctx context.Context, collection string) ([]byte, error)
	Set(ctx context.Context, collection string, payload []byte) error
}

// Load reads and unmarshals a collection into dest. An absent
// collection leaves dest untouched.
func Load(ctx context.Context, s Store, collection string, dest interface{}) error {
	raw, err := s.Get(ctx, collection)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", collection, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal collection %s: %w", collection, err)
	}
	return nil
}

// Save marshals value and writes the collection in one call.
func Save(ctx context.Context, s Store, collection string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal collection %s: %w", collection, err)
	}
	if err := s.Set(ctx, collection, payload); err != nil {
		return fmt.Errorf("set collection %s: %w", collection, err)
	}
	return nil
}
