// Package kv provides the shared key-value store port the entitlement
// engine persists its state through, together with memory, Redis and
// MongoDB implementations.
//
// The engine stores a handful of small JSON records (usage map, license
// snapshot, license key, trial record), each logically owned by a single
// component. The Store interface is deliberately minimal so the engine can
// run against whatever durable storage the host already has; MemoryStore
// doubles as the test fake.
//
// Example:
//
//	store := kv.NewMemoryStore()
//	if err := store.Set(ctx, "license_key", []byte("ABC-123")); err != nil {
//		// handle error
//	}
//	raw, err := store.Get(ctx, "license_key")
//	if errors.Is(err, kv.ErrKeyNotFound) {
//		// empty state
//	}
package kv
