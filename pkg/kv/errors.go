package kv

import "errors"

var (
	// ErrKeyNotFound indicates the key has no stored value.
	ErrKeyNotFound = errors.New("kv: key not found")

	// ErrEmptyKey indicates an operation was called with an empty key.
	ErrEmptyKey = errors.New("kv: empty key")

	// ErrStoreClosed indicates the store has been closed and can no longer
	// serve requests.
	ErrStoreClosed = errors.New("kv: store closed")

	ErrFailedToParseRedisConnString = errors.New("kv: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("kv: redis did not become ready within the given time period")
	ErrFailedToConnectToMongo       = errors.New("kv: failed to connect to mongo")
)
