// Package cache is the device-local key/value store the engine persists its
// state to. Values are opaque strings; the typed helpers in documents.go
// encode the profile, the slip collections and the session as JSON.
package cache

import "context"

// Store is the local cache contract. Get reports ok=false for a missing key.
// Keys passed in are unprefixed; backends apply their own namespace.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Logical keys.
const (
	KeyProfile        = "profile"
	KeyIncentives     = "slips/incentive"
	KeySalaries       = "slips/salary"
	KeyProfits        = "slips/profits"
	KeySessionAccount = "session/account"
	KeySessionLinked  = "session/linked"
	KeySessionDirty   = "session/profile_dirty"
)
