package service

import (
	"errors"
	"fmt"

	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/slip"
)

var (
	// ErrBusy is returned when another operation holds the record or session.
	ErrBusy = errors.New("operation already in progress")
	// ErrAuthentication is returned when an existing account rejects the PIN.
	ErrAuthentication = errors.New("account key or pin is incorrect")

	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotLinked       = errors.New("no linked account")
	ErrAlreadyLinked   = errors.New("already linked")
	ErrRemoteDisabled  = errors.New("no remote store configured")
)

// SyncError reports a write that was kept locally but did not reach the
// remote store.
type SyncError struct {
	Op   string
	Kind slip.Kind
	Key  string
	Err  error
}

func (e *SyncError) Error() string {
	subject := e.Op
	if e.Kind != "" {
		subject = fmt.Sprintf("%s %s %s", e.Op, e.Kind, e.Key)
	}
	return fmt.Sprintf("%s: saved on this device, not synced: %v", subject, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Code is the remote classification of the underlying failure.
func (e *SyncError) Code() remote.Code {
	if c := remote.CodeOf(e.Err); c != "" {
		return c
	}
	return remote.CodeUnavailable
}

// IsSyncError reports whether err left local state ahead of the remote store.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
