package slip

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is a stored slip. It is exactly one of Pending (held only on this
// device) or Synced (persisted remotely under ID).
type Entry[T Data] interface {
	LocalKey() string
	Slip() T
	entry()
}

// Pending is a slip that has not been acknowledged by the remote store.
type Pending[T Data] struct {
	Key  string
	Data T
}

// Synced is a slip the remote store has issued an identifier for.
type Synced[T Data] struct {
	Key       string
	ID        int64
	CreatedAt time.Time
	Data      T
}

func (p Pending[T]) LocalKey() string { return p.Key }
func (p Pending[T]) Slip() T          { return p.Data }
func (Pending[T]) entry()             {}

func (s Synced[T]) LocalKey() string { return s.Key }
func (s Synced[T]) Slip() T          { return s.Data }
func (Synced[T]) entry()             {}

// RemoteID returns the remote identifier of e, if it has one.
func RemoteID[T Data](e Entry[T]) (int64, bool) {
	switch v := e.(type) {
	case Synced[T]:
		return v.ID, true
	case Pending[T]:
		return 0, false
	default:
		panic(fmt.Sprintf("slip: unexpected entry type %T", e))
	}
}

// IsPending reports whether e still waits for a remote identifier.
func IsPending[T Data](e Entry[T]) bool {
	_, ok := RemoteID(e)
	return !ok
}

// WithData returns e carrying data instead, keeping its key and identifier.
func WithData[T Data](e Entry[T], data T) Entry[T] {
	switch v := e.(type) {
	case Synced[T]:
		v.Data = data
		return v
	case Pending[T]:
		v.Data = data
		return v
	default:
		panic(fmt.Sprintf("slip: unexpected entry type %T", e))
	}
}

// Values strips entries down to their slip data.
func Values[T Data](entries []Entry[T]) []T {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Slip())
	}
	return out
}

// CountPending counts entries without a remote identifier.
func CountPending[T Data](entries []Entry[T]) int {
	n := 0
	for _, e := range entries {
		if IsPending(e) {
			n++
		}
	}
	return n
}

// entryDoc is the cache document form of an Entry. A zero ID means pending.
type entryDoc[T Data] struct {
	Key       string     `json:"key"`
	ID        int64      `json:"id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Data      T          `json:"data"`
}

// MarshalEntries encodes a collection for the local cache.
func MarshalEntries[T Data](entries []Entry[T]) ([]byte, error) {
	docs := make([]entryDoc[T], 0, len(entries))
	for _, e := range entries {
		doc := entryDoc[T]{Key: e.LocalKey(), Data: e.Slip()}
		if s, ok := e.(Synced[T]); ok {
			doc.ID = s.ID
			if !s.CreatedAt.IsZero() {
				at := s.CreatedAt
				doc.CreatedAt = &at
			}
		}
		docs = append(docs, doc)
	}
	return json.Marshal(docs)
}

// UnmarshalEntries decodes a collection written by MarshalEntries.
func UnmarshalEntries[T Data](raw []byte) ([]Entry[T], error) {
	var docs []entryDoc[T]
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	out := make([]Entry[T], 0, len(docs))
	for _, d := range docs {
		if d.Key == "" {
			return nil, fmt.Errorf("entry without key")
		}
		if d.ID == 0 {
			out = append(out, Pending[T]{Key: d.Key, Data: d.Data})
			continue
		}
		s := Synced[T]{Key: d.Key, ID: d.ID, Data: d.Data}
		if d.CreatedAt != nil {
			s.CreatedAt = *d.CreatedAt
		}
		out = append(out, s)
	}
	return out, nil
}
