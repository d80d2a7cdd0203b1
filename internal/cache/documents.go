package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jask/slipbook/internal/slip"
)

// Session is the persisted link between this device and a remote account.
// ProfileDirty marks local profile changes the account has not seen yet.
type Session struct {
	AccountKey   string
	Linked       bool
	ProfileDirty bool
}

// CollectionKey is the cache key of the collection holding kind.
func CollectionKey(kind slip.Kind) string {
	switch kind {
	case slip.KindIncentive:
		return KeyIncentives
	case slip.KindSalary:
		return KeySalaries
	case slip.KindProfits:
		return KeyProfits
	}
	panic(fmt.Sprintf("cache: unknown slip kind %q", kind))
}

// LoadProfile returns the cached profile, or the default profile when the
// cache holds none.
func LoadProfile(ctx context.Context, s Store) (slip.Profile, error) {
	raw, ok, err := s.Get(ctx, KeyProfile)
	if err != nil {
		return slip.Profile{}, err
	}
	if !ok {
		return slip.DefaultProfile(), nil
	}
	var p slip.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return slip.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if p.Settings.CoursesNames == nil {
		p.Settings.CoursesNames = []string{}
	}
	if p.Settings.CoursesCompleted == nil {
		p.Settings.CoursesCompleted = []bool{}
	}
	return p, nil
}

func SaveProfile(ctx context.Context, s Store, p slip.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.Set(ctx, KeyProfile, string(raw))
}

// LoadEntries returns the cached collection for T; a missing key is an empty
// collection.
func LoadEntries[T slip.Data](ctx context.Context, s Store) ([]slip.Entry[T], error) {
	var zero T
	key := CollectionKey(zero.Kind())
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	entries, err := slip.UnmarshalEntries[T]([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return entries, nil
}

func SaveEntries[T slip.Data](ctx context.Context, s Store, entries []slip.Entry[T]) error {
	var zero T
	key := CollectionKey(zero.Kind())
	raw, err := slip.MarshalEntries(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

func LoadSession(ctx context.Context, s Store) (Session, error) {
	account, _, err := s.Get(ctx, KeySessionAccount)
	if err != nil {
		return Session{}, err
	}
	linked, ok, err := s.Get(ctx, KeySessionLinked)
	if err != nil {
		return Session{}, err
	}
	dirty, _, err := s.Get(ctx, KeySessionDirty)
	if err != nil {
		return Session{}, err
	}
	sess := Session{AccountKey: account}
	if ok {
		sess.Linked, _ = strconv.ParseBool(linked)
	}
	sess.ProfileDirty, _ = strconv.ParseBool(dirty)
	if sess.AccountKey == "" {
		sess.Linked = false
		sess.ProfileDirty = false
	}
	return sess, nil
}

func SaveSession(ctx context.Context, s Store, sess Session) error {
	if err := s.Set(ctx, KeySessionAccount, sess.AccountKey); err != nil {
		return err
	}
	if err := s.Set(ctx, KeySessionLinked, strconv.FormatBool(sess.Linked)); err != nil {
		return err
	}
	return s.Set(ctx, KeySessionDirty, strconv.FormatBool(sess.ProfileDirty))
}
