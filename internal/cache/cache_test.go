package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/slipbook/internal/config"
	"github.com/jask/slipbook/internal/slip"
)

func openSQLiteBackend(t *testing.T, prefix string) Backend {
	t.Helper()
	b, err := Open(context.Background(), config.CacheConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "nested", "cache.db"),
		Prefix: prefix,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeySalaries, "[]"))
	require.NoError(t, s.Set(ctx, KeySalaries, `[{"key":"a"}]`))
	v, ok, err := s.Get(ctx, KeySalaries)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"key":"a"}]`, v)

	require.NoError(t, s.Remove(ctx, KeySalaries))
	require.NoError(t, s.Remove(ctx, KeySalaries))
	_, ok, err = s.Get(ctx, KeySalaries)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyProfits, "[]"))
	require.NoError(t, s.Set(ctx, KeySessionLinked, "true"))
	require.NoError(t, s.Clear(ctx))
	for _, k := range []string{KeyProfits, KeySessionLinked, KeyProfile} {
		_, ok, err = s.Get(ctx, k)
		require.NoError(t, err)
		require.False(t, ok, k)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, openSQLiteBackend(t, "slipbook:"))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SLIPBOOK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SLIPBOOK_TEST_REDIS_ADDR not set")
	}
	r, err := DialRedis(context.Background(), addr, 0, "slipbook-test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	exerciseStore(t, r)
}

func TestSQLiteSeedsDefaultProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openSQLiteBackend(t, "slipbook:")

	_, ok, err := s.Get(ctx, KeyProfile)
	require.NoError(t, err)
	require.True(t, ok)

	p, err := LoadProfile(ctx, s)
	require.NoError(t, err)
	require.Equal(t, slip.MinGrade, p.Settings.Grade)
	require.Empty(t, p.AccountKey)
}

func TestSQLiteClearKeepsOtherPrefixes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sq := openSQLiteBackend(t, "a:").(*SQLite)
	other := NewSQLite(sq.DB(), "b:")

	require.NoError(t, sq.Set(ctx, KeySalaries, "1"))
	require.NoError(t, other.Set(ctx, KeySalaries, "2"))
	require.NoError(t, sq.Clear(ctx))

	v, ok, err := other.Get(ctx, KeySalaries)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), config.CacheConfig{Driver: "etcd"})
	require.ErrorContains(t, err, "unknown cache driver")

	_, err = Open(context.Background(), config.CacheConfig{Driver: "sqlite"})
	require.Error(t, err)
}

func TestDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	p, err := LoadProfile(ctx, s)
	require.NoError(t, err)
	require.Equal(t, slip.DefaultProfile(), p)

	p.AccountKey = "jd-01"
	p.Settings.DisplayName = "J. Doe"
	p.Derived.TotalSalary = decimal.RequireFromString("1234.50")
	require.NoError(t, SaveProfile(ctx, s, p))
	got, err := LoadProfile(ctx, s)
	require.NoError(t, err)
	require.Equal(t, "J. Doe", got.Settings.DisplayName)
	require.True(t, p.Derived.Equal(got.Derived))

	entries, err := LoadEntries[slip.Salary](ctx, s)
	require.NoError(t, err)
	require.Empty(t, entries)

	entries = []slip.Entry[slip.Salary]{
		slip.Pending[slip.Salary]{Key: "k1", Data: slip.Salary{Month: "01/2024"}},
		slip.Synced[slip.Salary]{Key: "k2", ID: 9, Data: slip.Salary{Month: "02/2024"}},
	}
	require.NoError(t, SaveEntries(ctx, s, entries))
	_, ok, err := s.Get(ctx, KeySalaries)
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := LoadEntries[slip.Salary](ctx, s)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.True(t, slip.IsPending(loaded[0]))
	id, ok := slip.RemoteID(loaded[1])
	require.True(t, ok)
	require.Equal(t, int64(9), id)

	sess, err := LoadSession(ctx, s)
	require.NoError(t, err)
	require.Equal(t, Session{}, sess)
	require.NoError(t, SaveSession(ctx, s, Session{AccountKey: "jd-01", Linked: true}))
	sess, err = LoadSession(ctx, s)
	require.NoError(t, err)
	require.Equal(t, Session{AccountKey: "jd-01", Linked: true}, sess)
	require.Equal(t, 5, s.Len())

	require.NoError(t, SaveSession(ctx, s, Session{AccountKey: "jd-01", Linked: true, ProfileDirty: true}))
	sess, err = LoadSession(ctx, s)
	require.NoError(t, err)
	require.True(t, sess.ProfileDirty)
	require.NoError(t, SaveSession(ctx, s, Session{ProfileDirty: true}))
	sess, err = LoadSession(ctx, s)
	require.NoError(t, err)
	require.Equal(t, Session{}, sess)
}

func TestCollectionKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, KeyIncentives, CollectionKey(slip.KindIncentive))
	require.Equal(t, KeyProfits, CollectionKey(slip.KindProfits))
	require.Panics(t, func() { CollectionKey("bonus") })
}
