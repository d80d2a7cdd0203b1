package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/slipbook/internal/config"
	"github.com/jask/slipbook/internal/prefs"
	"github.com/jask/slipbook/internal/service"
)

// writeConfig stores a config using a sqlite cache in a temp dir and,
// with withRemote, a sqlite remote store next to it.
func writeConfig(t *testing.T, dir string, withRemote bool) string {
	t.Helper()
	cfg := config.Config{
		Cache:  config.CacheConfig{Driver: "sqlite", Path: filepath.Join(dir, "cache.db"), Prefix: "slipbook:"},
		Remote: config.RemoteConfig{Driver: "none"},
		Log:    config.LogConfig{Level: "warn", Format: "text"},
	}
	if withRemote {
		cfg.Remote = config.RemoteConfig{Driver: "sqlite", DSN: filepath.Join(filepath.Dir(dir), "remote.db"), Timeout: 5 * time.Second}
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type itemView struct {
	Index   int  `json:"index"`
	Pending bool `json:"pending"`
	Slip    struct {
		Month  string `json:"month"`
		Rating string `json:"rating"`
		Total  string `json:"total_incentive_amount"`
	} `json:"slip"`
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "slipbook", cmd.Use)

	for _, name := range []string{"status", "list", "add", "update", "delete", "link", "unlink", "refresh", "sync", "recalc", "settings", "export", "config"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)
	_, _, err := execute(t, cfg, "--format", "xml", "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStatusJSONGolden(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)
	_, _, err := execute(t, cfg, "add", "salary", "--month", "01/2024", "--total", "1,000", "--bonus", "100")
	require.NoError(t, err)

	out, _, err := execute(t, cfg, "--format", "json", "status")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "status_json", []byte(out))
}

func TestAddValidation(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)

	out, _, err := execute(t, cfg, "--format", "json", "add", "salary", "--month", "13/2024", "--total", "10")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `"status": "error"`)
	assert.Contains(t, out, `"code": "validation"`)

	_, _, err = execute(t, cfg, "add", "incentive", "--month", "01/2024", "--rating", "Meats Expectations", "--points", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err = execute(t, cfg, "--format", "json", "list", "salary")
	require.NoError(t, err)
	assert.Empty(t, decode[[]json.RawMessage](t, out))
}

func TestAddUpdateDeleteFlow(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)

	_, _, err := execute(t, cfg, "add", "incentive", "--month", "02/2024", "--points", "90",
		"--rating", "exceeds expectatons", "--total", "1200", "--rewards", "50")
	require.NoError(t, err)

	out, _, err := execute(t, cfg, "--format", "json", "update", "incentive", "0", "--total", "1500")
	require.NoError(t, err)
	item := decode[itemView](t, out)
	assert.Equal(t, 0, item.Index)
	assert.True(t, item.Pending)
	assert.Equal(t, "02/2024", item.Slip.Month)
	assert.Equal(t, "Exceeds Expectations", item.Slip.Rating)
	assert.Equal(t, "1500", item.Slip.Total)

	out, _, err = execute(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "1,500.00")
	assert.Contains(t, out, "50.00")

	_, _, err = execute(t, cfg, "delete", "incentive", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, _, err = execute(t, cfg, "delete", "incentive", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted incentive 0")

	out, _, err = execute(t, cfg, "list", "incentives")
	require.NoError(t, err)
	assert.Contains(t, out, "no slips")
}

func TestSettingsAndRecalc(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)

	out, _, err := execute(t, cfg, "--format", "json", "settings",
		"--name", "J. Doe", "--grade", "5", "--regular-bonus", "3",
		"--course", "Safety", "--course", "First aid", "--completed", "First aid",
		"--service-start", "2019-09-01", "--regular-balance", "10")
	require.NoError(t, err)
	var p struct {
		Settings struct {
			DisplayName      string   `json:"display_name"`
			Grade            int      `json:"grade"`
			CoursesNames     []string `json:"courses_names"`
			CoursesCompleted []bool   `json:"courses_completed"`
			ServiceStart     string   `json:"service_start"`
		} `json:"settings"`
		Derived struct {
			RegularLeaveBalance int `json:"regular_leave_balance"`
		} `json:"derived"`
	}
	raw := decode[json.RawMessage](t, out)
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, "J. Doe", p.Settings.DisplayName)
	assert.Equal(t, 5, p.Settings.Grade)
	assert.Equal(t, []string{"Safety", "First aid"}, p.Settings.CoursesNames)
	assert.Equal(t, []bool{false, true}, p.Settings.CoursesCompleted)
	assert.Equal(t, "2019-09-01T00:00:00Z", p.Settings.ServiceStart)
	assert.Equal(t, 10, p.Derived.RegularLeaveBalance)

	_, _, err = execute(t, cfg, "add", "incentive", "--month", "03/2024", "--rating", "Meets Expectations", "--regular-leave", "0")
	require.NoError(t, err)
	_, _, err = execute(t, cfg, "add", "salary", "--month", "03/2024", "--total", "2500.5", "--bonus", "10")
	require.NoError(t, err)

	out, _, err = execute(t, cfg, "recalc")
	require.NoError(t, err)
	assert.Contains(t, out, "2,500.50")
	assert.Contains(t, out, "13")

	_, _, err = execute(t, cfg, "settings", "--grade", "99")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, cfg, "settings", "--completed", "Unknown")
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, false)
	_, _, err := execute(t, cfg, "add", "profits", "--year", "2024", "--period", "h1", "--points", "80",
		"--rating", "Outstanding", "--total", "3000")
	require.NoError(t, err)

	path := filepath.Join(dir, "export.yaml")
	out, _, err := execute(t, cfg, "--format", "json", "export", "--out", path)
	require.NoError(t, err)
	v := decode[exportView](t, out)
	assert.Equal(t, prefs.FormatYAML, v.Format)
	assert.Equal(t, 1, v.Entries)
	assert.Equal(t, 1, v.Pending)

	var snap service.Snapshot
	require.NoError(t, prefs.LoadSnapshot(path, &snap))
	require.Len(t, snap.Profits, 1)
	assert.Equal(t, 2024, snap.Profits[0].Slip.Year)
	assert.True(t, snap.Profits[0].Pending)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestOfflineCommandsWithoutRemote(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), false)

	_, _, err := execute(t, cfg, "link", "--account", "jd-01", "--pin", "1234")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrRemoteDisabled)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, cfg, "refresh")
	assert.ErrorIs(t, err, service.ErrNotLinked)
	_, _, err = execute(t, cfg, "unlink")
	assert.ErrorIs(t, err, service.ErrNotLinked)
}

func TestLinkAcrossDevices(t *testing.T) {
	root := t.TempDir()
	phone := filepath.Join(root, "phone")
	laptop := filepath.Join(root, "laptop")
	require.NoError(t, os.MkdirAll(phone, 0o755))
	require.NoError(t, os.MkdirAll(laptop, 0o755))
	phoneCfg := writeConfig(t, phone, true)
	laptopCfg := writeConfig(t, laptop, true)

	_, _, err := execute(t, phoneCfg, "add", "salary", "--month", "04/2024", "--total", "900")
	require.NoError(t, err)
	out, _, err := execute(t, phoneCfg, "--format", "json", "link", "--account", "jd-01", "--pin", "1234")
	require.NoError(t, err)
	sess := decode[service.Session](t, out)
	assert.Equal(t, service.Session{State: service.StateLinked, AccountKey: "jd-01"}, sess)

	_, _, err = execute(t, laptopCfg, "link", "--account", "jd-01", "--pin", "0000")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrAuthentication)

	_, _, err = execute(t, laptopCfg, "link", "--account", "jd-01", "--pin", "1234")
	require.NoError(t, err)
	out, _, err = execute(t, laptopCfg, "list", "salary")
	require.NoError(t, err)
	assert.Contains(t, out, "04/2024")
	assert.Contains(t, out, "synced")

	_, _, err = execute(t, laptopCfg, "add", "salary", "--month", "05/2024", "--total", "950")
	require.NoError(t, err)
	out, _, err = execute(t, phoneCfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "jd-01")
	assert.Contains(t, out, "1,850.00")

	out, _, err = execute(t, phoneCfg, "--format", "json", "sync")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"pushed": 0, "pending": 0}, decode[map[string]int](t, out))

	out, _, err = execute(t, phoneCfg, "--format", "json", "refresh")
	require.NoError(t, err)
	assert.Equal(t, 0, decode[refreshView](t, out).Removed)

	out, _, err = execute(t, phoneCfg, "--offline", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Last cleanup")

	_, _, err = execute(t, phoneCfg, "unlink")
	require.NoError(t, err)
	out, _, err = execute(t, phoneCfg, "--format", "json", "status")
	require.NoError(t, err)
	assert.Contains(t, out, `"salaries": 0`)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	out, _, err := execute(t, path, "--format", "json", "config", "init")
	require.NoError(t, err)
	v := decode[configView](t, out)
	assert.Equal(t, path, v.Path)
	assert.Equal(t, "sqlite", v.CacheDriver)
	assert.False(t, v.RemoteEnabled)
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "slipbook:", cfg.Cache.Prefix)

	_, _, err = execute(t, path, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--force")

	existing := writeConfig(t, dir, true)
	out, _, err = execute(t, existing, "--format", "json", "config", "init", "--force")
	require.NoError(t, err)
	v = decode[configView](t, out)
	assert.Equal(t, "sqlite", v.RemoteDriver)
	assert.True(t, v.RemoteEnabled)
	cfg, err = config.LoadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
}
