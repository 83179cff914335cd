package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilpntr/lumber"
	"github.com/nilpntr/lumber/lumbermdc"
	"github.com/nilpntr/lumber/lumberpg"
)

const testSealKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`
[log]
level = "debug"
bridge = "postgres"

[postgres]
url = "postgres://localhost/logs"
flush_interval = "250ms"

[seal]
key = "` + testSealKey + `"
fields = ["password"]
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, 100, cfg.Postgres.BatchSize)
	assert.Equal(t, []string{"password"}, cfg.Seal.Fields)

	interval, err := cfg.flushInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, interval)
}

func TestReadConfigRejectsBadTOML(t *testing.T) {
	_, err := ReadConfig(strings.NewReader("[log\nlevel ="))
	require.Error(t, err)
}

func TestFileConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*FileConfig)
		field  string
	}{
		{"level", func(c *FileConfig) { c.Log.Level = "loud" }, "log.level"},
		{"bridge", func(c *FileConfig) { c.Log.Bridge = "syslog" }, "log.bridge"},
		{"postgres url", func(c *FileConfig) { c.Log.Bridge = "postgres" }, "postgres.url"},
		{"encoding", func(c *FileConfig) { c.Log.Encoding = "xml" }, "log.encoding"},
		{"buffer size", func(c *FileConfig) { c.Postgres.BufferSize = 10 }, "postgres.buffer_size"},
		{"flush interval", func(c *FileConfig) { c.Postgres.FlushInterval = "soon" }, "postgres.flush_interval"},
		{"seal key", func(c *FileConfig) { c.Seal.Key = "abc" }, "seal.key"},
		{"seal fields without key", func(c *FileConfig) { c.Seal.Fields = []string{"x"} }, "seal.key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultFileConfig()
			tt.modify(cfg)

			var valErr *lumber.ValidationError
			require.ErrorAs(t, cfg.Validate(), &valErr)
			assert.Equal(t, tt.field, valErr.Field)
		})
	}
	require.NoError(t, DefaultFileConfig().Validate())
}

func TestLargeBatchSizeOpensSink(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(`
[log]
bridge = "postgres"

[postgres]
url = "postgres://localhost/logs"
batch_size = 2000
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	sc := sinkConfig(cfg, lumber.LevelInfo)
	sc.SetDefaults()
	require.NoError(t, sc.Validate())
	assert.Equal(t, 2000, sc.BufferSize)

	cfg.Postgres.BufferSize = 4096
	sc = sinkConfig(cfg, lumber.LevelInfo)
	sc.SetDefaults()
	require.NoError(t, sc.Validate())
	assert.Equal(t, 4096, sc.BufferSize)
}

func TestReadConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")

	cfg, err := ReadConfigFile(missing, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultFileConfig(), cfg)

	_, err = ReadConfigFile(missing, false)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"user=alice", "query=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []lumber.Field{lumber.F("user", "alice"), lumber.F("query", "a=b")}, fields)

	_, err = parseFields([]string{"novalue"})
	require.Error(t, err)
	_, err = parseFields([]string{"=x"})
	require.Error(t, err)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumber.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestEmitLogfmt(t *testing.T) {
	t.Cleanup(lumber.Reset)
	path := writeConfig(t, `
[log]
level = "info"
bridge = "logfmt"

[seal]
key = "`+testSealKey+`"
fields = ["secret"]
`)

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", path, "emit", "user created",
		"--logger", "accounts", "--level", "warn", "--tag", "audit",
		"--field", "user=alice", "--field", "secret=hunter2"})
	require.NoError(t, cmd.Execute())

	dec := logfmt.NewDecoder(&stderr)
	require.True(t, dec.ScanRecord())
	got := map[string]string{}
	for dec.ScanKeyval() {
		got[string(dec.Key())] = string(dec.Value())
	}
	require.NoError(t, dec.Err())

	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "user created", got["msg"])
	assert.Equal(t, "accounts", got["logger"])
	assert.Equal(t, "audit", got["tag"])
	assert.Equal(t, "alice", got["user"])
	assert.True(t, strings.HasPrefix(got["secret"], lumber.SealedPrefix))
}

func TestEmitBelowLevelWritesNothing(t *testing.T) {
	t.Cleanup(lumber.Reset)
	path := writeConfig(t, "[log]\nlevel = \"error\"\nbridge = \"logfmt\"\n")

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", path, "emit", "quiet", "--level", "info"})
	require.NoError(t, cmd.Execute())
	assert.Empty(t, stderr.String())
}

func TestBinderCommand(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"binder"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), lumbermdc.NOPAdapterTypeName)
}

func TestBridgesCommand(t *testing.T) {
	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"bridges"})
	require.NoError(t, cmd.Execute())

	names := strings.Fields(stdout.String())
	assert.Contains(t, names, "logfmt")
	assert.Contains(t, names, lumber.NopBridgeName)
}

func TestWriteRowUnseals(t *testing.T) {
	cfg := DefaultFileConfig()
	cfg.Seal.Key = testSealKey
	cfg.Seal.Fields = []string{"token"}
	seal, err := sealHook(cfg)
	require.NoError(t, err)
	require.NotNil(t, seal)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ev, err := seal.BeforeLog(ctx, lumber.Event{
		Fields:  []lumber.Field{lumber.F("token", "abc")},
		Context: map[string]string{"token": "xyz"},
	})
	require.NoError(t, err)

	row := lumberpg.EventRow{
		ID:       7,
		Level:    "info",
		Logger:   "auth",
		Message:  "issued",
		Fields:   map[string]interface{}{"token": ev.Fields[0].Value},
		Context:  ev.Context,
		LoggedAt: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}

	var out bytes.Buffer
	require.NoError(t, writeRow(logfmt.NewEncoder(&out), row, seal))
	assert.Equal(t,
		"id=7 ts=2024-05-06T07:08:09Z level=info logger=auth msg=issued token=abc mdc.token=xyz\n",
		out.String())

	out.Reset()
	require.NoError(t, writeRow(logfmt.NewEncoder(&out), row, nil))
	assert.NotContains(t, out.String(), "token=abc")
}
