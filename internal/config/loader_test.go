package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/keyset/pkg/keyset"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10, cfg.Paging.DefaultFirst)
	assert.Equal(t, "//", cfg.Cursor.SegmentDelimiter)
	assert.False(t, cfg.Cursor.AllowTrailingSegment)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  port: 6543
server:
  addr: ":9090"
paging:
  default_first: 25
  max_first: 50
cursor:
  segment_delimiter: "|"
  subsegment_delimiter: "="
  allow_trailing_segment: true
source:
  kind: SQLite
sqlite:
  path: /var/lib/people.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("KEYSET_DATABASE_HOST", "override.internal")
	t.Setenv("KEYSET_LOG_LEVEL", "debug")
	t.Setenv("KEYSET_DATABASE_SLOW_QUERY", "1s")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "override.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, time.Second, cfg.Database.SlowQuery)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, PagingConfig{DefaultFirst: 25, MaxFirst: 50}, cfg.Paging)
	assert.Equal(t, SourceSQLite, cfg.Source)
	assert.Equal(t, "/var/lib/people.db", cfg.SQLite.Path)
	assert.Equal(t, "debug", cfg.Log.Level)

	codec, err := cfg.Codec()
	require.NoError(t, err)
	type row struct{ ID int }
	spec, err := keyset.NewSortSpec[row](keyset.Asc("id"))
	require.NoError(t, err)
	cursor, err := codec.Encode(row{ID: 3}, spec)
	require.NoError(t, err)
	assert.Equal(t, "asc=id=3", cursor)
	_, err = codec.Decode("asc=id=3|extra", spec)
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Source = "redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Paging.DefaultFirst = 500
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Cursor.SubsegmentDelimiter = cfg.Cursor.SegmentDelimiter
	assert.ErrorIs(t, cfg.Validate(), keyset.ErrArgument)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	cfg.Log.Level = "chatty"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
