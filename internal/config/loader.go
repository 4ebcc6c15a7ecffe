package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/rpattn/keyset/internal/db"
	"github.com/rpattn/keyset/pkg/keyset"
)

// Source kinds select where people are read from.
const (
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceMemory   = "memory"
	SourceMongo    = "mongo"
)

// Config is the full server configuration.
type Config struct {
	Database db.Config
	Server   ServerConfig
	Paging   PagingConfig
	Cursor   CursorConfig
	Log      LogConfig
	Source   string
	SQLite   SQLiteConfig
	Mongo    MongoConfig
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// PagingConfig bounds the page sizes clients may ask for.
type PagingConfig struct {
	DefaultFirst int
	MaxFirst     int
}

type CursorConfig struct {
	SegmentDelimiter     string
	SubsegmentDelimiter  string
	AllowTrailingSegment bool
}

type LogConfig struct {
	Level  string
	Format string
}

type SQLiteConfig struct {
	Path string
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Paging: PagingConfig{DefaultFirst: 10, MaxFirst: 100},
		Cursor: CursorConfig{
			SegmentDelimiter:    keyset.DefaultSegmentDelimiter,
			SubsegmentDelimiter: keyset.DefaultSubsegmentDelimiter,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Source: SourceMemory,
		SQLite: SQLiteConfig{Path: ":memory:"},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "directory",
			Collection: "people",
		},
	}
}

var envKeys = []string{
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.dbname",
	"database.sslmode",
	"database.max_conns",
	"database.min_conns",
	"database.slow_query",
	"server.addr",
	"server.allowed_origins",
	"paging.default_first",
	"paging.max_first",
	"cursor.segment_delimiter",
	"cursor.subsegment_delimiter",
	"cursor.allow_trailing_segment",
	"log.level",
	"log.format",
	"source.kind",
	"sqlite.path",
	"mongo.uri",
	"mongo.database",
	"mongo.collection",
}

// Load reads config.yaml from configPath, if present, and applies
// KEYSET_-prefixed environment overrides such as KEYSET_DATABASE_HOST.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.SetEnvPrefix("KEYSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		logrus.WithField("path", configPath).Debug("no config.yaml found, using defaults and env vars")
	} else {
		logrus.WithField("file", v.ConfigFileUsed()).Debug("loaded config")
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}
	if v.IsSet("database.min_conns") {
		cfg.Database.MinConns = v.GetInt32("database.min_conns")
	}
	if v.IsSet("database.slow_query") {
		cfg.Database.SlowQuery = v.GetDuration("database.slow_query")
	}

	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}

	if v.IsSet("paging.default_first") {
		cfg.Paging.DefaultFirst = v.GetInt("paging.default_first")
	}
	if v.IsSet("paging.max_first") {
		cfg.Paging.MaxFirst = v.GetInt("paging.max_first")
	}

	if v.IsSet("cursor.segment_delimiter") {
		cfg.Cursor.SegmentDelimiter = v.GetString("cursor.segment_delimiter")
	}
	if v.IsSet("cursor.subsegment_delimiter") {
		cfg.Cursor.SubsegmentDelimiter = v.GetString("cursor.subsegment_delimiter")
	}
	if v.IsSet("cursor.allow_trailing_segment") {
		cfg.Cursor.AllowTrailingSegment = v.GetBool("cursor.allow_trailing_segment")
	}

	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}

	if v.IsSet("source.kind") {
		cfg.Source = strings.ToLower(v.GetString("source.kind"))
	}
	if v.IsSet("sqlite.path") {
		cfg.SQLite.Path = v.GetString("sqlite.path")
	}
	if v.IsSet("mongo.uri") {
		cfg.Mongo.URI = v.GetString("mongo.uri")
	}
	if v.IsSet("mongo.database") {
		cfg.Mongo.Database = v.GetString("mongo.database")
	}
	if v.IsSet("mongo.collection") {
		cfg.Mongo.Collection = v.GetString("mongo.collection")
	}

	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Source {
	case SourcePostgres, SourceSQLite, SourceMemory, SourceMongo:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source)
	}
	if c.Paging.DefaultFirst < 0 || c.Paging.MaxFirst < 1 || c.Paging.DefaultFirst > c.Paging.MaxFirst {
		return fmt.Errorf("paging: default_first %d must lie in [0, max_first %d]", c.Paging.DefaultFirst, c.Paging.MaxFirst)
	}
	if _, err := c.Codec(); err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	return nil
}

// Codec builds the cursor codec described by the cursor settings.
func (c Config) Codec() (*keyset.Codec, error) {
	opts := []keyset.Option{keyset.WithDelimiters(c.Cursor.SegmentDelimiter, c.Cursor.SubsegmentDelimiter)}
	if c.Cursor.AllowTrailingSegment {
		opts = append(opts, keyset.WithTrailingSegment())
	}
	return keyset.NewCodec(opts...)
}

// Logger returns a logrus logger configured by the log settings.
func (c Config) Logger() (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)

	switch c.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
