package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	SQLiteConfig   *SQLiteConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	RedisConfig    *RedisConfig    `json:"redis,omitempty" yaml:"redis,omitempty"`
	MongoConfig    *MongoConfig    `json:"mongo,omitempty" yaml:"mongo,omitempty"`
	PostgresConfig *PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// Supported backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// SQLite sync strategies. immediate rewrites the JSONL file after every
// write; on_close queues the rewrites and flushes them on Detach.
const (
	SyncImmediate = "immediate"
	SyncOnClose   = "on_close"
)

// SQLiteConfig holds sqlite-specific settings.
type SQLiteConfig struct {
	SyncStrategy string `json:"sync_strategy" yaml:"sync_strategy"`
}

// GetSyncStrategy returns the configured strategy, defaulting to immediate.
func (c *SQLiteConfig) GetSyncStrategy() string {
	if c == nil || c.SyncStrategy == "" {
		return SyncImmediate
	}
	return c.SyncStrategy
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// DefaultRedisKeyPrefix namespaces docket keys in a shared redis.
const DefaultRedisKeyPrefix = "docket:"

// GetKeyPrefix returns the key prefix, defaulting to DefaultRedisKeyPrefix.
func (c *RedisConfig) GetKeyPrefix() string {
	if c == nil || c.KeyPrefix == "" {
		return DefaultRedisKeyPrefix
	}
	return c.KeyPrefix
}

// MongoConfig holds the mongo connection settings.
type MongoConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	Database string `json:"database" yaml:"database"`
}

// DefaultMongoDatabase is used when MongoConfig.Database is empty.
const DefaultMongoDatabase = "docket"

// GetDatabase returns the database name, defaulting to DefaultMongoDatabase.
func (c *MongoConfig) GetDatabase() string {
	if c == nil || c.Database == "" {
		return DefaultMongoDatabase
	}
	return c.Database
}

// PostgresConfig holds the postgres connection string.
type PostgresConfig struct {
	DSN string `json:"dsn" yaml:"dsn"`
}

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrSyncStrategyUnknown = errors.New("unknown sync strategy")
	ErrRedisAddrEmpty      = errors.New("redis backend requires redis.addr")
	ErrMongoURIEmpty       = errors.New("mongo backend requires mongo.uri")
	ErrPostgresDSNEmpty    = errors.New("postgres backend requires postgres.dsn")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory:   true,
	BackendSQLite:   true,
	BackendRedis:    true,
	BackendMongo:    true,
	BackendPostgres: true,
}

// KnownBackends returns the accepted backend names in a stable order.
func KnownBackends() []string {
	return []string{BackendMemory, BackendSQLite, BackendRedis, BackendMongo, BackendPostgres}
}

// Validate checks that the Config is well-formed for its backend. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		switch c.SQLiteConfig.GetSyncStrategy() {
		case SyncImmediate, SyncOnClose:
		default:
			return ErrSyncStrategyUnknown
		}
	case BackendRedis:
		if c.RedisConfig == nil || c.RedisConfig.Addr == "" {
			return ErrRedisAddrEmpty
		}
	case BackendMongo:
		if c.MongoConfig == nil || c.MongoConfig.URI == "" {
			return ErrMongoURIEmpty
		}
	case BackendPostgres:
		if c.PostgresConfig == nil || c.PostgresConfig.DSN == "" {
			return ErrPostgresDSNEmpty
		}
	}
	return nil
}
