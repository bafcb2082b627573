package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "cassandra", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:   "valid sqlite config",
			config: Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
		},
		{
			name:   "sqlite with empty DataDir is valid at config level",
			config: Config{Backend: BackendSQLite},
		},
		{
			name:   "sqlite on_close strategy",
			config: Config{Backend: BackendSQLite, SQLiteConfig: &SQLiteConfig{SyncStrategy: SyncOnClose}},
		},
		{
			name:    "sqlite unknown strategy",
			config:  Config{Backend: BackendSQLite, SQLiteConfig: &SQLiteConfig{SyncStrategy: "batch"}},
			wantErr: ErrSyncStrategyUnknown,
		},
		{
			name:   "memory needs nothing",
			config: Config{Backend: BackendMemory},
		},
		{
			name:    "redis without addr",
			config:  Config{Backend: BackendRedis, RedisConfig: &RedisConfig{}},
			wantErr: ErrRedisAddrEmpty,
		},
		{
			name:    "redis without section",
			config:  Config{Backend: BackendRedis},
			wantErr: ErrRedisAddrEmpty,
		},
		{
			name:   "redis with addr",
			config: Config{Backend: BackendRedis, RedisConfig: &RedisConfig{Addr: "localhost:6379"}},
		},
		{
			name:    "mongo without uri",
			config:  Config{Backend: BackendMongo},
			wantErr: ErrMongoURIEmpty,
		},
		{
			name:   "mongo with uri",
			config: Config{Backend: BackendMongo, MongoConfig: &MongoConfig{URI: "mongodb://localhost:27017"}},
		},
		{
			name:    "postgres without dsn",
			config:  Config{Backend: BackendPostgres, PostgresConfig: &PostgresConfig{}},
			wantErr: ErrPostgresDSNEmpty,
		},
		{
			name:   "postgres with dsn",
			config: Config{Backend: BackendPostgres, PostgresConfig: &PostgresConfig{DSN: "postgres://u:p@localhost/db"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var sq *SQLiteConfig
	if got := sq.GetSyncStrategy(); got != SyncImmediate {
		t.Fatalf("nil sqlite config: got %q", got)
	}
	var rc *RedisConfig
	if got := rc.GetKeyPrefix(); got != DefaultRedisKeyPrefix {
		t.Fatalf("nil redis config: got %q", got)
	}
	if got := (&RedisConfig{KeyPrefix: "x:"}).GetKeyPrefix(); got != "x:" {
		t.Fatalf("explicit prefix: got %q", got)
	}
	var mc *MongoConfig
	if got := mc.GetDatabase(); got != DefaultMongoDatabase {
		t.Fatalf("nil mongo config: got %q", got)
	}
}
