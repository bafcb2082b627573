package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/docket/internal/logger"
	"github.com/mesh-intelligence/docket/internal/paths"
	"github.com/mesh-intelligence/docket/pkg/ledger"
	"github.com/mesh-intelligence/docket/pkg/store"
	"github.com/mesh-intelligence/docket/pkg/types"
)

// Config keys. Each is also read from DOCKET_<KEY> with dots as underscores.
const (
	keyBackend       = "backend"
	keyLogMode       = "log.mode"
	keyLogLevel      = "log.level"
	keySyncStrategy  = "sqlite.sync_strategy"
	keyRedisAddr     = "redis.addr"
	keyRedisPassword = "redis.password"
	keyRedisDB       = "redis.db"
	keyRedisPrefix   = "redis.key_prefix"
	keyMongoURI      = "mongo.uri"
	keyMongoDatabase = "mongo.database"
	keyPostgresDSN   = "postgres.dsn"
	keyHTTPAddr      = "http.addr"
	keyImportWorkers = "import.workers"
)

// Defaults applied beneath the config file and the environment.
const (
	defaultBackend  = types.BackendSQLite
	defaultLogMode  = "production"
	defaultLogLevel = "warn"
	defaultHTTPAddr = ":8080"
	defaultWorkers  = 4
)

// configFile is the shape of config.yaml written by init.
type configFile struct {
	Backend string        `yaml:"backend"`
	DataDir string        `yaml:"data_dir,omitempty"`
	Log     logger.Config `yaml:"log"`
	SQLite  struct {
		SyncStrategy string `yaml:"sync_strategy"`
	} `yaml:"sqlite"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Import struct {
		Workers int `yaml:"workers"`
	} `yaml:"import"`
}

func defaultConfigFile(dataDir string) configFile {
	var cfg configFile
	cfg.Backend = defaultBackend
	cfg.DataDir = dataDir
	cfg.Log = logger.Config{Mode: defaultLogMode, Level: defaultLogLevel}
	cfg.SQLite.SyncStrategy = types.SyncImmediate
	cfg.HTTP.Addr = defaultHTTPAddr
	cfg.Import.Workers = defaultWorkers
	return cfg
}

// loadConfig resolves the config directory and reads config.yaml, if any,
// into a.v with env overrides and defaults layered in.
func (a *app) loadConfig() error {
	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}
	a.configDir = dir

	v := a.v
	v.SetDefault(keyBackend, defaultBackend)
	v.SetDefault(keyLogMode, defaultLogMode)
	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keySyncStrategy, types.SyncImmediate)
	v.SetDefault(keyRedisPrefix, types.DefaultRedisKeyPrefix)
	v.SetDefault(keyMongoDatabase, types.DefaultMongoDatabase)
	v.SetDefault(keyHTTPAddr, defaultHTTPAddr)
	v.SetDefault(keyImportWorkers, defaultWorkers)

	v.SetEnvPrefix("DOCKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(paths.ConfigFile(dir))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading %s: %w", paths.ConfigFile(dir), err)
		}
	}
	return nil
}

// dataDirFromFile reads data_dir straight from config.yaml. It bypasses
// viper so DOCKET_DATA_DIR cannot shadow the file value, keeping the order
// flag > config > env > default.
func (a *app) dataDirFromFile() string {
	data, err := os.ReadFile(paths.ConfigFile(a.configDir))
	if err != nil {
		return ""
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return cfg.DataDir
}

// storeConfig assembles types.Config from flags and loaded settings.
func (a *app) storeConfig() (types.Config, error) {
	cfg := types.Config{Backend: a.v.GetString(keyBackend)}

	switch cfg.Backend {
	case types.BackendSQLite:
		dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.dataDirFromFile())
		if err != nil {
			return types.Config{}, fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.DataDir = dataDir
		cfg.SQLiteConfig = &types.SQLiteConfig{SyncStrategy: a.v.GetString(keySyncStrategy)}
	case types.BackendRedis:
		cfg.RedisConfig = &types.RedisConfig{
			Addr:      a.v.GetString(keyRedisAddr),
			Password:  a.v.GetString(keyRedisPassword),
			DB:        a.v.GetInt(keyRedisDB),
			KeyPrefix: a.v.GetString(keyRedisPrefix),
		}
	case types.BackendMongo:
		cfg.MongoConfig = &types.MongoConfig{
			URI:      a.v.GetString(keyMongoURI),
			Database: a.v.GetString(keyMongoDatabase),
		}
	case types.BackendPostgres:
		cfg.PostgresConfig = &types.PostgresConfig{DSN: a.v.GetString(keyPostgresDSN)}
	}
	return cfg, cfg.Validate()
}

// openStore builds and attaches the configured backend. The caller must
// Detach it.
func (a *app) openStore(ctx context.Context, cfg types.Config) (types.Store, error) {
	s, err := store.New(cfg.Backend, a.log)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(ctx, cfg); err != nil {
		return nil, err
	}
	a.log.Debug("store attached",
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir),
		logger.Secret("redis_password", a.v.GetString(keyRedisPassword)),
		logger.Secret("mongo_uri", a.v.GetString(keyMongoURI)),
		logger.Secret("postgres_dsn", a.v.GetString(keyPostgresDSN)))
	return s, nil
}

// errEphemeralBackend rejects the memory backend for commands that exit
// right after one write.
var errEphemeralBackend = errors.New("the memory backend keeps nothing after the command exits; use it with serve")

// openLedger attaches the configured store and wires a ledger over it. The
// returned close func detaches the store.
func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, func(), error) {
	cfg, err := a.storeConfig()
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("config: %w", err))
	}
	if cfg.Backend == types.BackendMemory && !a.longLived {
		return nil, nil, userError(errEphemeralBackend)
	}
	s, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("opening %s store: %w", cfg.Backend, err))
	}
	closeFn := func() {
		if err := s.Detach(); err != nil {
			a.log.Error("detach failed", zap.Error(err))
		}
	}
	l, err := ledger.New(s, a.log)
	if err != nil {
		closeFn()
		return nil, nil, sysError(err)
	}
	return l, closeFn, nil
}

// writeConfigIfMissing creates config.yaml with default values unless it
// already exists. Returns whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
