// Package redis implements a Store on a shared redis server. Each record is
// one string key holding the record's JSON; Create maps to SETNX so only one
// writer can claim a key.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// opTimeout bounds every call to the server.
const opTimeout = 5 * time.Second

// Backend implements types.Store over go-redis.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	client   *goredis.Client
	prefix   string
	tables   map[string]*table
	log      *zap.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the backend logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBackend creates a detached redis backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{tables: make(map[string]*table), log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("backend", types.BackendRedis))
	return b
}

// Attach dials the server and pings it before handing out tables.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendRedis {
		return fmt.Errorf("%w: %q is not %s", types.ErrBackendUnknown, config.Backend, types.BackendRedis)
	}

	rc := config.RedisConfig
	client := goredis.NewClient(&goredis.Options{
		Addr:        rc.Addr,
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: opTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis ping: %w", err)
	}

	b.client = client
	b.prefix = rc.GetKeyPrefix()
	for _, name := range types.StandardTableNames {
		b.tables[name] = &table{name: name, backend: b}
	}
	b.attached = true

	b.log.Debug("attached", zap.String("addr", rc.Addr), zap.String("key_prefix", b.prefix))
	return nil
}

// Detach closes the client. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	b.attached = false
	b.tables = make(map[string]*table)
	b.log.Debug("detached")
	return err
}

// GetTable returns the named table.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	t, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return t, nil
}

// conn returns the live client or ErrStoreDetached.
func (b *Backend) conn() (*goredis.Client, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.client, nil
}

type table struct {
	name    string
	backend *Backend
}

var _ types.Table = (*table)(nil)

// redisKey namespaces key as <prefix><table>:<key>.
func (t *table) redisKey(key string) string {
	return t.backend.prefix + t.name + ":" + key
}

func (t *table) Get(ctx context.Context, key string) (any, error) {
	client, err := t.backend.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := client.Get(ctx, t.redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", t.name, key, err)
	}
	return types.DecodeRecord(t.name, raw)
}

func (t *table) Set(ctx context.Context, key string, data any) error {
	raw, err := types.EncodeRecord(t.name, data)
	if err != nil {
		return err
	}
	client, err := t.backend.conn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := client.Set(ctx, t.redisKey(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("setting %s %q: %w", t.name, key, err)
	}
	return nil
}

func (t *table) Create(ctx context.Context, key string, data any) error {
	raw, err := types.EncodeRecord(t.name, data)
	if err != nil {
		return err
	}
	client, err := t.backend.conn()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ok, err := client.SetNX(ctx, t.redisKey(key), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("creating %s %q: %w", t.name, key, err)
	}
	if !ok {
		return types.ErrAlreadyExists
	}
	return nil
}
