// Package mongo implements a Store on MongoDB. Each table is a collection
// and each record a document whose _id is the table key, so Create is a
// plain InsertOne that the server rejects on a duplicate key.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

const opTimeout = 5 * time.Second

// Backend implements types.Store over the mongo driver.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	client   *mongo.Client
	db       *mongo.Database
	registry *bsoncodec.Registry
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

// NewBackend creates a detached mongo backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables:   make(map[string]*table),
		registry: newRegistry(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(zap.String("backend", types.BackendMongo))
	return b
}

// Attach connects, pings, and binds one collection per table.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendMongo {
		return fmt.Errorf("%w: %q is not %s", types.ErrBackendUnknown, config.Backend, types.BackendMongo)
	}

	mc := config.MongoConfig
	connectCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(mc.URI).SetRegistry(b.registry)
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}

	b.client = client
	b.db = client.Database(mc.GetDatabase())
	for _, name := range types.StandardTableNames {
		b.tables[name] = &table{name: name, coll: b.db.Collection(name), backend: b}
	}
	b.attached = true

	b.log.Debug("attached", zap.String("database", mc.GetDatabase()))
	return nil
}

// Detach disconnects the client. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	err := b.client.Disconnect(ctx)

	b.client = nil
	b.db = nil
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

func (b *Backend) isAttached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.attached
}

type table struct {
	name    string
	coll    *mongo.Collection
	backend *Backend
}

var _ types.Table = (*table)(nil)

func (t *table) Get(ctx context.Context, key string) (any, error) {
	if !t.backend.isAttached() {
		return nil, types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rec, err := types.NewRecord(t.name)
	if err != nil {
		return nil, err
	}
	err = t.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", t.name, key, err)
	}
	return rec, nil
}

func (t *table) Set(ctx context.Context, key string, data any) error {
	doc, err := t.document(key, data)
	if err != nil {
		return err
	}
	if !t.backend.isAttached() {
		return types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err = t.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("setting %s %q: %w", t.name, key, err)
	}
	return nil
}

func (t *table) Create(ctx context.Context, key string, data any) error {
	doc, err := t.document(key, data)
	if err != nil {
		return err
	}
	if !t.backend.isAttached() {
		return types.ErrStoreDetached
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := t.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.ErrAlreadyExists
		}
		return fmt.Errorf("creating %s %q: %w", t.name, key, err)
	}
	return nil
}

// document flattens the record's fields after an _id of key.
func (t *table) document(key string, data any) (bson.D, error) {
	rec, err := types.CloneRecord(t.name, data)
	if err != nil {
		return nil, err
	}
	raw, err := bson.MarshalWithRegistry(t.backend.registry, rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", t.name, err)
	}
	elems, err := bson.Raw(raw).Elements()
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", t.name, err)
	}
	doc := make(bson.D, 0, len(elems)+1)
	doc = append(doc, bson.E{Key: "_id", Value: key})
	for _, e := range elems {
		doc = append(doc, bson.E{Key: e.Key(), Value: e.Value()})
	}
	return doc, nil
}
