// Package store picks a types.Store implementation by backend name.
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/internal/memory"
	"github.com/mesh-intelligence/docket/internal/mongo"
	"github.com/mesh-intelligence/docket/internal/postgres"
	"github.com/mesh-intelligence/docket/internal/redis"
	"github.com/mesh-intelligence/docket/internal/sqlite"
	"github.com/mesh-intelligence/docket/pkg/types"
)

// New returns a detached Store for backend. Attach it with a Config whose
// Backend matches. A nil logger disables backend logging.
func New(backend string, log *zap.Logger) (types.Store, error) {
	switch backend {
	case types.BackendMemory:
		return memory.NewBackend(), nil
	case types.BackendSQLite:
		return sqlite.NewBackend(sqlite.WithLogger(log)), nil
	case types.BackendRedis:
		return redis.NewBackend(redis.WithLogger(log)), nil
	case types.BackendMongo:
		return mongo.NewBackend(mongo.WithLogger(log)), nil
	case types.BackendPostgres:
		return postgres.NewBackend(postgres.WithLogger(log)), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, backend)
	}
}
