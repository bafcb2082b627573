package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docket/internal/storetest"
	"github.com/mesh-intelligence/docket/pkg/types"
)

// testConfig returns a config with a fresh key prefix, or skips when no
// server is configured.
func testConfig(t *testing.T) types.Config {
	t.Helper()
	addr := os.Getenv("DOCKET_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCKET_TEST_REDIS_ADDR not set")
	}
	return types.Config{
		Backend: types.BackendRedis,
		RedisConfig: &types.RedisConfig{
			Addr:      addr,
			KeyPrefix: "docket-test:" + uuid.NewString() + ":",
		},
	}
}

func newAttached(t *testing.T) types.Store {
	t.Helper()
	cfg := testConfig(t)
	b := NewBackend()
	require.NoError(t, b.Attach(context.Background(), cfg))
	t.Cleanup(func() {
		ctx := context.Background()
		if client, err := b.conn(); err == nil {
			iter := client.Scan(ctx, 0, b.prefix+"*", 100).Iterator()
			for iter.Next(ctx) {
				client.Del(ctx, iter.Val())
			}
		}
		b.Detach()
	})
	return b
}

func TestBackendConformance(t *testing.T) {
	storetest.Run(t, newAttached)
}

func TestBackend_KeyLayout(t *testing.T) {
	ctx := context.Background()
	s := newAttached(t)
	b := s.(*Backend)

	tbl := storetest.MustGetTable(t, s, types.AppointmentsTable)
	require.NoError(t, tbl.Create(ctx, "mary", storetest.SampleAppointment("mary")))

	client, err := b.conn()
	require.NoError(t, err)
	n, err := client.Exists(ctx, b.prefix+"appointments:mary").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAttach_Validation(t *testing.T) {
	b := NewBackend()
	err := b.Attach(context.Background(), types.Config{Backend: types.BackendRedis})
	assert.ErrorIs(t, err, types.ErrRedisAddrEmpty)

	err = b.Attach(context.Background(), types.Config{Backend: types.BackendMemory})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)

	_, err = b.GetTable(types.ContractsTable)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.NoError(t, b.Detach())
}
