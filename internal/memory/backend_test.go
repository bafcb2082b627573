package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docket/internal/storetest"
	"github.com/mesh-intelligence/docket/pkg/types"
)

func newAttached(t *testing.T) types.Store {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackendConformance(t *testing.T) {
	storetest.Run(t, newAttached)
}

func TestBackend_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	_, err := b.GetTable(types.ContractsTable)
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	assert.ErrorIs(t, b.Attach(ctx, types.Config{}), types.ErrBackendEmpty)
	require.NoError(t, b.Attach(ctx, types.Config{Backend: types.BackendMemory}))
	assert.ErrorIs(t, b.Attach(ctx, types.Config{Backend: types.BackendMemory}), types.ErrAlreadyAttached)

	tbl, err := b.GetTable(types.ContractsTable)
	require.NoError(t, err)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach must be idempotent")

	_, err = tbl.Get(ctx, "case-1")
	assert.ErrorIs(t, err, types.ErrStoreDetached)
	assert.ErrorIs(t, tbl.Set(ctx, "case-1", storetest.SampleContract("case-1")), types.ErrStoreDetached)
}
