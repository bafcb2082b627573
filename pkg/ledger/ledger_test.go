package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docket/internal/memory"
	"github.com/mesh-intelligence/docket/internal/storetest"
	"github.com/mesh-intelligence/docket/pkg/types"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	b := memory.NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })

	l, err := New(b, nil)
	require.NoError(t, err)
	return l
}

func request(client string, duration uint64) AppointmentRequest {
	return AppointmentRequest{
		ClientName:        client,
		ConsultationTopic: "legal-advice",
		StartDate:         "2024-01-01T10:00:00Z",
		TotalDuration:     duration,
		PaymentMethod:     "credit-card",
		ConsultationType:  "online",
	}
}

func TestCreateAppointmentScenarios(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		duration uint64
		want     uint64
	}{
		{name: "two hours", client: "john", duration: 120, want: 5000},
		{name: "one hour", client: "jane", duration: 60, want: 3500},
		{name: "zero duration", client: "jane", duration: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger(t)
			ctx := context.Background()

			fee, err := l.CreateAppointment(ctx, request(tt.client, tt.duration))
			require.NoError(t, err)
			assert.Equal(t, tt.want, fee)

			got, ok, err := l.GetAppointment(ctx, tt.client)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, &types.Appointment{
				ClientName:        tt.client,
				ConsultationTopic: "legal-advice",
				StartDate:         "2024-01-01T10:00:00Z",
				TotalDuration:     tt.duration,
				ConsultationFee:   tt.want,
				PaymentMethod:     "credit-card",
				ConsultationType:  "online",
			}, got)
		})
	}
}

func TestCreateAppointmentConflict(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	fee, err := l.CreateAppointment(ctx, request("mary", 120))
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), fee)

	before, _, err := l.GetAppointment(ctx, "mary")
	require.NoError(t, err)

	retries := []AppointmentRequest{
		request("mary", 120),
		{ClientName: "mary", StartDate: "2030-12-31T23:00:00Z", TotalDuration: 15, ConsultationType: "in-person"},
		{ClientName: "mary"},
	}
	for i, req := range retries {
		fee, err := l.CreateAppointment(ctx, req)
		assert.ErrorIs(t, err, ErrBookingConflict, "retry %d", i)
		assert.Zero(t, fee, "retry %d", i)
	}

	after, ok, err := l.GetAppointment(ctx, "mary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, after, "rejected bookings must leave the record unchanged")
}

func TestCreateAppointmentIndependence(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.CreateAppointment(ctx, request("alice", 90))
	require.NoError(t, err)

	got, ok, err := l.GetAppointment(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	fee, err := l.CreateAppointment(ctx, request("bob", 180))
	require.NoError(t, err)
	assert.Equal(t, uint64(6500), fee)
}

func TestCreateAppointmentAcceptsAnyFields(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	fee, err := l.CreateAppointment(ctx, AppointmentRequest{ConsultationType: "carrier-pigeon"})
	require.NoError(t, err)
	assert.Zero(t, fee)

	got, ok, err := l.GetAppointment(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "carrier-pigeon", got.ConsultationType)
}

func TestCreateAppointmentConcurrent(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := request("rush", uint64(60*(i+1)))
			_, err := l.CreateAppointment(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrBookingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)
}

func TestGetAppointmentIdempotent(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.CreateAppointment(ctx, request("john", 120))
	require.NoError(t, err)

	first, ok1, err1 := l.GetAppointment(ctx, "john")
	second, ok2, err2 := l.GetAppointment(ctx, "john")
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestContracts(t *testing.T) {
	t.Run("get on empty store is absent", func(t *testing.T) {
		l := newLedger(t)
		got, ok, err := l.GetContract(context.Background(), "case-404")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("create then get", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		want := *storetest.SampleContract("case-1")

		require.NoError(t, l.CreateContract(ctx, want))

		got, ok, err := l.GetContract(ctx, "case-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, *got)

		again, _, err := l.GetContract(ctx, "case-1")
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})

	t.Run("second create overwrites", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()
		first := *storetest.SampleContract("case-7")
		second := first
		second.AttorneyName = "kim-wexler"
		second.ContractFee = 0

		require.NoError(t, l.CreateContract(ctx, first))
		require.NoError(t, l.CreateContract(ctx, second))

		got, ok, err := l.GetContract(ctx, "case-7")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, second, *got)
	})

	t.Run("contract and appointment keys do not collide", func(t *testing.T) {
		l := newLedger(t)
		ctx := context.Background()

		require.NoError(t, l.CreateContract(ctx, *storetest.SampleContract("john")))
		fee, err := l.CreateAppointment(ctx, request("john", 120))
		require.NoError(t, err)
		assert.Equal(t, uint64(5000), fee)
	})
}

// failingTable returns err from every operation.
type failingTable struct{ err error }

func (f failingTable) Get(context.Context, string) (any, error)  { return nil, f.err }
func (f failingTable) Set(context.Context, string, any) error    { return f.err }
func (f failingTable) Create(context.Context, string, any) error { return f.err }

// racedTable reports the key empty on Get but loses the insert, as when a
// concurrent booking lands between the two calls.
type racedTable struct{ failingTable }

func (racedTable) Get(context.Context, string) (any, error)  { return nil, types.ErrNotFound }
func (racedTable) Create(context.Context, string, any) error { return types.ErrAlreadyExists }

// wrongTypeTable hands back a record of the other table's type.
type wrongTypeTable struct{ failingTable }

func (wrongTypeTable) Get(context.Context, string) (any, error) { return &types.Appointment{}, nil }

func TestRegistryStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := fmt.Errorf("disk on fire")

	contracts := NewContracts(failingTable{err: boom}, nil)
	assert.ErrorIs(t, contracts.CreateContract(ctx, types.Contract{CaseNumber: "c"}), boom)
	_, ok, err := contracts.GetContract(ctx, "c")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)

	appts := NewAppointments(failingTable{err: boom}, nil)
	fee, err := appts.CreateAppointment(ctx, request("x", 60))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrBookingConflict)
	assert.Zero(t, fee)

	_, _, err = NewContracts(wrongTypeTable{}, nil).GetContract(ctx, "c")
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestCreateAppointmentLostRace(t *testing.T) {
	appts := NewAppointments(racedTable{}, nil)
	fee, err := appts.CreateAppointment(context.Background(), request("late", 120))
	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.Zero(t, fee)
}

func TestNewRequiresAttachedStore(t *testing.T) {
	_, err := New(memory.NewBackend(), nil)
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestQuoteFee(t *testing.T) {
	l := newLedger(t)
	assert.Equal(t, uint64(5000), l.QuoteFee(120))

	_, ok, err := l.GetAppointment(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok, "quoting must not book")
}
