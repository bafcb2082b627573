// Package storetest holds the conformance suite every types.Store backend
// runs from its own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// Factory returns a freshly attached, empty store. The factory owns cleanup
// (usually through t.Cleanup).
type Factory func(t *testing.T) types.Store

// Run exercises the Table contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetTable", func(t *testing.T) { testGetTable(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("SetGetContract", func(t *testing.T) { testSetGetContract(t, newStore(t)) })
	t.Run("SetOverwrites", func(t *testing.T) { testSetOverwrites(t, newStore(t)) })
	t.Run("CreateRejectsExisting", func(t *testing.T) { testCreateRejectsExisting(t, newStore(t)) })
	t.Run("CreateConcurrent", func(t *testing.T) { testCreateConcurrent(t, newStore(t)) })
	t.Run("TablesAreSeparate", func(t *testing.T) { testTablesAreSeparate(t, newStore(t)) })
	t.Run("InvalidData", func(t *testing.T) { testInvalidData(t, newStore(t)) })
	t.Run("EmptyKey", func(t *testing.T) { testEmptyKey(t, newStore(t)) })
	t.Run("GetReturnsCopy", func(t *testing.T) { testGetReturnsCopy(t, newStore(t)) })
}

// MustGetTable retrieves a table by name or fails the test.
func MustGetTable(t *testing.T, s types.Store, name string) types.Table {
	t.Helper()
	tbl, err := s.GetTable(name)
	require.NoError(t, err, "GetTable(%q)", name)
	return tbl
}

// SampleContract returns a fully populated contract for caseNumber.
func SampleContract(caseNumber string) *types.Contract {
	return &types.Contract{
		AttorneyName:      "saul-goodman",
		ClientName:        "jesse",
		Institution:       "abq-district-court",
		CaseNumber:        caseNumber,
		ContractFee:       25000,
		PaymentMethod:     "bank-transfer",
		PenaltyClause:     "ten-percent-late-fee",
		DisputeResolution: "arbitration",
	}
}

// SampleAppointment returns a fully populated appointment for clientName.
func SampleAppointment(clientName string) *types.Appointment {
	return &types.Appointment{
		ClientName:        clientName,
		ConsultationTopic: "legal-advice",
		StartDate:         "2024-01-01T10:00:00Z",
		TotalDuration:     120,
		ConsultationFee:   5000,
		PaymentMethod:     "credit-card",
		ConsultationType:  "online",
	}
}

func testGetTable(t *testing.T, s types.Store) {
	for _, name := range types.StandardTableNames {
		tbl, err := s.GetTable(name)
		assert.NoError(t, err, "GetTable(%q)", name)
		assert.NotNil(t, tbl, "GetTable(%q)", name)
	}
	_, err := s.GetTable("invoices")
	assert.ErrorIs(t, err, types.ErrTableNotFound)
}

func testGetMissing(t *testing.T, s types.Store) {
	ctx := context.Background()
	for _, name := range types.StandardTableNames {
		got, err := MustGetTable(t, s, name).Get(ctx, "case-404")
		assert.ErrorIs(t, err, types.ErrNotFound, "table %s", name)
		assert.Nil(t, got)
	}
}

func testSetGetContract(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.ContractsTable)
	want := SampleContract("case-1")

	require.NoError(t, tbl.Set(ctx, want.CaseNumber, want))

	got, err := tbl.Get(ctx, want.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := tbl.Get(ctx, want.CaseNumber)
	require.NoError(t, err)
	assert.Equal(t, got, again, "reads must be idempotent")
}

func testSetOverwrites(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.ContractsTable)

	first := SampleContract("case-2")
	second := SampleContract("case-2")
	second.AttorneyName = "kim-wexler"
	second.ContractFee = 1

	require.NoError(t, tbl.Set(ctx, "case-2", first))
	require.NoError(t, tbl.Set(ctx, "case-2", second))

	got, err := tbl.Get(ctx, "case-2")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func testCreateRejectsExisting(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.AppointmentsTable)

	first := SampleAppointment("mary")
	second := SampleAppointment("mary")
	second.StartDate = "2025-06-01T09:00:00Z"

	require.NoError(t, tbl.Create(ctx, "mary", first))
	err := tbl.Create(ctx, "mary", second)
	assert.ErrorIs(t, err, types.ErrAlreadyExists)

	got, err := tbl.Get(ctx, "mary")
	require.NoError(t, err)
	assert.Equal(t, first, got, "losing Create must not write")
}

func testCreateConcurrent(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.AppointmentsTable)

	const workers = 8
	var (
		wg      sync.WaitGroup
		wins    atomic.Int32
		rejects atomic.Int32
		start   = make(chan struct{})
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			a := SampleAppointment("race")
			a.ConsultationTopic = fmt.Sprintf("topic-%d", i)
			err := tbl.Create(ctx, "race", a)
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, types.ErrAlreadyExists):
				rejects.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load(), "exactly one Create must win")
	assert.EqualValues(t, workers-1, rejects.Load())
}

func testTablesAreSeparate(t *testing.T, s types.Store) {
	ctx := context.Background()
	contracts := MustGetTable(t, s, types.ContractsTable)
	appointments := MustGetTable(t, s, types.AppointmentsTable)

	require.NoError(t, contracts.Set(ctx, "shared", SampleContract("shared")))
	require.NoError(t, appointments.Create(ctx, "shared", SampleAppointment("shared")))

	c, err := contracts.Get(ctx, "shared")
	require.NoError(t, err)
	assert.IsType(t, &types.Contract{}, c)

	a, err := appointments.Get(ctx, "shared")
	require.NoError(t, err)
	assert.IsType(t, &types.Appointment{}, a)
}

func testInvalidData(t *testing.T, s types.Store) {
	ctx := context.Background()
	contracts := MustGetTable(t, s, types.ContractsTable)
	appointments := MustGetTable(t, s, types.AppointmentsTable)

	assert.ErrorIs(t, contracts.Set(ctx, "k", SampleAppointment("k")), types.ErrInvalidData)
	assert.ErrorIs(t, appointments.Create(ctx, "k", SampleContract("k")), types.ErrInvalidData)
	assert.ErrorIs(t, appointments.Set(ctx, "k", "not a record"), types.ErrInvalidData)

	_, err := appointments.Get(ctx, "k")
	assert.ErrorIs(t, err, types.ErrNotFound, "rejected writes must not store anything")
}

func testEmptyKey(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.AppointmentsTable)

	a := SampleAppointment("")
	require.NoError(t, tbl.Create(ctx, "", a))
	got, err := tbl.Get(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func testGetReturnsCopy(t *testing.T, s types.Store) {
	ctx := context.Background()
	tbl := MustGetTable(t, s, types.ContractsTable)
	require.NoError(t, tbl.Set(ctx, "case-3", SampleContract("case-3")))

	got, err := tbl.Get(ctx, "case-3")
	require.NoError(t, err)
	got.(*types.Contract).AttorneyName = "mutated"

	again, err := tbl.Get(ctx, "case-3")
	require.NoError(t, err)
	assert.Equal(t, "saul-goodman", again.(*types.Contract).AttorneyName)
}
