package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// Ledger bundles both registries over one attached store. Contracts and
// appointments live in separate tables, so a case number and a client name
// spelled the same never collide.
type Ledger struct {
	*Contracts
	*Appointments
}

// New resolves the standard tables from an attached store and wires the
// registries. The store stays owned by the caller.
func New(store types.Store, log *zap.Logger) (*Ledger, error) {
	contracts, err := store.GetTable(types.ContractsTable)
	if err != nil {
		return nil, fmt.Errorf("opening %s table: %w", types.ContractsTable, err)
	}
	appointments, err := store.GetTable(types.AppointmentsTable)
	if err != nil {
		return nil, fmt.Errorf("opening %s table: %w", types.AppointmentsTable, err)
	}
	return &Ledger{
		Contracts:    NewContracts(contracts, log),
		Appointments: NewAppointments(appointments, log),
	}, nil
}
