package types

import (
	"context"
	"errors"
)

// Table provides keyed access to a single record type.
// Get returns any; callers type-assert to the concrete record pointer.
type Table interface {
	// Get retrieves the record stored under key.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, key string) (any, error)

	// Set writes data under key, overwriting any prior record.
	Set(ctx context.Context, key string, data any) error

	// Create writes data under key only if the key is empty. It returns
	// ErrAlreadyExists, and writes nothing, when a record is present. The
	// check and the write happen as one step in every backend.
	Create(ctx context.Context, key string, data any) error
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidData   = errors.New("invalid record data")
)

// Standard table names for Store.GetTable.
const (
	ContractsTable    = "contracts"
	AppointmentsTable = "appointments"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	ContractsTable,
	AppointmentsTable,
}
