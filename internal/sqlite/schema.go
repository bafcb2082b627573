package sqlite

// Schema DDL. Fees and durations are uint64 in the ledger but SQLite
// integers are signed, so those columns hold the two's-complement bit
// pattern (see uintArg/uintValue).
const (
	createContracts = `CREATE TABLE contracts (
    case_number TEXT PRIMARY KEY,
    attorney_name TEXT NOT NULL,
    client_name TEXT NOT NULL,
    institution TEXT NOT NULL,
    contract_fee INTEGER NOT NULL,
    payment_method TEXT NOT NULL,
    penalty_clause TEXT NOT NULL,
    dispute_resolution TEXT NOT NULL
);`

	createAppointments = `CREATE TABLE appointments (
    client_name TEXT PRIMARY KEY,
    consultation_topic TEXT NOT NULL,
    start_date TEXT NOT NULL,
    total_duration INTEGER NOT NULL,
    consultation_fee INTEGER NOT NULL,
    payment_method TEXT NOT NULL,
    consultation_type TEXT NOT NULL
);`
)

// schemaDDL lists all CREATE TABLE statements.
var schemaDDL = []string{
	createContracts,
	createAppointments,
}

// uintArg converts an unsigned ledger value to the int64 stored in SQLite.
func uintArg(v uint64) int64 {
	return int64(v)
}

// uintValue reverses uintArg.
func uintValue(v int64) uint64 {
	return uint64(v)
}
