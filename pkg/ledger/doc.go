// Package ledger implements the contract and appointment registries.
//
// Contracts are keyed by case number and overwrite on every create.
// Appointments are keyed by client name; the first booking for a client
// wins and every later attempt fails with ErrBookingConflict. Registries
// keep no state of their own: everything lives in the injected types.Table.
package ledger
