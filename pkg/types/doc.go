// Package types defines the Store and Table interfaces, the ledger record
// types, and the standard errors shared by every docket backend.
//
// A Store is attached to one backend (memory, sqlite, redis, mongo or
// postgres) and hands out a Table per record type. Tables are plain keyed
// maps: Get, Set and an insert-if-absent Create. There is no delete and no
// iteration.
package types
