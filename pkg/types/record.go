package types

import (
	"encoding/json"
	"fmt"
)

// NewRecord returns a pointer to the zero record for the named table.
// Returns ErrTableNotFound for unknown tables.
func NewRecord(table string) (any, error) {
	switch table {
	case ContractsTable:
		return &Contract{}, nil
	case AppointmentsTable:
		return &Appointment{}, nil
	default:
		return nil, ErrTableNotFound
	}
}

// CloneRecord checks that data is a record of the named table's type and
// returns a pointer to an independent copy. Both pointer and value forms are
// accepted; a nil pointer or a foreign type yields ErrInvalidData.
func CloneRecord(table string, data any) (any, error) {
	switch table {
	case ContractsTable:
		switch c := data.(type) {
		case *Contract:
			if c == nil {
				return nil, ErrInvalidData
			}
			cp := *c
			return &cp, nil
		case Contract:
			return &c, nil
		}
	case AppointmentsTable:
		switch a := data.(type) {
		case *Appointment:
			if a == nil {
				return nil, ErrInvalidData
			}
			cp := *a
			return &cp, nil
		case Appointment:
			return &a, nil
		}
	default:
		return nil, ErrTableNotFound
	}
	return nil, ErrInvalidData
}

// EncodeRecord validates data against the named table and marshals it to
// the JSON form shared by the JSONL files, redis values and postgres rows.
func EncodeRecord(table string, data any) ([]byte, error) {
	rec, err := CloneRecord(table, data)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", table, err)
	}
	return b, nil
}

// DecodeRecord unmarshals JSON into the record type of the named table and
// returns a pointer to it.
func DecodeRecord(table string, data []byte) (any, error) {
	rec, err := NewRecord(table)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", table, err)
	}
	return rec, nil
}
