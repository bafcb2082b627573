package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// Contracts is the contract registry. Records are keyed by case number and
// every create overwrites whatever was stored under that key before.
type Contracts struct {
	table types.Table
	log   *zap.Logger
}

// NewContracts wires a registry over the contracts table. A nil logger
// disables logging.
func NewContracts(table types.Table, log *zap.Logger) *Contracts {
	if log == nil {
		log = zap.NewNop()
	}
	return &Contracts{table: table, log: log.With(zap.String("registry", types.ContractsTable))}
}

// CreateContract stores c under c.CaseNumber exactly as given. No field is
// validated and there is no duplicate check: a second contract with the
// same case number replaces the first.
func (r *Contracts) CreateContract(ctx context.Context, c types.Contract) error {
	if err := r.table.Set(ctx, c.CaseNumber, &c); err != nil {
		r.log.Error("contract write failed", zap.String("case_number", c.CaseNumber), zap.Error(err))
		return fmt.Errorf("storing contract %q: %w", c.CaseNumber, err)
	}
	r.log.Debug("contract stored",
		zap.String("case_number", c.CaseNumber),
		zap.Uint64("contract_fee", c.ContractFee))
	return nil
}

// GetContract returns the contract stored under caseNumber. The boolean is
// false, with a nil error, when no contract exists.
func (r *Contracts) GetContract(ctx context.Context, caseNumber string) (*types.Contract, bool, error) {
	raw, err := r.table.Get(ctx, caseNumber)
	if errors.Is(err, types.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading contract %q: %w", caseNumber, err)
	}
	c, ok := raw.(*types.Contract)
	if !ok {
		return nil, false, fmt.Errorf("loading contract %q: %w: got %T", caseNumber, types.ErrInvalidData, raw)
	}
	return c, true, nil
}
