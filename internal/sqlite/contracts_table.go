package sqlite

import "github.com/mesh-intelligence/docket/pkg/types"

var contractsSpec = tableSpec{
	name: types.ContractsTable,
	file: "contracts.jsonl",
	columns: []string{
		"case_number", "attorney_name", "client_name", "institution",
		"contract_fee", "payment_method", "penalty_clause", "dispute_resolution",
	},
	args: func(rec any) []any {
		c := rec.(*types.Contract)
		return []any{
			c.CaseNumber, c.AttorneyName, c.ClientName, c.Institution,
			uintArg(c.ContractFee), c.PaymentMethod, c.PenaltyClause, c.DisputeResolution,
		}
	},
	scan: hydrateContract,
}

// hydrateContract scans a contracts row into *types.Contract.
func hydrateContract(row rowScanner) (any, error) {
	var (
		c   types.Contract
		fee int64
	)
	err := row.Scan(
		&c.CaseNumber, &c.AttorneyName, &c.ClientName, &c.Institution,
		&fee, &c.PaymentMethod, &c.PenaltyClause, &c.DisputeResolution,
	)
	if err != nil {
		return nil, err
	}
	c.ContractFee = uintValue(fee)
	return &c, nil
}
