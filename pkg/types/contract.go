package types

// Contract is an attorney–client engagement agreement, keyed by CaseNumber.
// A stored contract is replaced wholesale by a later write to the same key.
type Contract struct {
	AttorneyName      string `json:"attorney_name" bson:"attorney_name"`
	ClientName        string `json:"client_name" bson:"client_name"`
	Institution       string `json:"institution" bson:"institution"`
	CaseNumber        string `json:"case_number" bson:"case_number"`
	ContractFee       uint64 `json:"contract_fee" bson:"contract_fee"`
	PaymentMethod     string `json:"payment_method" bson:"payment_method"`
	PenaltyClause     string `json:"penalty_clause" bson:"penalty_clause"`
	DisputeResolution string `json:"dispute_resolution" bson:"dispute_resolution"`
}
