package types

// Appointment is a client's consultation booking, keyed by ClientName.
// At most one appointment ever exists per client.
type Appointment struct {
	ClientName        string `json:"client_name" bson:"client_name"`
	ConsultationTopic string `json:"consultation_topic" bson:"consultation_topic"`
	// StartDate is kept exactly as supplied; it is never parsed.
	StartDate        string `json:"start_date" bson:"start_date"`
	TotalDuration    uint64 `json:"total_duration" bson:"total_duration"` // minutes
	ConsultationFee  uint64 `json:"consultation_fee" bson:"consultation_fee"`
	PaymentMethod    string `json:"payment_method" bson:"payment_method"`
	ConsultationType string `json:"consultation_type" bson:"consultation_type"`
}
