package sqlite

import "github.com/mesh-intelligence/docket/pkg/types"

var appointmentsSpec = tableSpec{
	name: types.AppointmentsTable,
	file: "appointments.jsonl",
	columns: []string{
		"client_name", "consultation_topic", "start_date", "total_duration",
		"consultation_fee", "payment_method", "consultation_type",
	},
	args: func(rec any) []any {
		a := rec.(*types.Appointment)
		return []any{
			a.ClientName, a.ConsultationTopic, a.StartDate, uintArg(a.TotalDuration),
			uintArg(a.ConsultationFee), a.PaymentMethod, a.ConsultationType,
		}
	},
	scan: hydrateAppointment,
}

// hydrateAppointment scans an appointments row into *types.Appointment.
func hydrateAppointment(row rowScanner) (any, error) {
	var (
		a             types.Appointment
		duration, fee int64
	)
	err := row.Scan(
		&a.ClientName, &a.ConsultationTopic, &a.StartDate, &duration,
		&fee, &a.PaymentMethod, &a.ConsultationType,
	)
	if err != nil {
		return nil, err
	}
	a.TotalDuration = uintValue(duration)
	a.ConsultationFee = uintValue(fee)
	return &a, nil
}
