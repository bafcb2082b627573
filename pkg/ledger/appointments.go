package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/pkg/types"
)

// ErrBookingConflict is returned when an appointment already exists for the
// client. The check is keyed on the client alone; start dates are never
// compared.
var ErrBookingConflict = errors.New("appointment time is already booked")

// AppointmentRequest carries the caller-supplied fields of a booking. The
// fee is derived, so it is not part of the request.
type AppointmentRequest struct {
	ClientName        string `json:"client_name"`
	ConsultationTopic string `json:"consultation_topic"`
	StartDate         string `json:"start_date"`
	TotalDuration     uint64 `json:"total_duration"`
	PaymentMethod     string `json:"payment_method"`
	ConsultationType  string `json:"consultation_type"`
}

// Appointments is the appointment registry. Each client may hold one
// appointment, ever; there is no cancel or reschedule.
type Appointments struct {
	table types.Table
	log   *zap.Logger
}

// NewAppointments wires a registry over the appointments table. A nil
// logger disables logging.
func NewAppointments(table types.Table, log *zap.Logger) *Appointments {
	if log == nil {
		log = zap.NewNop()
	}
	return &Appointments{table: table, log: log.With(zap.String("registry", types.AppointmentsTable))}
}

// QuoteFee prices a consultation without booking it.
func (r *Appointments) QuoteFee(totalDuration uint64) uint64 {
	return ConsultationFee(totalDuration)
}

// CreateAppointment books a consultation and returns its fee.
//
// It fails with ErrBookingConflict, writing nothing, when the client already
// has an appointment. The final write is an insert-if-absent, so of two
// concurrent bookings for the same client exactly one succeeds.
func (r *Appointments) CreateAppointment(ctx context.Context, req AppointmentRequest) (uint64, error) {
	log := r.log.With(zap.String("client_name", req.ClientName))

	_, err := r.table.Get(ctx, req.ClientName)
	switch {
	case err == nil:
		log.Info("booking rejected", zap.Error(ErrBookingConflict))
		return 0, fmt.Errorf("%w: client %q", ErrBookingConflict, req.ClientName)
	case !errors.Is(err, types.ErrNotFound):
		log.Error("booking lookup failed", zap.Error(err))
		return 0, fmt.Errorf("checking appointment for %q: %w", req.ClientName, err)
	}

	fee := ConsultationFee(req.TotalDuration)
	appt := types.Appointment{
		ClientName:        req.ClientName,
		ConsultationTopic: req.ConsultationTopic,
		StartDate:         req.StartDate,
		TotalDuration:     req.TotalDuration,
		ConsultationFee:   fee,
		PaymentMethod:     req.PaymentMethod,
		ConsultationType:  req.ConsultationType,
	}

	if err := r.table.Create(ctx, req.ClientName, &appt); err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			log.Info("booking rejected", zap.Error(ErrBookingConflict), zap.Bool("concurrent", true))
			return 0, fmt.Errorf("%w: client %q", ErrBookingConflict, req.ClientName)
		}
		log.Error("booking write failed", zap.Error(err))
		return 0, fmt.Errorf("storing appointment for %q: %w", req.ClientName, err)
	}

	log.Debug("appointment booked",
		zap.Uint64("total_duration", req.TotalDuration),
		zap.Uint64("consultation_fee", fee))
	return fee, nil
}

// GetAppointment returns the appointment booked for clientName. The boolean
// is false, with a nil error, when the client has none.
func (r *Appointments) GetAppointment(ctx context.Context, clientName string) (*types.Appointment, bool, error) {
	raw, err := r.table.Get(ctx, clientName)
	if errors.Is(err, types.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading appointment for %q: %w", clientName, err)
	}
	a, ok := raw.(*types.Appointment)
	if !ok {
		return nil, false, fmt.Errorf("loading appointment for %q: %w: got %T", clientName, types.ErrInvalidData, raw)
	}
	return a, true, nil
}
