package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docket/pkg/ledger"
	"github.com/mesh-intelligence/docket/pkg/types"
)

func newAppointmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointment",
		Aliases: []string{"appt"},
		Short:   "Book and look up consultations",
	}
	cmd.AddCommand(newAppointmentCreateCmd(a), newAppointmentGetCmd(a))
	return cmd
}

func newAppointmentCreateCmd(a *app) *cobra.Command {
	var req ledger.AppointmentRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Book a consultation and print its fee",
		Long: "Book a consultation for a client. Each client may hold one appointment;\n" +
			"a second booking for the same client is rejected.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeFn, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			fee, err := l.CreateAppointment(cmd.Context(), req)
			if errors.Is(err, ledger.ErrBookingConflict) {
				return userError(ledger.ErrBookingConflict)
			}
			if err != nil {
				return sysError(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"client_name":      req.ClientName,
					"consultation_fee": fee,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appointment booked for %s, fee %d\n", req.ClientName, fee)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ClientName, "client", "", "client name (the appointment key)")
	f.StringVar(&req.ConsultationTopic, "topic", "", "consultation topic")
	f.StringVar(&req.StartDate, "start", "", "start date, stored as given")
	f.Uint64Var(&req.TotalDuration, "duration", 0, "duration in minutes")
	f.StringVar(&req.PaymentMethod, "payment", "", "payment method")
	f.StringVar(&req.ConsultationType, "type", "", "consultation type")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func newAppointmentGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <client_name>",
		Short: "Show the appointment booked for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			appt, ok, err := l.GetAppointment(cmd.Context(), args[0])
			if err != nil {
				return sysError(err)
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				if err := printJSON(out, appt); err != nil {
					return err
				}
			} else if ok {
				printAppointment(out, appt)
			}
			if !ok {
				return userError(errors.New("appointment not found"))
			}
			return nil
		},
	}
}

func printAppointment(w io.Writer, a *types.Appointment) {
	fmt.Fprintf(w, "client_name:        %s\n", a.ClientName)
	fmt.Fprintf(w, "consultation_topic: %s\n", a.ConsultationTopic)
	fmt.Fprintf(w, "start_date:         %s\n", a.StartDate)
	fmt.Fprintf(w, "total_duration:     %d\n", a.TotalDuration)
	fmt.Fprintf(w, "consultation_fee:   %d\n", a.ConsultationFee)
	fmt.Fprintf(w, "payment_method:     %s\n", a.PaymentMethod)
	fmt.Fprintf(w, "consultation_type:  %s\n", a.ConsultationType)
}
