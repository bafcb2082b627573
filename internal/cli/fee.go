package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docket/pkg/ledger"
)

func newFeeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fee <minutes>",
		Short: "Quote a consultation fee without booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return userError(fmt.Errorf("minutes must be a non-negative integer: %q", args[0]))
			}
			fee := ledger.ConsultationFee(d)
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]uint64{
					"total_duration":   d,
					"consultation_fee": fee,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), fee)
			return nil
		},
	}
}
