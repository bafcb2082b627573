package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docket/pkg/types"
)

func newContractCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Record and look up service contracts",
	}
	cmd.AddCommand(newContractCreateCmd(a), newContractGetCmd(a))
	return cmd
}

func newContractCreateCmd(a *app) *cobra.Command {
	var c types.Contract
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a contract, replacing any contract with the same case number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, closeFn, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := l.CreateContract(cmd.Context(), c); err != nil {
				return sysError(err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"case_number": c.CaseNumber})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "contract %s recorded\n", c.CaseNumber)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.AttorneyName, "attorney", "", "attorney name")
	f.StringVar(&c.ClientName, "client", "", "client name")
	f.StringVar(&c.Institution, "institution", "", "institution")
	f.StringVar(&c.CaseNumber, "case", "", "case number (the contract key)")
	f.Uint64Var(&c.ContractFee, "fee", 0, "contract fee in whole currency units")
	f.StringVar(&c.PaymentMethod, "payment", "", "payment method")
	f.StringVar(&c.PenaltyClause, "penalty", "", "penalty clause")
	f.StringVar(&c.DisputeResolution, "dispute", "", "dispute resolution")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func newContractGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <case_number>",
		Short: "Show the contract for a case number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, closeFn, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			c, ok, err := l.GetContract(cmd.Context(), args[0])
			if err != nil {
				return sysError(err)
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				if err := printJSON(out, c); err != nil {
					return err
				}
			} else if ok {
				printContract(out, c)
			}
			if !ok {
				return userError(errors.New("contract not found"))
			}
			return nil
		},
	}
}

func printContract(w io.Writer, c *types.Contract) {
	fmt.Fprintf(w, "case_number:        %s\n", c.CaseNumber)
	fmt.Fprintf(w, "attorney_name:      %s\n", c.AttorneyName)
	fmt.Fprintf(w, "client_name:        %s\n", c.ClientName)
	fmt.Fprintf(w, "institution:        %s\n", c.Institution)
	fmt.Fprintf(w, "contract_fee:       %d\n", c.ContractFee)
	fmt.Fprintf(w, "payment_method:     %s\n", c.PaymentMethod)
	fmt.Fprintf(w, "penalty_clause:     %s\n", c.PenaltyClause)
	fmt.Fprintf(w, "dispute_resolution: %s\n", c.DisputeResolution)
}
