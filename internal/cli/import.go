package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docket/internal/importer"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Apply a JSONL batch of contracts and appointments",
		Long: "Apply a JSONL file where each line is a contract or appointment request\n" +
			"tagged with \"kind\". Malformed lines and booking conflicts are counted,\n" +
			"not fatal; a store failure stops the import.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if errors.Is(err, os.ErrNotExist) {
				return userError(fmt.Errorf("input file %s does not exist", args[0]))
			}
			if err != nil {
				return sysError(err)
			}
			defer f.Close()

			l, closeFn, err := a.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			im := importer.New(l,
				importer.WithWorkers(a.v.GetInt(keyImportWorkers)),
				importer.WithLogger(a.log))
			rep, err := im.Run(cmd.Context(), f)
			if err != nil {
				return sysError(fmt.Errorf("import stopped: %w", err))
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"contracts: %d\nappointments: %d\nconflicts: %d\nmalformed: %d\nfees booked: %d\n",
				rep.Contracts, rep.Appointments, rep.Conflicts, rep.Malformed, rep.FeesBooked)
			return nil
		},
	}
	cmd.Flags().Int("workers", importer.DefaultWorkers, "concurrent writers")
	_ = a.v.BindPFlag(keyImportWorkers, cmd.Flags().Lookup("workers"))
	return cmd
}
