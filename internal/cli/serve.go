package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docket/internal/httpapi"
	"github.com/mesh-intelligence/docket/pkg/types"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		ephemeral bool
		origins   []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.longLived = true
			if ephemeral {
				a.v.Set(keyBackend, types.BackendMemory)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			addr := a.v.GetString(keyHTTPAddr)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError(fmt.Errorf("listen %s: %w", addr, err))
			}

			gin.SetMode(gin.ReleaseMode)
			router := httpapi.New(l, a.log).Router(httpapi.Config{AllowOrigins: origins})
			fmt.Fprintf(cmd.OutOrStdout(), "serving on %s\n", ln.Addr())
			if err := httpapi.Serve(ctx, ln, router, a.log); err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().String("addr", defaultHTTPAddr, "listen address")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "keep records in memory only")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	_ = a.v.BindPFlag(keyHTTPAddr, cmd.Flags().Lookup("addr"))
	return cmd
}
