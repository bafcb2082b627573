// Package cli implements the docket command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/internal/logger"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitCodeError carries the process exit code with the error that caused it.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

// userError marks err as the caller's fault (bad input, conflict, not found).
func userError(err error) error { return &exitCodeError{code: exitUserError, err: err} }

// sysError marks err as an environment failure (store, config).
func sysError(err error) error { return &exitCodeError{code: exitSysError, err: err} }

// exitCode maps an error returned by a command to a process exit code.
// Unmarked errors come from cobra's own argument and flag parsing.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return exitUserError
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by one command tree: flags, the loaded config,
// and the run's logger.
type app struct {
	flags     rootFlags
	v         *viper.Viper
	configDir string
	log       *zap.Logger
	runID     string
	longLived bool // set by serve; only then may the memory backend be used
}

// NewRootCmd creates the top-level "docket" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "docket",
		Short: "Contracts and consultation bookings for a legal practice",
		Long: "docket records service contracts and books one consultation per client,\n" +
			"pricing each consultation from its duration.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: .docket-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, redis, mongo, postgres (memory: serve only)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	_ = a.v.BindPFlag(keyBackend, pf.Lookup("backend"))
	_ = a.v.BindPFlag(keyLogLevel, pf.Lookup("log-level"))

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newContractCmd(a),
		newAppointmentCmd(a),
		newFeeCmd(a),
		newImportCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration and builds the run logger.
func (a *app) setup() error {
	if err := a.loadConfig(); err != nil {
		return sysError(err)
	}
	log, err := logger.New(logger.Config{
		Mode:  a.v.GetString(keyLogMode),
		Level: a.v.GetString(keyLogLevel),
	})
	if err != nil {
		return userError(err)
	}
	a.runID = newRunID()
	a.log = log.With(zap.String("run_id", a.runID))
	return nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError(fmt.Errorf("encoding output: %w", err))
	}
	return nil
}
