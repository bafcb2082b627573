package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/docket/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize docket configuration and storage",
		Long: "Create the configuration directory and a default config.yaml, then attach\n" +
			"the configured backend once so its storage is ready.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runInit(cmd)
		},
	}
}

func (a *app) runInit(cmd *cobra.Command) error {
	if err := os.MkdirAll(a.configDir, 0o755); err != nil {
		return sysError(fmt.Errorf("create config directory: %w", err))
	}

	var dataDir string
	if a.flags.dataDir != "" {
		abs, err := filepath.Abs(a.flags.dataDir)
		if err != nil {
			return sysError(err)
		}
		dataDir = abs
	}

	configPath := paths.ConfigFile(a.configDir)
	written, err := writeConfigIfMissing(configPath, dataDir)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}
	if written {
		// Re-read so the new file's settings apply to this run.
		if err := a.v.ReadInConfig(); err != nil {
			return sysError(fmt.Errorf("reading %s: %w", configPath, err))
		}
	}

	cfg, err := a.storeConfig()
	if err != nil {
		return sysError(fmt.Errorf("config: %w", err))
	}
	s, err := a.openStore(cmd.Context(), cfg)
	if err != nil {
		return sysError(fmt.Errorf("initialize storage: %w", err))
	}
	if err := s.Detach(); err != nil {
		return sysError(fmt.Errorf("finalize storage: %w", err))
	}

	a.log.Info("initialized", zap.String("config", configPath), zap.String("backend", cfg.Backend))
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"config":   configPath,
			"backend":  cfg.Backend,
			"data_dir": cfg.DataDir,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "docket initialized\nconfig: %s\nbackend: %s\n", configPath, cfg.Backend)
	if cfg.DataDir != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "data: %s\n", cfg.DataDir)
	}
	return nil
}
