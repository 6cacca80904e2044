package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qrgen/internal/config"
	"qrgen/pkg/logging/logging"
)

// flagKeys maps command-line flags to configuration keys. Flags missing from
// the running command are skipped.
var flagKeys = map[string]string{
	"log-level":      "log.level",
	"dev":            "log.development",
	"host":           "server.host",
	"port":           "server.port",
	"cache-backend":  "cache.backend",
	"cache-capacity": "cache.capacity",
	"redis-addr":     "cache.redis_addr",
	"workers":        "render.workers",
	"recovery-level": "render.recovery_level",
}

// cli carries state from the root pre-run to subcommands.
type cli struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the qrgen command tree.
func NewRootCommand(version string) *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "qrgen",
		Short: "QR code image generator",
		Long: `qrgen renders QR codes as WebP images, optionally with a remote logo
composited in the center.

Examples:
  qrgen serve --port 3200
  qrgen render --data "https://example.com" --width 300 -o qr.webp`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "",
		"config file (default is qrgen.yaml in ., $HOME, $XDG_CONFIG_HOME/qrgen, /etc/qrgen)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("dev", false, "human-readable development logging")

	root.AddCommand(newServeCommand(c), newRenderCommand(c))
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	loader := config.NewLoader(viper.New())
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := loader.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := loader.Load(c.cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	if used := loader.ConfigFileUsed(); used != "" {
		logger.Info("config file loaded", zap.String("path", used))
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}
