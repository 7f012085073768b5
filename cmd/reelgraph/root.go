package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/maauso/reelgraph/internal/bootstrap"
	"github.com/maauso/reelgraph/internal/config"
)

func newRootCommand() *cobra.Command {
	var logLevel string
	var logFormat string

	ctx := newCommandContext(&logLevel, &logFormat)

	rootCmd := &cobra.Command{
		Use:           "reelgraph",
		Short:         "Compose video edits into one ffmpeg filtergraph",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override LOG_FORMAT (text, json)")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newGraphCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))

	return rootCmd
}

// commandContext loads configuration and dependencies once per invocation.
type commandContext struct {
	logLevel  *string
	logFormat *string

	once sync.Once
	deps *bootstrap.Dependencies
	err  error
}

func newCommandContext(logLevel, logFormat *string) *commandContext {
	return &commandContext{logLevel: logLevel, logFormat: logFormat}
}

func (c *commandContext) dependencies() (*bootstrap.Dependencies, error) {
	c.once.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.err = fmt.Errorf("load config: %w", err)
			return
		}
		if v := strings.TrimSpace(*c.logLevel); v != "" {
			cfg.LogLevel = v
		}
		if v := strings.TrimSpace(*c.logFormat); v != "" {
			cfg.LogFormat = v
		}

		logger := cfg.NewLogger()
		slog.SetDefault(logger)
		logger.Debug("configuration loaded", slog.String("config", cfg.String()))

		deps, err := bootstrap.NewDependencies(cfg, logger)
		if err != nil {
			c.err = fmt.Errorf("initialize dependencies: %w", err)
			return
		}
		c.deps = deps
	})
	return c.deps, c.err
}
