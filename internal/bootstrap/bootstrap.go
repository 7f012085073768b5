// Package bootstrap wires the prober, runner and storage from configuration.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/maauso/reelgraph/internal/config"
	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/probe"
	"github.com/maauso/reelgraph/internal/runner"
	"github.com/maauso/reelgraph/internal/storage"
)

// Dependencies holds everything a command needs to build and render.
type Dependencies struct {
	Config  *config.Config
	Logger  *slog.Logger
	Prober  *probe.FFprobe
	Runner  *runner.Runner
	Storage storage.Storage
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger, opts ...runner.Option) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	runnerOpts := append([]runner.Option{runner.WithLogger(logger)}, opts...)

	return &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Prober:  probe.NewFFprobe(cfg.FFprobePath),
		Runner:  runner.New(cfg.RunnerConfig(), runnerOpts...),
		Storage: store,
	}, nil
}

// NewBuilder returns an empty builder at the given size, falling back to
// the configured target size for zero values.
func (d *Dependencies) NewBuilder(width, height int, master bool) *graph.Builder {
	if width == 0 {
		width = d.Config.TargetWidth
	}
	if height == 0 {
		height = d.Config.TargetHeight
	}
	opts := []graph.Option{graph.WithProber(d.Prober)}
	if master {
		opts = append(opts, graph.WithMaster())
	}
	return graph.New(width, height, opts...)
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.WorkDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Debug("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Debug("local storage configured",
		slog.String("work_dir", cfg.WorkDir),
	)
	return localStore, nil
}
