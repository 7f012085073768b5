package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/maauso/reelgraph/internal/bootstrap"
	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/metadata"
	"github.com/maauso/reelgraph/internal/scenario"
)

var errNoOutput = errors.New("no output: set output in the scenario or pass --output")

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var output string
	var verify bool

	cmd := &cobra.Command{
		Use:   "render <scenario>",
		Short: "Render a scenario file",
		Long: `Render builds the filtergraph described by a YAML or JSON scenario and runs
it with a single ffmpeg invocation. The result is published to local disk, or
to S3 when S3_BUCKET is set, and its location is printed.

Examples:
  reelgraph render clip.yaml
  reelgraph render clip.yaml --output final.mp4 --verify`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			if output != "" {
				sc.Output = output
			}
			location, err := render(cmd.Context(), deps, sc, verify)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), location)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path or object key (overrides the scenario)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Check the written metadata tags before publishing")

	return cmd
}

func render(ctx context.Context, deps *bootstrap.Dependencies, sc *scenario.Scenario, verify bool) (string, error) {
	if sc.Output == "" {
		return "", errNoOutput
	}
	logger := deps.Logger.With(slog.String("scenario_output", sc.Output))

	unlock, err := deps.Storage.Lock(sc.Output)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn("release lock failed", slog.Any("error", err))
		}
	}()

	b, err := scenario.Apply(ctx, sc, func(master bool) *graph.Builder {
		return deps.NewBuilder(sc.Width, sc.Height, master)
	})
	if err != nil {
		return "", fmt.Errorf("build graph: %w", err)
	}

	tags := metadata.Tags(sc.Tags)
	if sc.GenerateTags {
		gen := metadata.Generator{Title: sc.Title, Encoder: "reelgraph"}
		tags = metadata.Merge(gen.Generate(), tags)
	}

	work := deps.Storage.WorkPath(filepath.Base(sc.Output))
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := deps.Storage.Cleanup(cleanupCtx, []string{work}); err != nil {
			logger.Warn("cleanup failed", slog.String("path", work), slog.Any("error", err))
		}
	}()

	logger.Info("rendering",
		slog.Int("inputs", len(b.Inputs())),
		slog.Int("stages", len(b.Stages())),
		slog.String("duration", b.CompoundDuration().String()),
	)
	if _, err := deps.Runner.Run(ctx, b, work, tags); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	if verify && len(tags) > 0 {
		if err := metadata.Verify(ctx, deps.Prober, work, tags); err != nil {
			return "", err
		}
		logger.Info("metadata verified", slog.Int("tags", len(tags)))
	}

	location, err := deps.Storage.Publish(ctx, sc.Output, work)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	logger.Info("published", slog.String("location", location))
	return location, nil
}
