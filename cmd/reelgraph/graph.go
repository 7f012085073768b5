package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/metadata"
	"github.com/maauso/reelgraph/internal/scenario"
)

func newGraphCommand(ctx *commandContext) *cobra.Command {
	var showArgs bool
	var showStages bool

	cmd := &cobra.Command{
		Use:   "graph <scenario>",
		Short: "Print the filtergraph of a scenario without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			b, err := scenario.Apply(cmd.Context(), sc, func(master bool) *graph.Builder {
				return deps.NewBuilder(sc.Width, sc.Height, master)
			})
			if err != nil {
				return fmt.Errorf("build graph: %w", err)
			}

			out := cmd.OutOrStdout()
			switch {
			case showArgs:
				output := sc.Output
				if output == "" {
					output = "out.mp4"
				}
				ffArgs, err := deps.Runner.Args(b, output, metadata.Tags(sc.Tags))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, deps.Config.FFmpegPath, strings.Join(ffArgs, " "))
			case showStages:
				for _, s := range b.Stages() {
					fmt.Fprintf(out, "# %s\n%s\n", s.Name, strings.ReplaceAll(s.String(), ";", ";\n"))
				}
			default:
				fmt.Fprintln(out, b.FilterComplex())
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "duration: %s\n", b.CompoundDuration())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showArgs, "args", false, "Print the full ffmpeg command line")
	cmd.Flags().BoolVar(&showStages, "stages", false, "Print one stage per block")

	return cmd
}
