package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/reelgraph/internal/probe"
)

type probeOutput struct {
	Path string `json:"path"`
	*probe.Result
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "probe <file>...",
		Short: "Print resolution, duration, audio presence and tags",
		Long: `Probe inspects each file with ffprobe. Output is a table on a terminal and
one JSON object per file otherwise; --format forces either.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := ctx.dependencies()
			if err != nil {
				return err
			}

			results := make([]probeOutput, 0, len(args))
			for _, path := range args {
				res, err := deps.Prober.Probe(cmd.Context(), path)
				if err != nil {
					return err
				}
				results = append(results, probeOutput{Path: path, Result: res})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "auto":
				if !isTerminal(out) {
					return writeProbeJSON(cmd, results)
				}
				fallthrough
			case "table":
				fmt.Fprintln(out, probeTable(results))
				return nil
			case "json":
				return writeProbeJSON(cmd, results)
			default:
				return fmt.Errorf("unknown format %q (want auto, table or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "Output format: auto, table or json")

	return cmd
}

func writeProbeJSON(cmd *cobra.Command, results []probeOutput) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func probeTable(results []probeOutput) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		duration := "unknown"
		if r.HasDuration {
			duration = strconv.FormatFloat(r.Duration, 'f', 3, 64) + "s"
		}
		rows = append(rows, []string{
			r.Path,
			fmt.Sprintf("%dx%d", r.Resolution.Width, r.Resolution.Height),
			duration,
			strconv.FormatBool(r.HasAudio),
			formatTags(r.Tags),
		})
	}
	return renderTable(
		[]string{"File", "Resolution", "Duration", "Audio", "Tags"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func formatTags(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + tags[k]
	}
	return strings.Join(parts, " ")
}
