// Package runner lowers a finished filtergraph into a single ffmpeg
// invocation and executes it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/metadata"
)

const (
	// stderrTailLines is how much ffmpeg diagnostics an EncodeError keeps.
	stderrTailLines = 40
	// waitDelay bounds how long Wait blocks on output pipes after the
	// process is killed.
	waitDelay = 5 * time.Second
)

// Config controls encoding and diagnostics.
type Config struct {
	// FFmpegPath defaults to "ffmpeg" on PATH.
	FFmpegPath   string
	Preset       string
	CRF          int
	FrameRate    int
	AudioBitrate string
	SampleRate   int
	PixelFormat  string

	// LogStart logs the full command line before the run.
	LogStart bool
	// LogProgress requests -progress output and logs each report.
	LogProgress bool
	// LogStderr logs every ffmpeg diagnostic line at debug level.
	LogStderr bool
}

// DefaultConfig returns the standard H.264/AAC settings.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:   "ffmpeg",
		Preset:       "veryfast",
		CRF:          23,
		FrameRate:    30,
		AudioBitrate: "128k",
		SampleRate:   graph.SampleRate,
		PixelFormat:  "yuv420p",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.Preset == "" {
		c.Preset = d.Preset
	}
	if c.CRF == 0 {
		c.CRF = d.CRF
	}
	if c.FrameRate == 0 {
		c.FrameRate = d.FrameRate
	}
	if c.AudioBitrate == "" {
		c.AudioBitrate = d.AudioBitrate
	}
	if c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
	if c.PixelFormat == "" {
		c.PixelFormat = d.PixelFormat
	}
	return c
}

// Hooks observe a run. Any field may be nil.
type Hooks struct {
	OnStart    func(args []string)
	OnProgress func(Progress)
	OnStderr   func(line string)
}

// Runner executes pipelines with ffmpeg.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	hooks  Hooks
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithHooks installs run observers.
func WithHooks(h Hooks) Option {
	return func(r *Runner) {
		r.hooks = h
	}
}

// New creates a Runner. Zero config fields take their DefaultConfig value.
func New(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg.withDefaults(), logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective configuration.
func (r *Runner) Config() Config { return r.cfg }

func (r *Runner) wantProgress() bool {
	return r.cfg.LogProgress || r.hooks.OnProgress != nil
}

// Encode is a running or finished ffmpeg invocation.
type Encode struct {
	done   chan struct{}
	args   []string
	output string
	err    error
}

// Wait blocks until the run ends and returns the output path.
func (e *Encode) Wait() (string, error) {
	<-e.done
	return e.output, e.err
}

// Done is closed when the run ends.
func (e *Encode) Done() <-chan struct{} { return e.done }

// Args returns the ffmpeg arguments, nil if the run failed before start.
func (e *Encode) Args() []string { return e.args }

// Run renders the builder to output and blocks until ffmpeg exits.
// The builder is consumed once the tags are valid and the graph is non-empty.
func (r *Runner) Run(ctx context.Context, b *graph.Builder, output string, tags metadata.Tags) (string, error) {
	return r.Start(ctx, b, output, tags).Wait()
}

// Start launches the render in the background. Cancelling ctx kills ffmpeg.
func (r *Runner) Start(ctx context.Context, b *graph.Builder, output string, tags metadata.Tags) *Encode {
	e := &Encode{done: make(chan struct{}), output: output}

	if err := tags.Validate(); err != nil {
		e.err = err
		close(e.done)
		return e
	}
	plan, err := b.Finalize()
	if err != nil {
		e.err = err
		close(e.done)
		return e
	}
	e.args = r.PlanArgs(plan, output, tags)

	go func() {
		defer close(e.done)
		e.err = r.exec(ctx, plan, e.args)
	}()
	return e
}

func (r *Runner) exec(ctx context.Context, plan graph.Plan, args []string) error {
	log := r.logger.With(slog.String("output", args[len(args)-1]))

	if r.cfg.LogStart {
		log.Info("ffmpeg start",
			slog.Int("inputs", len(plan.Inputs)),
			slog.String("duration", plan.Duration.String()),
			slog.String("cmd", r.cfg.FFmpegPath+" "+strings.Join(args, " ")))
	}
	if r.hooks.OnStart != nil {
		r.hooks.OnStart(args)
	}

	// #nosec G204 - ffmpegPath comes from configuration, args are built from typed filters
	cmd := exec.CommandContext(ctx, r.cfg.FFmpegPath, args...)
	cmd.WaitDelay = waitDelay

	stderrTail := newTail(stderrTailLines)
	stderr := &lineWriter{fn: func(line string) {
		stderrTail.add(line)
		if r.cfg.LogStderr {
			log.Debug("ffmpeg stderr", slog.String("line", line))
		}
		if r.hooks.OnStderr != nil {
			r.hooks.OnStderr(line)
		}
	}}
	cmd.Stderr = stderr

	var stdout *lineWriter
	if r.wantProgress() {
		var total time.Duration
		if d, ok := plan.Duration.Value(); ok {
			total = time.Duration(d * float64(time.Second))
		}
		parser := newProgressParser(total, func(p Progress) {
			if r.cfg.LogProgress {
				log.Info("ffmpeg progress",
					slog.Float64("percent", p.Percent),
					slog.Duration("out_time", p.OutTime),
					slog.Float64("speed", p.Speed))
			}
			if r.hooks.OnProgress != nil {
				r.hooks.OnProgress(p)
			}
		})
		stdout = &lineWriter{fn: parser.line}
		cmd.Stdout = stdout
	}

	started := time.Now()
	err := cmd.Run()
	stderr.flush()
	if stdout != nil {
		stdout.flush()
	}

	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		log.Error("ffmpeg failed", slog.Int("exit_code", exitCode), slog.Any("error", err))
		return &EncodeError{
			Args:       args,
			StderrTail: stderrTail.snapshot(),
			ExitCode:   exitCode,
			Err:        err,
		}
	}

	log.Info("ffmpeg finished", slog.Duration("elapsed", time.Since(started)))
	return nil
}
