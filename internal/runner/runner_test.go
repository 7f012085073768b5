package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/metadata"
	"github.com/maauso/reelgraph/internal/probe"
)

type stubProber map[string]*probe.Result

func (s stubProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	if r, ok := s[path]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", probe.ErrProbeFailed, path)
}

var stub = stubProber{
	"main.mp4":   {Resolution: probe.Resolution{Width: 1920, Height: 1080}, Duration: 4, HasDuration: true, HasAudio: true},
	"silent.mp4": {Resolution: probe.Resolution{Width: 640, Height: 360}, Duration: 10, HasDuration: true},
}

func newTestBuilder(t *testing.T, path string) *graph.Builder {
	t.Helper()
	b := graph.New(720, 1280, graph.WithProber(stub), graph.WithMaster())
	require.NoError(t, b.Init(context.Background(), path))
	return b
}

// fakeFFmpeg writes a script that prints progress and diagnostics, writes
// its last argument as the output file and exits with code.
func fakeFFmpeg(t *testing.T, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg script requires a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := fmt.Sprintf(`#!/bin/sh
for last; do :; done
echo "frame=30"
echo "out_time_us=2000000"
echo "speed=1.5x"
echo "progress=continue"
echo "out_time_us=4000000"
echo "progress=end"
echo "diag line 1" >&2
printf "diag line 2" >&2
printf data > "$last"
exit %d
`, code)
	require.NoError(t, os.WriteFile(script, []byte(body), 0700))
	return script
}

func sleepingFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg script requires a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexec sleep 30\n"), 0700))
	return script
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{CRF: 18})
	cfg := r.Config()
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "veryfast", cfg.Preset)
	assert.Equal(t, 18, cfg.CRF)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, "128k", cfg.AudioBitrate)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, "yuv420p", cfg.PixelFormat)
}

func TestArgs(t *testing.T) {
	r := New(Config{})
	b := newTestBuilder(t, "main.mp4")

	args, err := r.Args(b, "out.mp4", metadata.Tags{"title": "T", "artist": "A"})
	require.NoError(t, err)
	assert.False(t, b.Consumed(), "Args does not consume")

	want := []string{
		"-y", "-hide_banner", "-nostdin",
		"-i", "main.mp4",
		"-filter_complex", b.FilterComplex(),
		"-map", "[v0]", "-map", "[a1]",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-pix_fmt", "yuv420p", "-r", "30",
		"-c:a", "aac", "-b:a", "128k", "-ar", "44100",
		"-metadata", "artist=A", "-metadata", "title=T",
		"-movflags", "+faststart+use_metadata_tags",
		"out.mp4",
	}
	assert.Equal(t, want, args)
}

func TestArgs_ShortestAndProgress(t *testing.T) {
	r := New(Config{LogProgress: true})
	b := newTestBuilder(t, "silent.mp4")

	args, err := r.Args(b, "out.mp4", nil)
	require.NoError(t, err)
	assert.Contains(t, args, "-shortest")
	assert.Subset(t, args, []string{"-progress", "pipe:1", "-nostats"})
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestArgs_NoInputs(t *testing.T) {
	r := New(Config{})
	_, err := r.Args(graph.New(720, 1280, graph.WithProber(stub)), "out.mp4", nil)
	assert.ErrorIs(t, err, ErrNoInputs)
	assert.ErrorIs(t, err, graph.ErrUsage)
}

func TestRun_Success(t *testing.T) {
	var (
		mu       sync.Mutex
		started  []string
		reports  []Progress
		stderrLn []string
	)
	r := New(Config{FFmpegPath: fakeFFmpeg(t, 0)}, WithHooks(Hooks{
		OnStart: func(args []string) { started = args },
		OnProgress: func(p Progress) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, p)
		},
		OnStderr: func(line string) {
			mu.Lock()
			defer mu.Unlock()
			stderrLn = append(stderrLn, line)
		},
	}))

	b := newTestBuilder(t, "main.mp4")
	output := filepath.Join(t.TempDir(), "out.mp4")

	got, err := r.Run(context.Background(), b, output, metadata.Tags{"title": "T"})
	require.NoError(t, err)
	assert.Equal(t, output, got)
	assert.True(t, b.Consumed())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	assert.Equal(t, output, started[len(started)-1])
	require.Len(t, reports, 2)
	assert.Equal(t, int64(30), reports[0].Frame)
	assert.Equal(t, 2*time.Second, reports[0].OutTime)
	assert.InDelta(t, 50.0, reports[0].Percent, 1e-9)
	assert.InDelta(t, 1.5, reports[0].Speed, 1e-9)
	assert.True(t, reports[1].Done)
	assert.Equal(t, 100.0, reports[1].Percent)
	assert.Equal(t, []string{"diag line 1", "diag line 2"}, stderrLn)

	_, err = r.Run(context.Background(), b, output, nil)
	assert.ErrorIs(t, err, graph.ErrConsumed)
}

func TestRun_SilentSource(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var started []string
	r := New(Config{FFmpegPath: fakeFFmpeg(t, 0)}, WithHooks(Hooks{
		OnStart: func(args []string) { started = args },
	}))
	b := newTestBuilder(t, "silent.mp4")

	got, err := r.Run(context.Background(), b, "out.mp4", nil)
	require.NoError(t, err)
	assert.Equal(t, "out.mp4", got)
	assert.Contains(t, started, "-shortest")
	assert.Equal(t, "out.mp4", started[len(started)-1])

	data, err := os.ReadFile("out.mp4")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestRun_Failure(t *testing.T) {
	r := New(Config{FFmpegPath: fakeFFmpeg(t, 3)})
	b := newTestBuilder(t, "main.mp4")

	_, err := r.Run(context.Background(), b, filepath.Join(t.TempDir(), "out.mp4"), nil)
	require.ErrorIs(t, err, ErrEncodeFailed)

	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, 3, encErr.ExitCode)
	assert.Equal(t, []string{"diag line 1", "diag line 2"}, encErr.StderrTail)
	assert.Contains(t, encErr.Args, "-filter_complex")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestRun_MissingBinary(t *testing.T) {
	r := New(Config{FFmpegPath: filepath.Join(t.TempDir(), "no-such-ffmpeg")})
	_, err := r.Run(context.Background(), newTestBuilder(t, "main.mp4"), "out.mp4", nil)

	var encErr *EncodeError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, -1, encErr.ExitCode)
}

func TestRun_InvalidTags(t *testing.T) {
	r := New(Config{FFmpegPath: fakeFFmpeg(t, 0)})
	b := newTestBuilder(t, "main.mp4")

	_, err := r.Run(context.Background(), b, "out.mp4", metadata.Tags{"bad=key": "x"})
	assert.ErrorIs(t, err, metadata.ErrInvalidTag)
	assert.False(t, b.Consumed())
}

func TestStart_Cancel(t *testing.T) {
	r := New(Config{FFmpegPath: sleepingFFmpeg(t)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enc := r.Start(ctx, newTestBuilder(t, "main.mp4"), "out.mp4", nil)
	select {
	case <-enc.Done():
		t.Fatal("run finished before cancel")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	select {
	case <-enc.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	_, err := enc.Wait()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgressParser(t *testing.T) {
	var got []Progress
	p := newProgressParser(0, func(pr Progress) { got = append(got, pr) })
	for _, line := range []string{"out_time_ms=1500000", "speed=N/A", "bogus", "progress=continue"} {
		p.line(line)
	}
	require.Len(t, got, 1)
	assert.Equal(t, 1500*time.Millisecond, got[0].OutTime)
	assert.Equal(t, -1.0, got[0].Percent)
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := &lineWriter{fn: func(s string) { lines = append(lines, s) }}
	_, _ = w.Write([]byte("a\nb"))
	_, _ = w.Write([]byte("c\r\n\nd"))
	w.flush()
	assert.Equal(t, []string{"a", "bc", "d"}, lines)
}

func TestTail(t *testing.T) {
	tl := newTail(2)
	for _, s := range []string{"1", "2", "3"} {
		tl.add(s)
	}
	assert.Equal(t, []string{"2", "3"}, tl.snapshot())
}

func TestRun_RealFFmpeg(t *testing.T) {
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
	ctx := context.Background()
	dir := t.TempDir()

	main := filepath.Join(dir, "main.mp4")
	overlay := filepath.Join(dir, "overlay.mp4")
	for path, src := range map[string][]string{
		main:    {"-f", "lavfi", "-i", "testsrc=size=320x240:rate=30:duration=3"},
		overlay: {"-f", "lavfi", "-i", "testsrc2=size=200x100:rate=30:duration=2", "-f", "lavfi", "-i", "sine=frequency=440:duration=2"},
	} {
		args := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, src...)
		args = append(args, "-pix_fmt", "yuv420p", "-shortest", path)
		out, err := exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
		require.NoError(t, err, string(out))
	}

	prober := probe.NewFFprobe("")
	b := graph.New(360, 640, graph.WithProber(prober), graph.WithMaster())
	require.NoError(t, b.Init(ctx, main))
	require.NoError(t, b.HueAdjust(30, 1.2))

	ov := graph.New(360, 640, graph.WithProber(prober))
	require.NoError(t, ov.Init(ctx, overlay))
	require.NoError(t, b.OverlayWith(ov, graph.OverlayOptions{StartTime: 0.5, Duration: 1.5, Padding: 20}))

	output := filepath.Join(dir, "out.mp4")
	tags := metadata.Tags{"title": "reelgraph test"}
	r := New(Config{Preset: "ultrafast"})
	_, err := r.Run(ctx, b, output, tags)
	require.NoError(t, err)

	res, err := prober.Probe(ctx, output)
	require.NoError(t, err)
	assert.Equal(t, probe.Resolution{Width: 360, Height: 640}, res.Resolution)
	assert.True(t, res.HasAudio)
	assert.InDelta(t, 3.0, res.Duration, 0.2)
	assert.NoError(t, metadata.Verify(ctx, prober, output, tags))
}
