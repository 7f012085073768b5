package runner

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// Progress is one report from ffmpeg's -progress output.
type Progress struct {
	Frame   int64
	OutTime time.Duration
	// Speed is the encode speed relative to realtime, 0 when unreported.
	Speed float64
	// Percent is in [0, 100], or -1 when the output length is unknown.
	Percent float64
	// Done is set on the final report.
	Done bool
}

// progressParser accumulates key=value lines into Progress reports.
// "progress=continue" and "progress=end" close a report.
type progressParser struct {
	total   time.Duration
	current Progress
	emit    func(Progress)
}

func newProgressParser(total time.Duration, emit func(Progress)) *progressParser {
	return &progressParser{total: total, emit: emit}
}

func (p *progressParser) line(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	switch key {
	case "frame":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
			p.current.Frame = n
		}
	case "out_time_us", "out_time_ms":
		// out_time_ms is in microseconds too, despite the name.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.OutTime = time.Duration(us) * time.Microsecond
		}
	case "speed":
		if s, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil && s >= 0 {
			p.current.Speed = s
		}
	case "progress":
		p.current.Done = value == "end"
		p.current.Percent = p.percent()
		if p.emit != nil {
			p.emit(p.current)
		}
	}
}

func (p *progressParser) percent() float64 {
	if p.current.Done {
		return 100
	}
	if p.total <= 0 {
		return -1
	}
	pct := float64(p.current.OutTime) / float64(p.total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// lineWriter splits written bytes into lines and hands each to fn.
type lineWriter struct {
	fn  func(string)
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		if line := string(w.buf[:i]); line != "" {
			w.fn(line)
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// flush emits an unterminated trailing line.
func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.fn(string(w.buf))
		w.buf = nil
	}
}

// tail keeps the last max lines.
type tail struct {
	max   int
	lines []string
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) add(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tail) snapshot() []string {
	return append([]string(nil), t.lines...)
}
