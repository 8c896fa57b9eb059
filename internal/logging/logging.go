// Package logging builds the slog logger used by kbuild.
//
// Records are rendered in a terse single-line format:
//
//	INFO 2024-05-01 10:00:00 | installing repo=kokkos tag=3.7.02
//
// Level labels are colored when the destination is a terminal.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
	"golang.org/x/term"
)

// TimeFormat is the timestamp layout of every record
const TimeFormat = "2006-01-02 15:04:05"

// Options selects the logger's verbosity and destination
type Options struct {
	Debug   bool
	Warning bool
	Error   bool
	Quiet   bool

	// File, when set, receives the records instead of the console
	File string
}

// Level maps the verbosity switches to a level. Exactly one switch may be
// set; conflicting or absent switches select Info.
func (o Options) Level() slog.Level {
	errorish := o.Error || o.Quiet

	switch {
	case o.Debug && !o.Warning && !errorish:
		return slog.LevelDebug
	case o.Warning && !o.Debug && !errorish:
		return slog.LevelWarn
	case errorish && !o.Debug && !o.Warning:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New constructs a logger writing to w. If level is nil, slog.LevelInfo is used.
func New(w io.Writer, level slog.Leveler, colored bool) *slog.Logger {
	if w == nil {
		panic("logging: writer must not be nil")
	}

	if level == nil {
		level = slog.LevelInfo
	}

	return slog.New(&cliHandler{writer: w, level: level, color: colored, mu: &sync.Mutex{}})
}

// Open constructs the logger described by opts. The returned closer releases
// the log file, if any.
func Open(opts Options, console *os.File) (*slog.Logger, io.Closer, error) {
	if opts.File == "" {
		return New(console, opts.Level(), IsTerminal(console)), nopCloser{}, nil
	}

	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(f, opts.Level(), false), f, nil
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type cliHandler struct {
	writer io.Writer
	level  slog.Leveler
	color  bool

	mu     *sync.Mutex
	pre    string // attrs from WithAttrs, already rendered
	groups []string
}

func (h *cliHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *cliHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	b.WriteString(h.label(record.Level))
	b.WriteByte(' ')
	b.WriteString(timestamp.Format(TimeFormat))
	b.WriteString(" | ")
	b.WriteString(record.Message)

	b.WriteString(h.pre)

	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&b, h.groups, attr)
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *cliHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	for _, attr := range attrs {
		appendAttr(&b, h.groups, attr)
	}

	clone := h.clone()
	clone.pre += b.String()
	return clone
}

func (h *cliHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *cliHandler) clone() *cliHandler {
	return &cliHandler{
		writer: h.writer,
		level:  h.level,
		color:  h.color,
		mu:     h.mu,
		pre:    h.pre,
		groups: append([]string(nil), h.groups...),
	}
}

func (h *cliHandler) label(level slog.Level) string {
	text := level.String()
	if !h.color {
		return text
	}

	switch {
	case level >= slog.LevelError:
		return color.Red.Sprint(text)
	case level >= slog.LevelWarn:
		return color.Yellow.Sprint(text)
	case level >= slog.LevelInfo:
		return color.Cyan.Sprint(text)
	default:
		return color.Gray.Sprint(text)
	}
}

func appendAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	value := attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if value.Kind() == slog.KindGroup {
		nested := append(append([]string(nil), groups...), attr.Key)
		for _, a := range value.Group() {
			appendAttr(b, nested, a)
		}

		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(formatValue(value))
}

func formatValue(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		s := value.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}

		return s
	case slog.KindDuration:
		return value.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return value.Time().Format(TimeFormat)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok && err != nil {
			return strconv.Quote(err.Error())
		}

		return fmt.Sprint(value.Any())
	default:
		return value.String()
	}
}
