package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// multiHandler forwards log records to every handler that accepts them
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// SetupLogger builds the process logger: text to stdout, plus Seq when
// seqURL is set. The returned func flushes Seq and must run before exit.
func SetupLogger(seqURL string) (*slog.Logger, func()) {
	return setupLogger(os.Stdout, seqURL)
}

func setupLogger(w io.Writer, seqURL string) (*slog.Logger, func()) {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}
	consoleHandler := slog.NewTextHandler(w, opts)

	if seqURL == "" {
		return slog.New(consoleHandler).With(slog.String("app", "ledger-setup")), func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(10),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(opts),
	)
	// If Seq is not available, use console only
	if seqHandler == nil {
		return slog.New(consoleHandler).With(slog.String("app", "ledger-setup")), func() {}
	}

	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{consoleHandler, seqHandler},
	}).With(slog.String("app", "ledger-setup"))

	return logger, func() { seqHandler.Close() }
}

func levelFromEnv() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LEDGER_LOG_LEVEL"))); err != nil {
		return slog.LevelInfo
	}
	return level
}
