package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := setupLogger(&buf, "")
	defer closeFn()

	logger.Info("index already exists", "table", "Person", "field", "GovId")

	out := buf.String()
	assert.Contains(t, out, `msg="index already exists"`)
	assert.Contains(t, out, "table=Person")
	assert.Contains(t, out, "app=ledger-setup")
}

func TestMultiHandler_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("run_id", "r1").WithGroup("req")

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	logger.Info("creating", "table", "Vehicle")
	logger.Error("failed", "table", "Vehicle")

	assert.Contains(t, a.String(), "req.table=Vehicle")
	assert.Contains(t, a.String(), "run_id=r1")
	assert.Contains(t, a.String(), "msg=creating")
	assert.NotContains(t, b.String(), "msg=creating")
	assert.Contains(t, b.String(), "msg=failed")
}
