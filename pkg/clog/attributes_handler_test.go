package clog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesHandler_AddsContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false))))

	ctx := ContextWithSlog(context.Background())
	AddAttributes(ctx, map[string]any{
		"server_id": "srv",
		"actor_id":  "u1",
	})
	AddError(ctx, errors.New("boom"))

	logger.InfoContext(ctx, "command finished", "command", "new")

	out := buf.String()
	assert.Contains(t, out, `"command finished"`)
	assert.Contains(t, out, `"boom"`)
	assert.Contains(t, out, "server_id=srv")
	assert.Contains(t, out, "actor_id=u1")
	assert.Contains(t, out, "command=new")
}

func TestAttributesHandler_UnarmedContextPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewAttributesHandler(NewTextHandler(&buf, WithColor(false))))

	logger.Info("plain record")
	assert.Contains(t, buf.String(), `"plain record"`)
}

func TestContextAttributes(t *testing.T) {
	ctx := ContextWithSlog(context.Background())
	AddAttribute(ctx, "task_name", "report")
	assert.Equal(t, "report", GetAttribute[string](ctx, "task_name"))

	err := errors.New("boom")
	AddError(ctx, err)
	require.ErrorIs(t, GetError(ctx), err)

	// an unarmed context is a no-op on both ends
	bare := context.Background()
	AddAttribute(bare, "k", "v")
	assert.Nil(t, GetAttributes(bare))
}

func TestTextHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewTextHandler(&buf, WithColor(false), WithLevel(slog.LevelWarn)))

	logger.Info("suppressed")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "suppressed")
	assert.Contains(t, buf.String(), "kept")
}
