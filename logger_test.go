package minlsh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogSnapshotFields(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Stream snapshots carry the operation with no name.
	logger.LogSnapshot(ctx, "write", "", nil)
	assert.Contains(t, buf.String(), "op=write")
	assert.Contains(t, buf.String(), "snapshot completed")

	// Blob snapshots carry both; the name never stands in for the op.
	buf.Reset()
	logger.LogSnapshot(ctx, "write", "snapshots/index.mlsh", nil)
	assert.Contains(t, buf.String(), "op=write")
	assert.Contains(t, buf.String(), "name=snapshots/index.mlsh")

	buf.Reset()
	logger.LogSnapshot(ctx, "load", "", errors.New("boom"))
	assert.Contains(t, buf.String(), "op=load")
	assert.Contains(t, buf.String(), "snapshot failed")
}
