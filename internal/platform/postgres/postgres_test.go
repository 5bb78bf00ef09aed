package postgres

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_EmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "  ", 0)
	require.ErrorIs(t, err, ErrEmptyDSN)
}

func TestConnectOrFallback_EmptyDSN(t *testing.T) {
	db, cleanup := ConnectOrFallback(context.Background(), "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Nil(t, db)
	require.NotNil(t, cleanup)
	cleanup()
}
