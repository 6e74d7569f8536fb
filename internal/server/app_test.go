package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.SQLitePath = filepath.Join(dir, "stocks.db")
	c.WorkDir = filepath.Join(dir, "tmp")
	return c
}

func TestNewApp_PreparesStorage(t *testing.T) {
	c := testConfig(t)

	app, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.store.Close() })

	assert.True(t, app.store.Ready())
	assert.Equal(t, 7.0, testutil.ToFloat64(app.metrics.MigrationsApplied))
	assert.DirExists(t, c.WorkDir)
}

func TestNewApp_SecondStartAppliesNothing(t *testing.T) {
	c := testConfig(t)

	first, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, first.store.Close())

	second, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.store.Close() })

	assert.Equal(t, 0.0, testutil.ToFloat64(second.metrics.MigrationsApplied))
	assert.Equal(t, 0.0, testutil.ToFloat64(second.metrics.BackfillRows.WithLabelValues("stocks")))
}

func TestNewApp_MissingReservedCredentials(t *testing.T) {
	c := testConfig(t)
	c.AdminPassword = ""

	_, err := NewApp(context.Background(), c, logging.Nop())
	require.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
