package deferq_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttn-nguyen42/deferq"
)

func TestDefaultOptions(t *testing.T) {
	o := deferq.DefaultOptions(nil)
	assert.Equal(t, ":8080", o.Addr)
	assert.Equal(t, "deferq/state.db", o.StatePath)
	assert.Equal(t, slog.LevelInfo, o.LogLevel)
	assert.Equal(t, deferq.DefaultJournalRetention, o.JournalRetention)

	o = deferq.DefaultOptions(&deferq.Options{
		Addr:          ":9090",
		DisableServer: true,
		LogLevel:      slog.LevelDebug,
	})
	assert.Equal(t, ":9090", o.Addr)
	assert.Equal(t, "deferq/state.db", o.StatePath)
	assert.True(t, o.DisableServer)
	assert.Equal(t, slog.LevelDebug, o.LogLevel)
}

func TestLoadOptions(t *testing.T) {
	t.Setenv("DEFERQ_ADDR", ":7070")
	t.Setenv("DEFERQ_DISABLE_SERVER", "true")
	t.Setenv("DEFERQ_STATE_PATH", "/tmp/deferq-test/state.db")
	t.Setenv("DEFERQ_DISABLE_JOURNAL", "true")
	t.Setenv("DEFERQ_LOG_LEVEL", "DEBUG")
	t.Setenv("DEFERQ_JOURNAL_RETENTION", "-1s")

	o, err := deferq.LoadOptions()
	require.NoError(t, err)

	assert.Equal(t, ":7070", o.Addr)
	assert.True(t, o.DisableServer)
	assert.Equal(t, "/tmp/deferq-test/state.db", o.StatePath)
	assert.True(t, o.DisableJournal)
	assert.Equal(t, slog.LevelDebug, o.LogLevel)
	assert.Equal(t, -time.Second, o.JournalRetention)
}

func TestLoadOptionsInvalid(t *testing.T) {
	t.Setenv("DEFERQ_LOG_LEVEL", "LOUD")

	_, err := deferq.LoadOptions()
	assert.Error(t, err)
}
