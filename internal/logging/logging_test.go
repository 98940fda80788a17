package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevelsAndRecent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	l := New("test")
	l.Info("hello", "k", 1)
	l.Debug("dbg", "a", 2)
	l.Error("oops")

	items := Recent(3)
	require.Len(t, items, 3)
	assert.Equal(t, "oops", items[0].Msg)
	assert.Equal(t, "dbg", items[1].Msg)
	assert.Equal(t, "hello", items[2].Msg)
	assert.EqualValues(t, 1, items[2].Fields["k"])
	assert.Equal(t, "test", items[2].Fields["env"])
}

func TestSetLevelFiltersRecent(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	l := New("test")
	l.Info("filtered-out")
	l.Error("kept")
	assert.Equal(t, "error", GetLevel())
	assert.Equal(t, "kept", Recent(1)[0].Msg)

	SetLevel("bogus")
	assert.Equal(t, "info", GetLevel())
}

func TestWithAddsFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	l := New("test").With("component", "configstore")
	l.Info("loaded")
	e := Recent(1)[0]
	assert.Equal(t, "loaded", e.Msg)
	assert.Equal(t, "configstore", e.Fields["component"])
}
