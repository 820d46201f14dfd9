package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	prev := Log
	t.Cleanup(func() { Log = prev })

	Log = New(&buf)
	Component("merger").Info().Msg("joined")

	out := buf.String()
	assert.Contains(t, out, "joined")
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "merger")
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	prev := Log
	prevGlobal := zerolog.GlobalLevel()
	t.Cleanup(func() {
		Log = prev
		zerolog.SetGlobalLevel(prevGlobal)
	})

	Log = New(&bytes.Buffer{})
	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
