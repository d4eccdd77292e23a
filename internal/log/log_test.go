package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestFieldsFromKVs(t *testing.T) {
	f := fieldsFromKVs("date", "2025-03-10", 42, "skipped", "count", 3, "dangling")
	assert.Equal(t, "2025-03-10", f["date"])
	assert.Equal(t, 3, f["count"])
	assert.Len(t, f, 2)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		SetOutput(os.Stderr)
	})

	Info("merge done", "days", 35)
	assert.Empty(t, buf.String())

	Error("sun times unavailable", errors.New("boom"), "date", "2025-03-10")
	out := buf.String()
	assert.Contains(t, out, "sun times unavailable")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "date=2025-03-10")
}
