package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLogger_FieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(BackendLogrus, "debug", &buf)

	log.With("module", "karma").Debug(context.Background(), "karma recomputed", "user_id", "u-1", "karma", 3.5)

	out := buf.String()
	assert.Contains(t, out, "level=debug")
	assert.Contains(t, out, `msg="karma recomputed"`)
	assert.Contains(t, out, "module=karma")
	assert.Contains(t, out, "user_id=u-1")
	assert.Contains(t, out, "karma=3.5")
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(BackendLogrus, "error", &buf)

	log.Warn(context.Background(), "quiet")
	assert.Empty(t, buf.String())

	log.Error(context.Background(), "loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestToFields_OddArgs(t *testing.T) {
	f := toFields([]any{"a", 1, "dangling"})
	require.Len(t, f, 2)
	assert.Equal(t, 1, f["a"])
	assert.Equal(t, "dangling", f["!BADKEY"])
}

func TestNewLogrusLogger_WrapsEntry(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewLogrusLogger(logrus.NewEntry(l)).Info(context.Background(), "hello", "k", "v")
	assert.Contains(t, buf.String(), `"k":"v"`)
}
