package wsconn

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWriterLogger(&buf)
	child := logger.WithField("conn", "abc").WithField("addr", "ws://x")

	logger.Info("plain")
	child.Warnf("retry %d", 3)
	child.Errorln("failed", "twice")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "INFO: plain")
	assert.Contains(t, lines[1], "WARN [addr=ws://x, conn=abc]: retry 3")
	assert.True(t, strings.HasSuffix(lines[2], "ERROR [addr=ws://x, conn=abc]: failed twice"))
}

func TestWriterLogger_ChildDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWriterLogger(&buf)
	_ = logger.WithField("conn", "abc")

	logger.Debug("parent")

	assert.NotContains(t, buf.String(), "conn=abc")
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewZerologLogger(zerolog.New(&buf)).WithField("conn", "abc")

	logger.Infoln("hello", "world")
	logger.Debugf("n=%d", 1)

	out := buf.String()
	assert.Contains(t, out, `"message":"hello world"`)
	assert.Contains(t, out, `"message":"n=1"`)
	assert.Contains(t, out, `"conn":"abc"`)
	assert.NotContains(t, out, `world\n`)
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		l := NopLogger().WithField("k", "v")
		l.Error("nothing")
		l.Warnln("nothing")
	})
}
