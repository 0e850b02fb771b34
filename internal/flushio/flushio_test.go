package flushio_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jcorbin/forthvm/internal/flushio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainWriter struct{ buf bytes.Buffer }

func (pw *plainWriter) Write(p []byte) (int, error) { return pw.buf.Write(p) }

func Test_NewWriteFlusher(t *testing.T) {
	assert.Equal(t, flushio.Discard, flushio.NewWriteFlusher(nil), "nil discards")
	assert.Equal(t, flushio.Discard, flushio.NewWriteFlusher(io.Discard), "io.Discard discards")

	var sb strings.Builder
	wf := flushio.NewWriteFlusher(&sb)
	io.WriteString(wf, "ok")
	assert.Equal(t, "ok", sb.String(), "expected buffers to be written through")

	var pw plainWriter
	wf = flushio.NewWriteFlusher(&pw)
	io.WriteString(wf, "25 ")
	assert.Equal(t, "", pw.buf.String(), "expected output to be buffered")
	require.NoError(t, wf.Flush())
	assert.Equal(t, "25 ", pw.buf.String(), "expected output after flush")
	assert.Equal(t, wf, flushio.NewWriteFlusher(wf), "expected flushers to be reused")
}

func Test_WriteFlushers(t *testing.T) {
	assert.Equal(t, flushio.Discard, flushio.WriteFlushers(nil, flushio.Discard))

	var a, b strings.Builder
	one := flushio.NewWriteFlusher(&a)
	assert.Equal(t, one, flushio.WriteFlushers(flushio.Discard, one), "expected a single flusher")

	both := flushio.WriteFlushers(one, flushio.NewWriteFlusher(&b))
	io.WriteString(both, "hello")
	require.NoError(t, both.Flush())
	assert.Equal(t, "hello", a.String())
	assert.Equal(t, "hello", b.String())
}
