package logio_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/jcorbin/forthvm/internal/logio"
	"github.com/stretchr/testify/assert"
)

func Test_Logger(t *testing.T) {
	var out strings.Builder
	log := logio.NewLogger(&out)

	log.Printf("", "plain")
	log.Leveledf("TRACE")("step %v", 1)
	assert.Equal(t, 0, log.ExitCode(), "expected no error exit code yet")

	log.ErrorIf(nil)
	log.ErrorIf(errors.New("stack underflow"))
	assert.Equal(t, 1, log.ExitCode(), "expected error exit code")

	assert.Equal(t, strings.Join([]string{
		"plain",
		"TRACE: step 1",
		"ERROR: stack underflow",
	}, "\n")+"\n", out.String())
}

func Test_Writer(t *testing.T) {
	var lines []string
	lw := &logio.Writer{Logf: func(mess string, args ...interface{}) {
		lines = append(lines, args[0].(string))
	}}

	lw.Write([]byte("1 2 + . "))
	assert.Empty(t, lines, "expected partial line to stay buffered")

	lw.Write([]byte("\nok\npartial"))
	assert.Equal(t, []string{"1 2 + . ", "ok"}, lines)

	assert.NoError(t, lw.Close())
	assert.Equal(t, []string{"1 2 + . ", "ok", "partial"}, lines)
}
