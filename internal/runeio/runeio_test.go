package runeio_test

import (
	"bytes"
	"testing"

	"github.com/jcorbin/forthvm/internal/runeio"
	"github.com/stretchr/testify/assert"
)

func Test_UnquoteRune(t *testing.T) {
	for _, tc := range []struct {
		token string
		r     rune
		ok    bool
	}{
		{`'A'`, 'A', true},
		{`' '`, ' ', true},
		{`'\n'`, '\n', true},
		{`'\x1b'`, 0x1b, true},
		{`'λ'`, 'λ', true},
		{`<ESC>`, 0x1b, true},
		{`<esc>`, 0x1b, true},
		{`<NL>`, '\n', true},
		{`<SP>`, ' ', true},
		{`^[`, 0x1b, true},
		{`^@`, 0, true},
		{`^?`, 0x7f, true},

		{`A`, 0, false},
		{`''`, 0, false},
		{`'AB'`, 0, false},
		{`'A`, 0, false},
		{`<NOPE>`, 0, false},
		{`42`, 0, false},
	} {
		t.Run(tc.token, func(t *testing.T) {
			r, err := runeio.UnquoteRune(tc.token)
			if tc.ok {
				assert.NoError(t, err)
				assert.Equal(t, tc.r, r)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func Test_WriteANSIRune(t *testing.T) {
	for _, tc := range []struct {
		name string
		r    rune
		out  string
	}{
		{"ascii", 'a', "a"},
		{"newline", '\n', "\n"},
		{"NEL", 0x85, "\r\n"},
		{"CSI", 0x9b, "\x1b["},
		{"utf8", 'λ', "λ"},
		{"negative", -1, "�"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := runeio.WriteANSIRune(&buf, tc.r)
			assert.NoError(t, err)
			assert.Equal(t, tc.out, buf.String())
		})
	}
}
