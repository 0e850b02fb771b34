// Package runeio implements character literal parsing and terminal friendly
// rune output for the VM's outer interpreter and its emit word.
package runeio

import (
	"errors"
	"strconv"
	"strings"
)

// ControlRune represents a named control unicode codepoint.
type ControlRune struct {
	N string
	R rune
}

// C0Ctls contains the classic ASCII control characters.
var C0Ctls = [32]ControlRune{
	{"<NUL>", 0x00}, {"<SOH>", 0x01}, {"<STX>", 0x02}, {"<ETX>", 0x03},
	{"<EOT>", 0x04}, {"<ENQ>", 0x05}, {"<ACK>", 0x06}, {"<BEL>", 0x07},
	{"<BS>", 0x08}, {"<HT>", 0x09}, {"<NL>", 0x0A}, {"<VT>", 0x0B},
	{"<NP>", 0x0C}, {"<CR>", 0x0D}, {"<SO>", 0x0E}, {"<SI>", 0x0F},
	{"<DLE>", 0x10}, {"<DC1>", 0x11}, {"<DC2>", 0x12}, {"<DC3>", 0x13},
	{"<DC4>", 0x14}, {"<NAK>", 0x15}, {"<SYN>", 0x16}, {"<ETB>", 0x17},
	{"<CAN>", 0x18}, {"<EM>", 0x19}, {"<SUB>", 0x1A}, {"<ESC>", 0x1B},
	{"<FS>", 0x1C}, {"<GS>", 0x1D}, {"<RS>", 0x1E}, {"<US>", 0x1F},
}

// PseudoCtls provides the typical mnemonics for space and delete.
var PseudoCtls = [2]ControlRune{
	{"<SP>", 0x20},
	{"<DEL>", 0x7F},
}

// ControlWords maps control mnemonic strings to runes, in upper and lower
// case, along with caret forms like ^@ for <NUL> and ^[ for <ESC>.
var ControlWords map[string]rune

func init() {
	ControlWords = make(map[string]rune, 3*(len(C0Ctls)+len(PseudoCtls)))
	for _, ctls := range [][]ControlRune{C0Ctls[:], PseudoCtls[:]} {
		for _, ctl := range ctls {
			ControlWords[strings.ToUpper(ctl.N)] = ctl.R
			ControlWords[strings.ToLower(ctl.N)] = ctl.R
			if caret := CaretForm(ctl.R); caret != "" {
				ControlWords[caret] = ctl.R
			}
		}
	}
}

// CaretForm computes the ^-escaped printable form of a C0 control rune.
func CaretForm(r rune) string {
	if r < 0x20 || r == 0x7f {
		return "^" + string(r^0x40)
	}
	return ""
}

// ErrNotRune is returned by UnquoteRune for tokens that are not rune literals.
var ErrNotRune = errors.New(`rune literal must be "^X" "<NAME>" or 'X'`)

// UnquoteRune parses a character literal token: a control mnemonic like
// <ESC>, a caret form like ^[, or a single quoted character using Go escape
// syntax like 'A' or '\n'.
func UnquoteRune(token string) (rune, error) {
	if r, defined := ControlWords[token]; defined {
		return r, nil
	}

	runes := []rune(token)
	if len(runes) < 3 || runes[0] != '\'' || runes[len(runes)-1] != '\'' {
		return 0, ErrNotRune
	}

	value, _, tail, err := strconv.UnquoteChar(token[1:], '\'')
	if err != nil {
		return 0, err
	}
	if tail != "'" {
		return 0, ErrNotRune
	}
	return value, nil
}
