package forthvm

import "fmt"

// token is one compiled cell of threaded code: a kind in the low byte, and a
// kind specific argument in the upper 24 bits. Some kinds are followed by an
// inline operand cell.
type token uint32

type tokenKind uint8

const (
	tokExit     tokenKind = iota // return from the current word
	tokPrim                      // run primitive #arg
	tokCall                      // call the word whose body starts at arg
	tokLit                       // push operand
	tokBranch                    // jump to operand
	tokBranch0                   // pop, jump to operand when zero
	tokDo                        // pop start and limit, push a loop frame leaving to operand
	tokLoop                      // step the loop index by one, jumping back to operand
	tokPlusLoop                  // pop a step for the loop index, jumping back to operand
	tokKinds
)

const maxTokenArg = 1<<24 - 1

var tokenKindNames = [tokKinds]string{
	"exit",
	"prim",
	"call",
	"lit",
	"branch",
	"0branch",
	"(do)",
	"(loop)",
	"(+loop)",
}

func (kind tokenKind) String() string {
	if kind < tokKinds {
		return tokenKindNames[kind]
	}
	return fmt.Sprintf("tokenKind(%d)", uint8(kind))
}

func (kind tokenKind) hasOperand() bool {
	switch kind {
	case tokLit, tokBranch, tokBranch0, tokDo, tokLoop, tokPlusLoop:
		return true
	}
	return false
}

func makeToken(kind tokenKind, arg uint32) token { return token(kind) | token(arg<<8) }

func (t token) kind() tokenKind { return tokenKind(t & 0xff) }
func (t token) arg() uint32     { return uint32(t) >> 8 }
