package forthvm

import "testing"

func Test_VM_interpret(t *testing.T) {
	vmTestCases{
		// literals
		vmTest("empty line").withInput("", "   ", "\t").expectStack(),
		vmTest("push literals").withInput("1 2 3").expectStack(1, 2, 3),
		vmTest("literals across lines").withInput("1", "2", "3").expectStack(1, 2, 3),
		vmTest("negative literal").withInput("-5 -0").expectStack(-5, 0),
		vmTest("unsigned wrap").withInput("4294967295 2147483648").expectStack(-1, -2147483648),
		vmTest("too big").withInput("1").withFault("4294967296", ErrUnknownWord).expectStack(1),
		vmTest("char literals").withInput("'A' '\\n' <ESC> ^[ <sp>").expectStack(65, 10, 27, 27, 32),
		vmTest("char word").withInput("char A char bcd").expectStack(65, 98),

		// stack words
		vmTest("lifo").withInput("1 2 3 . . .").expectOutput("3 2 1 ").expectStack(),
		vmTest("dup").withInput("1 dup").expectStack(1, 1),
		vmTest("drop").withInput("1 2 drop").expectStack(1),
		vmTest("swap").withInput("1 2 swap").expectStack(2, 1),
		vmTest("over").withInput("1 2 over").expectStack(1, 2, 1),
		vmTest("rot").withInput("1 2 3 rot").expectStack(2, 3, 1),
		vmTest("-rot").withInput("1 2 3 -rot").expectStack(3, 1, 2),
		vmTest("nip").withInput("1 2 nip").expectStack(2),
		vmTest("tuck").withInput("1 2 tuck").expectStack(2, 1, 2),
		vmTest("?dup").withInput("0 ?dup 5 ?dup").expectStack(0, 5, 5),
		vmTest("pick").withInput("10 20 30 2 pick 0 pick").expectStack(10, 20, 30, 10, 10),
		vmTest("depth").withInput("depth 7 depth").expectStack(0, 7, 2),
		vmTest("2dup").withInput("1 2 2dup").expectStack(1, 2, 1, 2),
		vmTest("2drop").withInput("1 2 3 2drop").expectStack(1),
		vmTest("2swap").withInput("1 2 3 4 2swap").expectStack(3, 4, 1, 2),
		vmTest("2over").withInput("1 2 3 4 2over").expectStack(1, 2, 3, 4, 1, 2),

		// arithmetic
		vmTest("add").withInput("2 3 +").expectStack(5),
		vmTest("sub").withInput("10 3 -").expectStack(7),
		vmTest("mul").withInput("2 3 + 4 *").expectStack(20),
		vmTest("div").withInput("7 2 / -7 2 /").expectStack(3, -3),
		vmTest("mod").withInput("7 2 mod -7 2 mod").expectStack(1, -1),
		vmTest("/mod").withInput("7 2 /mod").expectStack(1, 3),
		vmTest("overflow wraps").withInput("2147483647 1 +").expectStack(-2147483648),
		vmTest("negate abs").withInput("4 negate -7 abs").expectStack(-4, 7),
		vmTest("min max").withInput("3 -5 min 3 -5 max").expectStack(-5, 3),
		vmTest("inc dec").withInput("5 1+ 5 1-").expectStack(6, 4),
		vmTest("shift by one").withInput("5 2* -5 2/").expectStack(10, -3),

		// comparison
		vmTest("compare").withInput("1 2 < 2 1 < 3 3 = 3 4 <> 2 1 >").expectStack(-1, 0, -1, -1, -1),
		vmTest("unsigned compare").withInput("-1 1 u< 1 -1 u<").expectStack(0, -1),
		vmTest("zero compare").withInput("0 0= 5 0= -3 0< 3 0>").expectStack(-1, 0, -1, -1),
		vmTest("true false").withInput("true false").expectStack(-1, 0),

		// bits
		vmTest("logic").withInput("12 10 and 12 10 or 12 10 xor 0 invert").expectStack(8, 14, 6, -1),
		vmTest("shifts").withInput("1 4 lshift -1 28 rshift").expectStack(16, 15),

		// output
		vmTest("dot").withInput("42 . -7 .").expectOutput("42 -7 "),
		vmTest("u.").withInput("-1 u.").expectOutput("4294967295 "),
		vmTest("emit").withInput("65 emit 66 emit").expectOutput("AB"),
		vmTest(".s").withInput("1 2 3 .s").expectOutput("<3> 1 2 3 ").expectStack(1, 2, 3),
		vmTest("cr space").withInput("1 . cr space 2 .").expectOutput("1 \n 2 "),
		vmTest("spaces").withInput("3 spaces -2 spaces").expectOutput("   "),
		vmTest("dot quote").withInput(`." hello world" 1 .`).expectOutput("hello world1 "),
		vmTest("type string").withInput(`s" xyz" type`).expectOutput("xyz"),
		vmTest("type unaligned cell width").withInput(`s" abcdef" drop 1+ 4 type`).expectOutput("bcde"),
		vmTest("string length").withInput(`s" xyz" swap drop`).expectStack(3),

		// number base
		vmTest("hex").withInput("hex ff 10 decimal 10").expectStack(255, 16, 10),
		vmTest("hex digits").withInput("hex 255 decimal").expectStack(597),
		vmTest("hex dot").withInput("255 hex . decimal").expectOutput("FF "),
		vmTest("base store").withInput("2 base ! 101 decimal").expectStack(5),
		vmTest("base fetch").withInput("hex base @ decimal").expectStack(16),
		vmTest("radix option").withOptions(WithRadix(16)).withInput("ff 10").expectStack(255, 16),
		vmTest("invalid base").withInput("7 1 base !").
			withFault("5", ErrInvalidRadix).
			withInput("decimal 9").
			expectStack(7, 9),

		// comments
		vmTest("comments").withInput(`1 ( two ) 3 \ 4 5`).expectStack(1, 3),
		vmTest("unclosed comment").withInput("1 ( 2 3", "4").expectStack(1, 4),

		// names
		vmTest("case folding").withInput("1 DUP Dup", ": Foo 7 ;", "FOO foo").expectStack(1, 1, 1, 7, 7),
		vmTest("case sensitive").withOptions(WithCaseSensitive(true)).
			withInput("1").
			withFault("DUP", ErrUnknownWord).
			withInput(": Foo 7 ;", "Foo").
			withFault("foo", ErrUnknownWord).
			expectStack(1, 7),
		vmTest("long names").withInput(
			": abcdefghijklmnopqrstuvwxyz0123456789 42 ;",
			"abcdefghijklmnopqrstuvwxyz01234",
			"abcdefghijklmnopqrstuvwxyz0123456789xyz",
		).expectStack(42, 42).expectWords("abcdefghijklmnopqrstuvwxyz01234"),

		// unknown words leave everything as it was
		vmTest("unknown word").withInput("1 2").
			withFault("frob", ErrUnknownWord).
			expectStack(1, 2).
			expectHere(0),
		vmTest("unknown mid line").withInput(": a 1 ;").
			withFault("a a frob a", ErrUnknownWord).
			expectStack(1, 1).
			expectWords("a"),

		// introspection
		vmTest("words").withInput(": a ; : b ;").expectWords("b", "a"),
		vmTest("words output").withOptions(WithBuiltins(Primitive{"words", 0, (*VM).words})).
			withInput(": a ; : b ;", "words").
			expectOutput("b a words here c, , allot create variable constant [char] char s\" .\" \\ ( " +
				"unloop leave j i +loop loop do repeat while again until begin then else if " +
				"exit literal recurse immediate ; :\n"),
		vmTest("see").withInput(": sq dup * ;", "see sq").expectOutput(": sq dup * ;\n"),
		vmTest("see builtin").withInput("see dup").expectOutput("builtin dup\n"),
		vmTest("see unknown").withFault("see frob", ErrUnknownWord),

		// execution tokens
		vmTest("execute").withInput(": sq dup * ;", "3 ' sq execute").expectStack(9),
		vmTest("execute builtin").withInput("2 ' dup execute").expectStack(2, 2),
		vmTest("execute compiled").withInput(": sq dup * ;", "' sq", ": apply execute ;", "4 swap apply").expectStack(16),
		vmTest("execute non word").withInput("1 2").withFault("13 execute", ErrInvalidAddress).expectStack(),
		vmTest("tick unknown").withFault("' frob", ErrUnknownWord),
	}.run(t)
}
