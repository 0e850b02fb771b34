/*
Package forthvm implements an embeddable Forth-family virtual machine that
runs entirely inside a byte region supplied by its host.

Forth is a stack language: words take their operands from a data stack and
leave their results there. Programs extend the language by defining new words
out of old ones; the words built into the machine are indistinguishable from
the words a program defines.

Memory

The host hands New a []byte, and everything a program can observe lives
inside it. Offsets into the region are the machine's addresses; every access
is bounds checked, and cell access must be aligned. Cells are 32 bits wide,
little endian. The region is laid out like:

	0         null cell, terminates the dictionary chain
	4         BASE, the current numeric radix
	8 ...     the dictionary, growing upward
	...       two block buffers, if block storage is configured
	...       the return stack
	...       the control stack
	... end   the data stack

Programs may load and store anywhere from BASE up to the return stack; the
stacks themselves are only reachable through stack words.

Dictionary

Each word has a header: its name (up to 31 bytes, stored just before the
header), a link to the previous word, and flags. Lookup scans from the newest
word to the oldest, so a redefinition shadows earlier ones, while code that
was compiled against an earlier definition keeps using it. Names are case
insensitive, unless WithCaseSensitive is given.

After the header comes the word's body of threaded code: each cell is a
token naming a primitive, calling another word, pushing a literal, branching,
or driving a counted loop. The body of a primitive is its primitive token,
followed by exit; compiling a primitive copies that token inline.

Interpreting and Compiling

ProcessLine splits its line into whitespace separated tokens. While
interpreting, each word is executed, and each number is pushed. The word ":"
reads a name and switches to compiling, after which words get compiled into
the new definition instead, unless they are immediate; ";" finishes the
definition. Control words like "if" and "do" are immediate, and use the
control stack to patch forward branches once their structure closes.

Faults

Nothing a program does can crash its host: stack overflow, bad addresses,
division by zero, runaway loops (under WithStepBudget), and even panicking
host primitives all surface as a *Fault returned by ProcessLine. The VM is
then back to interpreting, with any open definition discarded, ready for the
next line.
*/
package forthvm
