// Package fileinput feeds the VM one line at a time from a queue of named
// input streams, tracking the location of each line for fault reports.
package fileinput

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Location names a line in an Input stream.
type Location struct {
	Name string
	Line int
}

func (loc Location) String() string { return fmt.Sprintf("%v:%v", loc.Name, loc.Line) }

// Line is one line of input text, without its line terminator.
type Line struct {
	Location
	Text string
}

func (il Line) String() string { return fmt.Sprintf("%v %q", il.Location, il.Text) }

// Input implements sequential line reading through a Queue of one or more
// input streams. Streams that implement io.Closer are closed once drained.
type Input struct {
	Queue []io.Reader
	Last  Line

	br  *bufio.Reader
	cur io.Reader
	loc Location
}

// ReadLine returns the next line from the current stream, advancing through
// the Queue as streams run dry; returns io.EOF once all streams are drained.
func (in *Input) ReadLine() (Line, error) {
	for {
		if in.br == nil && !in.nextIn() {
			return Line{}, io.EOF
		}

		text, err := in.br.ReadString('\n')
		if len(text) > 0 {
			in.loc.Line++
			in.Last = Line{in.loc, strings.TrimRight(text, "\r\n")}
			if err == io.EOF {
				in.closeCur()
			} else if err != nil {
				return in.Last, err
			}
			return in.Last, nil
		}
		if err != io.EOF {
			return Line{}, err
		}
		in.closeCur()
	}
}

func (in *Input) closeCur() {
	if cl, ok := in.cur.(io.Closer); ok {
		cl.Close()
	}
	in.br, in.cur = nil, nil
}

func (in *Input) nextIn() bool {
	if len(in.Queue) == 0 {
		return false
	}
	r := in.Queue[0]
	in.Queue = in.Queue[1:]
	in.cur = r
	in.br = bufio.NewReader(r)
	in.loc = Location{Name: nameOf(r)}
	return true
}

// NamedReader attaches a name to an io.Reader for location reporting.
func NamedReader(name string, r io.Reader) io.Reader {
	return namedReader{r, name}
}

type namedReader struct {
	io.Reader
	name string
}

func (nr namedReader) Name() string { return nr.name }

func (nr namedReader) Close() error {
	if cl, ok := nr.Reader.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func nameOf(obj interface{}) string {
	if nom, ok := obj.(interface{ Name() string }); ok {
		return nom.Name()
	}
	return fmt.Sprintf("<unnamed %T>", obj)
}
