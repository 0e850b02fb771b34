package forthvm

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/forthvm/internal/logio"
)

type vmTestCases []vmTestCase

func (vmts vmTestCases) run(t *testing.T) {
	{
		var exclusive []vmTestCase
		for _, vmt := range vmts {
			if vmt.exclusive {
				exclusive = append(exclusive, vmt)
			}
		}
		if len(exclusive) > 0 {
			vmts = exclusive
		}
	}
	for _, vmt := range vmts {
		if !t.Run(vmt.name, vmt.run) {
			return
		}
	}
}

func vmTest(name string) (vmt vmTestCase) {
	vmt.name = name
	return vmt
}

type vmTestCase struct {
	name    string
	memSize int
	opts    []interface{}
	steps   []vmTestStep

	exclusive bool
}

// vmTestStep is either a line of input, which must fail with wantErr if
// set, or an expectation checked against the VM state at that point.
type vmTestStep struct {
	line    string
	wantErr error
	expect  func(t *testing.T, vm *VM)
}

func (vmt vmTestCase) then(expect func(t *testing.T, vm *VM)) vmTestCase {
	vmt.steps = append(vmt.steps, vmTestStep{expect: expect})
	return vmt
}

func (vmt vmTestCase) apply(wraps ...func(vmTestCase) vmTestCase) vmTestCase {
	for _, wrap := range wraps {
		vmt = wrap(vmt)
	}
	return vmt
}

func (vmt vmTestCase) exclusiveTest() vmTestCase {
	vmt.exclusive = true
	return vmt
}

func (vmt vmTestCase) withOptions(opts ...Option) vmTestCase {
	for _, opt := range opts {
		vmt.opts = append(vmt.opts, opt)
	}
	return vmt
}

func (vmt vmTestCase) withMemSize(size int) vmTestCase {
	vmt.memSize = size
	return vmt
}

func (vmt vmTestCase) withInput(lines ...string) vmTestCase {
	for _, line := range lines {
		vmt.steps = append(vmt.steps, vmTestStep{line: line})
	}
	return vmt
}

func (vmt vmTestCase) withFault(line string, err error) vmTestCase {
	vmt.steps = append(vmt.steps, vmTestStep{line: line, wantErr: err})
	return vmt
}

func (vmt vmTestCase) withTestOutput() vmTestCase {
	vmt.opts = append(vmt.opts, func(t *testing.T) Option {
		return WithTee(&logio.Writer{Logf: func(mess string, args ...interface{}) {
			t.Logf("out: "+mess, args...)
		}})
	})
	return vmt
}

func (vmt vmTestCase) expectStack(values ...Cell) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		if values == nil {
			values = []Cell{}
		}
		assert.Equal(t, values, vm.Stack(), "expected stack values")
	})
}

func (vmt vmTestCase) expectRStack(values ...Cell) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		if values == nil {
			values = []Cell{}
		}
		assert.Equal(t, values, vm.rs.cells(), "expected return stack values")
	})
}

func (vmt vmTestCase) expectCompiling(compiling bool) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		assert.Equal(t, compiling, vm.Compiling(), "expected compiling state")
	})
}

func (vmt vmTestCase) expectOutput(output string) vmTestCase {
	var out strings.Builder
	vmt.opts = append(vmt.opts, WithOutput(&out))
	return vmt.then(func(t *testing.T, vm *VM) {
		assert.Equal(t, output, out.String(), "expected output")
	})
}

func (vmt vmTestCase) expectMemAt(addr Cell, values ...Cell) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		for i, value := range values {
			a := addr + Cell(i)*4
			got, err := vm.Load(a)
			if assert.NoError(t, err, "unexpected load error @%v", a) {
				assert.Equal(t, value, got, "expected memory value @%v", a)
			}
		}
	})
}

func (vmt vmTestCase) expectWords(names ...string) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		words := vm.Words()
		if assert.GreaterOrEqual(t, len(words), len(names), "expected at least %v words", len(names)) {
			assert.Equal(t, names, words[:len(names)], "expected newest words")
		}
	})
}

func (vmt vmTestCase) expectSee(name string, listing string) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		h, found := vm.lookup(name)
		if assert.True(t, found, "expected word %q to be defined", name) {
			var out strings.Builder
			require.NoError(t, vmDumper{vm: vm, out: &out}.see(h))
			assert.Equal(t, listing, strings.TrimSuffix(out.String(), "\n"), "expected %q listing", name)
		}
	})
}

// expectHere checks how far the dictionary grew past a fresh VM built with
// the same options.
func (vmt vmTestCase) expectHere(delta int) vmTestCase {
	return vmt.then(func(t *testing.T, vm *VM) {
		fresh, err := New(make([]byte, vm.mem.Len()), vmt.options(t)...)
		require.NoError(t, err, "must build a fresh vm to compare with")
		assert.Equal(t, delta, int(vm.here)-int(fresh.here), "expected dictionary growth")
	})
}

func (vmt vmTestCase) run(t *testing.T) {
	defer func(then time.Time) {
		label := "PASS"
		if t.Failed() {
			label = "FAIL"
		}
		t.Logf("%v\t%v\t%v", label, t.Name(), time.Since(then))
	}(time.Now())

	var trace traceLog
	vm := vmt.buildVM(t, &trace)
	defer func() {
		if t.Failed() {
			trace.replay(t)
			vmt.dumpToTest(t, vm)
		}
	}()
	vmt.runVMTest(t, vm)
}

func (vmt vmTestCase) runVMTest(t *testing.T, vm *VM) {
	lineNo := 0
	for _, step := range vmt.steps {
		if step.expect != nil {
			step.expect(t, vm)
			continue
		}
		lineNo++
		err := vm.ProcessLine(step.line)
		if step.wantErr == nil {
			require.NoError(t, err, "unexpected fault on line #%v %q", lineNo, step.line)
			continue
		}
		var fault *Fault
		require.True(t, errors.As(err, &fault), "expected a fault on line #%v %q, got: %v", lineNo, step.line, err)
		require.ErrorIs(t, err, step.wantErr, "expected fault on line #%v %q", lineNo, step.line)
		assert.Equal(t, step.line, fault.Line, "expected fault line")
	}
}

func (vmt vmTestCase) options(t *testing.T) []Option {
	var opts []Option
	for _, o := range vmt.opts {
		switch impl := o.(type) {
		case func(t *testing.T) Option:
			opts = append(opts, impl(t))
		case Option:
			opts = append(opts, impl)
		default:
			t.Logf("unsupported vmTestCase opt type %T", o)
			t.FailNow()
		}
	}
	return opts
}

func (vmt vmTestCase) buildVM(t *testing.T, trace *traceLog) *VM {
	const defaultMemSize = 16 * 1024
	size := vmt.memSize
	if size == 0 {
		size = defaultMemSize
	}
	opts := append(vmt.options(t), WithLogf(trace.logf))
	vm, err := New(make([]byte, size), opts...)
	require.NoError(t, err, "must create vm")
	return vm
}

func (vmt vmTestCase) dumpToTest(t *testing.T, vm *VM) {
	lw := logio.Writer{Logf: t.Logf}
	defer lw.Close()
	vmDumper{vm: vm, out: &lw}.dump()
}

//// utilities

// traceLog retains the last few hundred trace lines, to be replayed into
// the test log on failure.
type traceLog struct {
	lines []string
	drop  int
}

const traceLogLimit = 512

func (tl *traceLog) logf(mess string, args ...interface{}) {
	if len(tl.lines) >= traceLogLimit {
		n := copy(tl.lines, tl.lines[len(tl.lines)/2:])
		tl.drop += len(tl.lines) - n
		tl.lines = tl.lines[:n]
	}
	tl.lines = append(tl.lines, fmt.Sprintf(mess, args...))
}

func (tl *traceLog) replay(t *testing.T) {
	if tl.drop > 0 {
		t.Logf("... %v trace lines dropped", tl.drop)
	}
	for _, line := range tl.lines {
		t.Log(line)
	}
}

func lines(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}
