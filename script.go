package forthvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jcorbin/forthvm/internal/fileinput"
)

// Script is a named check script. Scripts are line oriented:
//
//	( data_stack_elems 16 )   settings, only before the first step
//	( any other comment )
//	> 1 2 + .                 input that must succeed...
//	< 3                       ...and the output it must produce, if given
//	x 1 0 /                   input that must fail
//
// Settings are data_stack_elems, return_stack_elems, control_stack_elems,
// dict_buf_elems (dictionary bytes), and step_budget.
type Script struct {
	Name string
	Src  io.Reader
}

// ScriptError describes a script step that did not go as expected.
type ScriptError struct {
	fileinput.Location
	Input  string
	Reason string
	Err    error
}

func (se ScriptError) Error() string {
	if se.Err != nil {
		return fmt.Sprintf("%v: %v: %v", se.Location, se.Reason, se.Err)
	}
	return fmt.Sprintf("%v: %v", se.Location, se.Reason)
}

func (se ScriptError) Unwrap() error { return se.Err }

const defaultScriptDict = 16 * 1024

type scriptStep struct {
	fileinput.Line
	fail   bool
	expect []string
}

type scriptSettings struct {
	dataStack, returnStack, controlStack int
	dictBytes                            int
	stepBudget                           int
}

// CheckScripts runs each script on its own VM, concurrently, returning the
// first failure.
func CheckScripts(ctx context.Context, scripts []Script, opts ...Option) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, script := range scripts {
		script := script
		eg.Go(func() error {
			return RunScript(ctx, script, opts...)
		})
	}
	return eg.Wait()
}

// RunScript runs a script on a fresh VM, sized after the script's settings.
// The given options apply after those settings, but any output option is
// overridden, since output gets captured for comparison.
func RunScript(ctx context.Context, script Script, opts ...Option) error {
	settings, steps, err := parseScript(script)
	if err != nil {
		return err
	}

	var out strings.Builder
	vmOpts := []Option{
		WithDataStack(settings.dataStack),
		WithReturnStack(settings.returnStack),
		WithControlStack(settings.controlStack),
		WithStepBudget(settings.stepBudget),
	}
	vmOpts = append(vmOpts, opts...)
	vmOpts = append(vmOpts, WithOutput(&out))

	// room for block buffers, in case opts include a device
	size := dictBase + settings.dictBytes + 2*BlockSize +
		4*(settings.dataStack+settings.returnStack+2*settings.controlStack)
	vm, err := New(make([]byte, size), vmOpts...)
	if err != nil {
		return fmt.Errorf("%v: %w", script.Name, err)
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Reset()
		err := vm.ProcessLine(step.Text)
		switch {
		case step.fail && err == nil:
			return ScriptError{step.Location, step.Text, "expected failure", nil}
		case step.fail:
			continue
		case err != nil:
			return ScriptError{step.Location, step.Text, "unexpected failure", err}
		}
		if step.expect == nil {
			continue
		}
		if got := outputLines(out.String()); !equalLines(got, step.expect) {
			return ScriptError{step.Location, step.Text,
				fmt.Sprintf("expected output %q, got %q", step.expect, got), nil}
		}
	}
	return nil
}

func outputLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func equalLines(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.TrimRight(got[i], " \t\r") != strings.TrimRight(want[i], " \t\r") {
			return false
		}
	}
	return true
}

func parseScript(script Script) (settings scriptSettings, steps []scriptStep, err error) {
	settings = scriptSettings{
		dataStack:    defaultConfig.dataCap,
		returnStack:  defaultConfig.returnCap,
		controlStack: defaultConfig.controlCap,
		dictBytes:    defaultScriptDict,
	}

	in := fileinput.Input{Queue: []io.Reader{fileinput.NamedReader(script.Name, script.Src)}}
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return settings, steps, nil
		} else if err != nil {
			return settings, steps, err
		}

		tag, rest, _ := strings.Cut(line.Text, " ")
		switch tag {
		case ">", "x":
			steps = append(steps, scriptStep{
				Line: fileinput.Line{Location: line.Location, Text: rest},
				fail: tag == "x",
			})

		case "<":
			if len(steps) == 0 || steps[len(steps)-1].fail {
				return settings, steps, ScriptError{line.Location, line.Text, "output without a succeeding input", nil}
			}
			step := &steps[len(steps)-1]
			step.expect = append(step.expect, rest)

		case "(":
			if len(steps) > 0 {
				continue
			}
			if err := settings.parse(rest); err != nil {
				return settings, steps, ScriptError{line.Location, line.Text, "invalid setting", err}
			}
		}
	}
}

// parse handles a frontmatter line like "data_stack_elems 16 )"; anything
// unrecognized is a comment.
func (settings *scriptSettings) parse(text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	var field *int
	switch fields[0] {
	case "data_stack_elems":
		field = &settings.dataStack
	case "return_stack_elems":
		field = &settings.returnStack
	case "control_stack_elems":
		field = &settings.controlStack
	case "dict_buf_elems":
		field = &settings.dictBytes
	case "step_budget":
		field = &settings.stepBudget
	default:
		return nil
	}
	if len(fields) != 3 || fields[2] != ")" {
		return fmt.Errorf("malformed %v setting", fields[0])
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	*field = n
	return nil
}
