// Command forthvm runs Forth source through a forthvm.VM: each argument is
// a source file fed line by line, followed by standard input, which is read
// interactively when it is a terminal.
//
// With -check, arguments are instead check scripts, as understood by
// forthvm.CheckScripts, each run on its own fresh VM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/chzyer/readline"

	"github.com/jcorbin/forthvm"
	"github.com/jcorbin/forthvm/internal/fileinput"
	"github.com/jcorbin/forthvm/internal/logio"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		memSize       int
		dataStack     int
		returnStack   int
		controlStack  int
		radix         int
		caseSensitive bool
		steps         int
		trace         bool
		blockDir      string
		check         bool
	)
	flag.IntVar(&memSize, "mem", 64*1024, "memory region size in bytes")
	flag.IntVar(&dataStack, "data-stack", 64, "data stack capacity in cells")
	flag.IntVar(&returnStack, "return-stack", 64, "return stack capacity in cells")
	flag.IntVar(&controlStack, "control-stack", 16, "control stack capacity in entries")
	flag.IntVar(&radix, "radix", 10, "initial numeric base")
	flag.BoolVar(&caseSensitive, "case-sensitive", false, "do not fold word names to lower case")
	flag.IntVar(&steps, "steps", 0, "limit tokens executed per line; 0 means unlimited")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.StringVar(&blockDir, "blocks", "", "keep block storage under this directory")
	flag.BoolVar(&check, "check", false, "run arguments as check scripts")
	flag.Parse()

	log := logio.NewLogger(os.Stderr)

	opts := []forthvm.Option{
		forthvm.WithDataStack(dataStack),
		forthvm.WithReturnStack(returnStack),
		forthvm.WithControlStack(controlStack),
		forthvm.WithRadix(radix),
		forthvm.WithCaseSensitive(caseSensitive),
		forthvm.WithStepBudget(steps),
	}
	if trace {
		opts = append(opts, forthvm.WithLogf(log.Leveledf("TRACE")))
	}
	if blockDir != "" {
		opts = append(opts, forthvm.WithBlocks(forthvm.DirBlocks(blockDir)))
	}

	if check {
		log.ErrorIf(checkScripts(ctx, flag.Args(), opts))
		os.Exit(log.ExitCode())
	}

	vm, err := forthvm.New(make([]byte, memSize), append(opts, forthvm.WithOutput(os.Stdout))...)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(log.ExitCode())
	}

	log.ErrorIf(run(ctx, vm, log, flag.Args()))
	log.ErrorIf(vm.Flush())
	if blockDir != "" {
		// writes back modified blocks
		log.ErrorIf(vm.Reset())
	}
	os.Exit(log.ExitCode())
}

func checkScripts(ctx context.Context, names []string, opts []forthvm.Option) error {
	if len(names) == 0 {
		return errors.New("no check scripts given")
	}
	scripts := make([]forthvm.Script, 0, len(names))
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		scripts = append(scripts, forthvm.Script{Name: name, Src: f})
	}
	return forthvm.CheckScripts(ctx, scripts, opts...)
}

// run processes every named source file, and then standard input; faults
// are logged with their location, and do not stop processing.
func run(ctx context.Context, vm *forthvm.VM, log *logio.Logger, names []string) error {
	var in fileinput.Input
	for _, name := range names {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		in.Queue = append(in.Queue, f)
	}
	if err := processInput(ctx, vm, log, &in); err != nil {
		return err
	}

	if isTerminal(int(os.Stdin.Fd())) {
		return repl(ctx, vm)
	}
	in.Queue = append(in.Queue, fileinput.NamedReader("<stdin>", os.Stdin))
	return processInput(ctx, vm, log, &in)
}

func processInput(ctx context.Context, vm *forthvm.VM, log *logio.Logger, in *fileinput.Input) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if err := vm.ProcessLine(line.Text); err != nil {
			log.Errorf("%v: %v", line.Location, err)
		}
	}
}

func repl(ctx context.Context, vm *forthvm.VM) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), "forthvm.history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if err := vm.ProcessLine(line); err != nil {
			fmt.Fprintf(rl.Stderr(), "%v\n", err)
			continue
		}
		fmt.Fprintln(rl.Stdout(), " ok")
	}
	return ctx.Err()
}
