package forthvm

import (
	"io"

	"github.com/jcorbin/forthvm/internal/flushio"
)

// Option configures a VM under construction.
type Option interface{ apply(vm *VM) }

// Options combines any number of options into one; nil options are dropped.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type options []Option

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

// WithDataStack sets the data stack capacity in cells; the default is 64.
func WithDataStack(cells int) Option { return dataStackOption(cells) }

// WithReturnStack sets the return stack capacity in cells; the default is 64.
// Calls take two cells, and counted loops three.
func WithReturnStack(cells int) Option { return returnStackOption(cells) }

// WithControlStack sets how many control structures may be open at once
// while compiling; the default is 16.
func WithControlStack(entries int) Option { return controlStackOption(entries) }

// WithRadix sets the initial numeric base, 2 through 36; the default is 10.
func WithRadix(radix int) Option { return radixOption(radix) }

// WithCaseSensitive disables ASCII case folding of word names.
func WithCaseSensitive(sensitive bool) Option { return caseSensitiveOption(sensitive) }

// WithOutput sets where program output goes, replacing any prior output.
func WithOutput(w io.Writer) Option { return outputOption{w} }

// WithTee copies program output to an additional writer.
func WithTee(w io.Writer) Option { return teeOption{w} }

// WithStepBudget limits how many tokens may be dispatched while processing
// one line; zero, the default, means no limit.
func WithStepBudget(steps int) Option { return stepBudgetOption(steps) }

// WithLogf installs a trace function, receiving a line for every
// definition, compiled token, executed token, and fault.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithPrimitives adds host primitives, defined after all builtin words so
// that they may shadow them.
func WithPrimitives(prims ...Primitive) Option { return primitivesOption(prims) }

// WithBuiltins replaces the builtin primitive library; the compiler words,
// like ":" and "if", are always present.
func WithBuiltins(prims ...Primitive) Option { return builtinsOption(prims) }

// WithBlocks configures block storage, carving two block buffers out of the
// region, and adding the block words.
func WithBlocks(dev BlockDevice) Option { return blocksOption{dev} }

type dataStackOption int
type returnStackOption int
type controlStackOption int
type radixOption int
type caseSensitiveOption bool
type outputOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type stepBudgetOption int
type withLogfn func(mess string, args ...interface{})
type primitivesOption []Primitive
type builtinsOption []Primitive
type blocksOption struct{ BlockDevice }

func (n dataStackOption) apply(vm *VM)     { vm.dataCap = int(n) }
func (n returnStackOption) apply(vm *VM)   { vm.returnCap = int(n) }
func (n controlStackOption) apply(vm *VM)  { vm.controlCap = int(n) }
func (r radixOption) apply(vm *VM)         { vm.initRadix = int(r) }
func (b caseSensitiveOption) apply(vm *VM) { vm.caseSensitive = bool(b) }
func (n stepBudgetOption) apply(vm *VM)    { vm.stepBudget = int(n) }
func (logfn withLogfn) apply(vm *VM)       { vm.logfn = logfn }
func (b blocksOption) apply(vm *VM)        { vm.blockDev = b.BlockDevice }

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (prims primitivesOption) apply(vm *VM) {
	vm.extra = append(vm.extra, prims...)
}

func (prims builtinsOption) apply(vm *VM) {
	vm.library = append([]Primitive(nil), prims...)
}
