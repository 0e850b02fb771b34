package forthvm

import (
	"github.com/jcorbin/forthvm/internal/mem"
)

// fetch reads one cell of threaded code; code only ever lives in the
// allocated part of the dictionary.
func (vm *VM) fetch(at uint32) (uint32, error) {
	if at < dictBase || uint64(at)+mem.CellSize > uint64(vm.here) {
		return 0, addrError{mem.AddrError{Addr: at, Op: "fetch", Reason: "outside dictionary"}}
	}
	val, err := vm.mem.LoadCell(at)
	return val, memError(err)
}

func (vm *VM) operand() (uint32, error) {
	val, err := vm.fetch(vm.ip)
	if err == nil {
		vm.ip += mem.CellSize
	}
	return val, err
}

// run executes the word at header h until it returns. Calls push (word,
// resume) frames on the return stack; the invocation is over once an exit
// finds the return stack back at the depth it started with.
func (vm *VM) run(h uint32) error {
	base := vm.rs.depth
	vm.cur, vm.ip = h, h+headerSize
	for {
		if vm.stepBudget > 0 {
			if vm.steps >= vm.stepBudget {
				return ErrStepBudgetExceeded
			}
			vm.steps++
		}

		at := vm.ip
		code, err := vm.fetch(at)
		if err != nil {
			return err
		}
		vm.ip += mem.CellSize
		tok := token(code)
		if vm.logfn != nil {
			vm.logf(">", "@%v %v %v", at, vm.tokenString(at), vm.ds.cells())
		}

		switch tok.kind() {
		case tokExit:
			if vm.rs.depth <= base {
				return nil
			}
			resume, err := vm.rs.pop()
			if err != nil {
				return err
			}
			word, err := vm.rs.pop()
			if err != nil {
				return err
			}
			vm.cur, vm.ip = word, resume

		case tokPrim:
			err = vm.callPrim(tok.arg())

		case tokCall:
			err = vm.call(tok.arg() - headerSize)

		case tokLit:
			var val uint32
			if val, err = vm.operand(); err == nil {
				err = vm.ds.push(val)
			}

		case tokBranch:
			var target uint32
			if target, err = vm.operand(); err == nil {
				vm.ip = target
			}

		case tokBranch0:
			var target, flag uint32
			if target, err = vm.operand(); err == nil {
				if flag, err = vm.ds.pop(); err == nil && flag == 0 {
					vm.ip = target
				}
			}

		case tokDo:
			err = vm.enterLoop()

		case tokLoop:
			err = vm.stepLoop(1)

		case tokPlusLoop:
			var step uint32
			if step, err = vm.ds.pop(); err == nil {
				err = vm.stepLoop(int32(step))
			}

		default:
			return tokenError{at, code}
		}

		if err != nil {
			return err
		}
	}
}

func (vm *VM) callPrim(idx uint32) error {
	if idx >= uint32(len(vm.prims)) {
		return tokenError{vm.ip - mem.CellSize, uint32(makeToken(tokPrim, idx))}
	}
	return vm.prims[idx].Func(vm)
}

// call enters the word at header h, saving the current position.
func (vm *VM) call(h uint32) error {
	if err := vm.rs.push(vm.cur); err != nil {
		return err
	}
	if err := vm.rs.push(vm.ip); err != nil {
		return err
	}
	vm.cur, vm.ip = h, h+headerSize
	return nil
}

// Loop frames are three return stack cells: the leave address, the limit,
// and the index on top.

func (vm *VM) enterLoop() error {
	leave, err := vm.operand()
	if err != nil {
		return err
	}
	start, err := vm.ds.pop()
	if err != nil {
		return err
	}
	limit, err := vm.ds.pop()
	if err != nil {
		return err
	}
	for _, val := range [3]uint32{leave, limit, start} {
		if err := vm.rs.push(val); err != nil {
			return err
		}
	}
	return nil
}

// stepLoop advances the loop index, leaving the loop once the index crosses
// the boundary between limit-1 and limit in either direction; a zero step
// never crosses.
func (vm *VM) stepLoop(step int32) error {
	start, err := vm.operand()
	if err != nil {
		return err
	}
	index, err := vm.rs.peek(0)
	if err != nil {
		return err
	}
	limit, err := vm.rs.peek(1)
	if err != nil {
		return err
	}
	i, lim := int32(index), int32(limit)
	next := i + step
	if (i-lim)^(next-lim) < 0 {
		return vm.rs.drop(3)
	}
	vm.ip = start
	return vm.rs.poke(0, uint32(next))
}
