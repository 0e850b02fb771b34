package forthvm

import "github.com/jcorbin/forthvm/internal/mem"

// stack is a fixed capacity LIFO of cells kept inside the memory region;
// element 0 lives at base, and the stack grows upward.
type stack struct {
	name  string
	mem   mem.Region
	base  uint32
	cap   uint32
	depth uint32
}

func (s *stack) push(val uint32) error {
	if s.depth >= s.cap {
		return stackError{s.name, ErrStackOverflow}
	}
	if err := s.mem.StorCell(s.base+s.depth*mem.CellSize, val); err != nil {
		return memError(err)
	}
	s.depth++
	return nil
}

func (s *stack) pop() (uint32, error) {
	val, err := s.peek(0)
	if err == nil {
		s.depth--
	}
	return val, err
}

// addr returns the address of the n-th cell down from the top.
func (s *stack) addr(n uint32) (uint32, error) {
	if n >= s.depth {
		return 0, stackError{s.name, ErrStackUnderflow}
	}
	return s.base + (s.depth-1-n)*mem.CellSize, nil
}

func (s *stack) peek(n uint32) (uint32, error) {
	at, err := s.addr(n)
	if err != nil {
		return 0, err
	}
	val, err := s.mem.LoadCell(at)
	return val, memError(err)
}

func (s *stack) poke(n, val uint32) error {
	at, err := s.addr(n)
	if err != nil {
		return err
	}
	return memError(s.mem.StorCell(at, val))
}

func (s *stack) drop(n uint32) error {
	if n > s.depth {
		return stackError{s.name, ErrStackUnderflow}
	}
	s.depth -= n
	return nil
}

func (s *stack) reset() { s.depth = 0 }

// cells returns a copy of the stack, bottom first.
func (s *stack) cells() []Cell {
	vals := make([]Cell, s.depth)
	for i := range vals {
		val, _ := s.mem.LoadCell(s.base + uint32(i)*mem.CellSize)
		vals[i] = Cell(val)
	}
	return vals
}
