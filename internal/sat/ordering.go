package sat

import (
	"log"

	"github.com/rhartert/yagh"
)

// varOrder is the variable activity heap of spec.md §4.1: a max-heap of
// variables keyed by activity, tolerant of stale entries (a variable can sit
// in the heap after it has been assigned; DeleteMax skips those on the way
// out). Backed by yagh's addressable min-heap, so activities are negated on
// insertion to recover max-heap-by-activity ordering. Phase-saving state
// (spec.md's oval) lives on Solver.phase, shared with the agility counter,
// so both consult the same table.
type varOrder struct {
	size   int
	solver *Solver
	heap   *yagh.IntMap[float64]
}

func newVarOrder(s *Solver, nVar int) *varOrder {
	vo := &varOrder{
		size:   nVar,
		solver: s,
		heap:   yagh.New[float64](nVar),
	}
	for v := 0; v < nVar; v++ {
		vo.Insert(v)
	}
	return vo
}

func (vo *varOrder) expand() { vo.size++ }

// Insert puts v into the heap at its current activity. Idempotent: putting
// an already-present key just updates its priority in place.
func (vo *varOrder) Insert(v int) {
	vo.heap.Put(v, -vo.solver.activity[v])
}

// DeleteMax pops and returns the unassigned variable with the highest
// activity, skipping stale entries left by variables that were assigned
// without first being removed from the heap.
func (vo *varOrder) DeleteMax() int {
	for {
		next, ok := vo.heap.Pop()
		if !ok {
			log.Fatalln("varOrder: empty heap")
		}
		if vo.solver.VarValue(next.Elem) != Unknown {
			continue
		}
		return next.Elem
	}
}

// Bump re-heapifies v after its activity changed. A no-op if v isn't
// currently in the heap (it is already assigned).
func (vo *varOrder) Bump(v int) {
	if vo.heap.Contains(v) {
		vo.heap.Put(v, -vo.solver.activity[v])
	}
}

// Undo saves v's last value for phase-saving and reinserts it into the
// heap. Called from Solver.undoOne on backjump.
func (vo *varOrder) Undo(v int) {
	vo.solver.phase[v] = vo.solver.VarValue(v)
	vo.Insert(v)
}

// Select removes and returns the decision literal for the heap's top
// variable, applying phase-saving; a never-assigned variable defaults to
// the negative phase (oval is conceptually initialized to FALSE).
func (vo *varOrder) Select() Literal {
	v := vo.DeleteMax()
	if vo.solver.phase[v] == True {
		return vo.solver.PositiveLiteral(v)
	}
	return vo.solver.NegativeLiteral(v)
}
