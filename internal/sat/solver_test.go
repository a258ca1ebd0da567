package sat

import (
	"math/rand"
	"testing"
)

func addOr(t *testing.T, s *Solver, lits ...Literal) {
	t.Helper()
	if err := s.AddClause(lits); err != nil {
		t.Fatalf("AddClause(%v): %v", lits, err)
	}
}

// Scenario 1: (x1 v x2) ^ (!x1 v x2) ^ (x1 v !x2) -> SAT with x1=T, x2=T.
func TestSolve_SmallSAT(t *testing.T) {
	s := newTestSolver(2)
	x1, x2 := s.PositiveLiteral(0), s.PositiveLiteral(1)
	addOr(t, s, x1, x2)
	addOr(t, s, x1.Opposite(), x2)
	addOr(t, s, x1, x2.Opposite())

	if got := s.Solve(); got != True {
		t.Fatalf("Solve() = %v, want True", got)
	}
	model := s.Models[len(s.Models)-1]
	if !model[0] || !model[1] {
		t.Errorf("model = %v, want x1=true, x2=true", model)
	}
}

// Scenario 2 / boundary: (x1) ^ (!x1) -> UNSAT without any search.
func TestSolve_UnitContradiction(t *testing.T) {
	s := newTestSolver(1)
	addOr(t, s, s.PositiveLiteral(0))
	addOr(t, s, s.NegativeLiteral(0))

	if !s.unsat {
		t.Fatalf("s.unsat = false after adding contradictory root units, want true")
	}
	if got := s.Solve(); got != False {
		t.Fatalf("Solve() = %v, want False", got)
	}
	if s.TotalConflicts != 0 {
		t.Errorf("TotalConflicts = %d, want 0 (contradiction detected at parse time)", s.TotalConflicts)
	}
}

// Boundary: a formula made of a single variable's two unit clauses is UNSAT.
func TestSolve_SingleVariableBothUnits(t *testing.T) {
	s := newTestSolver(1)
	addOr(t, s, s.PositiveLiteral(0))
	addOr(t, s, s.NegativeLiteral(0))

	if got := s.Solve(); got != False {
		t.Fatalf("Solve() = %v, want False", got)
	}
}

// Boundary: zero clauses is SAT, with all variables defaulting false.
func TestSolve_ZeroClausesIsSAT(t *testing.T) {
	s := newTestSolver(3)

	if got := s.Solve(); got != True {
		t.Fatalf("Solve() = %v, want True", got)
	}
	for i, v := range s.Models[len(s.Models)-1] {
		if v {
			t.Errorf("model[%d] = true, want false (default oval)", i)
		}
	}
}

// Boundary: an empty clause makes the instance immediately UNSAT.
func TestSolve_EmptyClauseIsUnsat(t *testing.T) {
	s := newTestSolver(1)
	addOr(t, s /* no literals */)

	if !s.unsat {
		t.Fatalf("s.unsat = false after adding the empty clause, want true")
	}
	if got := s.Solve(); got != False {
		t.Fatalf("Solve() = %v, want False", got)
	}
}

// Scenario 3: (x1 v x2) ^ (x3) ^ (!x2 v !x3 v x4) -> SAT; x3 forced true,
// x4 forced once x2 is chosen true.
func TestSolve_ForcedPropagation(t *testing.T) {
	s := newTestSolver(4)
	x1, x2, x3, x4 := s.PositiveLiteral(0), s.PositiveLiteral(1), s.PositiveLiteral(2), s.PositiveLiteral(3)
	addOr(t, s, x1, x2)
	addOr(t, s, x3)
	addOr(t, s, x2.Opposite(), x3.Opposite(), x4)

	if got := s.Solve(); got != True {
		t.Fatalf("Solve() = %v, want True", got)
	}
	model := s.Models[len(s.Models)-1]
	if !model[2] {
		t.Errorf("model[2] (x3) = false, want true (forced unit)")
	}
	if model[1] && !model[3] {
		t.Errorf("model = %v: x2 true but x4 false, violates (!x2 v !x3 v x4) with x3 true", model)
	}
}

// Scenario 4: PHP(3,2), the pigeonhole principle with 3 pigeons and 2 holes,
// is UNSAT and can only be proven so via conflict-driven clause learning.
func TestSolve_PigeonholeUnsat(t *testing.T) {
	const pigeons, holes = 3, 2
	s := NewDefaultSolver()

	varOf := func(p, h int) int { return p*holes + h }
	for i := 0; i < pigeons*holes; i++ {
		s.AddVariable()
	}

	// Every pigeon sits in at least one hole.
	for p := 0; p < pigeons; p++ {
		lits := make([]Literal, holes)
		for h := 0; h < holes; h++ {
			lits[h] = s.PositiveLiteral(varOf(p, h))
		}
		addOr(t, s, lits...)
	}
	// No two pigeons share a hole.
	for h := 0; h < holes; h++ {
		for p1 := 0; p1 < pigeons; p1++ {
			for p2 := p1 + 1; p2 < pigeons; p2++ {
				addOr(t, s, s.NegativeLiteral(varOf(p1, h)), s.NegativeLiteral(varOf(p2, h)))
			}
		}
	}

	if got := s.Solve(); got != False {
		t.Fatalf("Solve() = %v, want False (pigeonhole is unsatisfiable)", got)
	}
	if s.TotalConflicts == 0 {
		t.Errorf("TotalConflicts = 0, want at least one conflict to have been learned from")
	}
}

// Scenario 5: a fixed, deterministically generated random 3-SAT instance at
// clause/variable ratio 4.0 with 50 variables must terminate quickly and
// yield a model that satisfies every clause.
func TestSolve_Random3SAT(t *testing.T) {
	const nVars = 50
	const ratio = 4.0

	rng := rand.New(rand.NewSource(1))
	s := newTestSolver(nVars)

	nClauses := int(nVars * ratio)
	clauses := make([][]Literal, 0, nClauses)
	for i := 0; i < nClauses; i++ {
		lits := make([]Literal, 3)
		seen := map[int]bool{}
		for j := 0; j < 3; {
			v := rng.Intn(nVars)
			if seen[v] {
				continue
			}
			seen[v] = true
			if rng.Intn(2) == 0 {
				lits[j] = s.PositiveLiteral(v)
			} else {
				lits[j] = s.NegativeLiteral(v)
			}
			j++
		}
		clauses = append(clauses, lits)
		addOr(t, s, lits...)
	}

	got := s.Solve()
	if got != True && got != False {
		t.Fatalf("Solve() = %v, want a definite answer", got)
	}
	if got == True {
		model := s.Models[len(s.Models)-1]
		for _, c := range clauses {
			satisfied := false
			for _, l := range c {
				val := model[l.VarID()]
				if (l.IsPositive() && val) || (!l.IsPositive() && !val) {
					satisfied = true
					break
				}
			}
			if !satisfied {
				t.Errorf("clause %v not satisfied by model %v", c, model)
			}
		}
	}
}

// Law: backjump(d) followed by backjump(d) leaves state identical to a
// single call.
func TestCancelUntil_Idempotent(t *testing.T) {
	s := newTestSolver(3)
	s.order = newVarOrder(s, s.NumVariables())

	s.assume(s.PositiveLiteral(0))
	s.assume(s.PositiveLiteral(1))
	s.assume(s.PositiveLiteral(2))

	s.cancelUntil(1)
	trailAfterFirst := append([]Literal{}, s.trail...)
	levelAfterFirst := s.decisionLevel()

	s.cancelUntil(1)

	if got := s.decisionLevel(); got != levelAfterFirst {
		t.Errorf("decisionLevel() = %d after second cancelUntil, want %d", got, levelAfterFirst)
	}
	if len(s.trail) != len(trailAfterFirst) {
		t.Errorf("trail length = %d after second cancelUntil, want %d", len(s.trail), len(trailAfterFirst))
	}
}

// Law: for a fixed input, outcome and model are reproducible.
func TestSolve_Deterministic(t *testing.T) {
	build := func() *Solver {
		s := newTestSolver(4)
		x1, x2, x3, x4 := s.PositiveLiteral(0), s.PositiveLiteral(1), s.PositiveLiteral(2), s.PositiveLiteral(3)
		addOr(t, s, x1, x2)
		addOr(t, s, x3)
		addOr(t, s, x2.Opposite(), x3.Opposite(), x4)
		addOr(t, s, x1.Opposite(), x4.Opposite())
		return s
	}

	s1, s2 := build(), build()
	got1, got2 := s1.Solve(), s2.Solve()

	if got1 != got2 {
		t.Fatalf("Solve() nondeterministic outcome: %v vs %v", got1, got2)
	}
	if got1 == True {
		m1, m2 := s1.Models[len(s1.Models)-1], s2.Models[len(s2.Models)-1]
		for i := range m1 {
			if m1[i] != m2[i] {
				t.Errorf("model[%d] differs across runs: %v vs %v", i, m1[i], m2[i])
			}
		}
	}
}
