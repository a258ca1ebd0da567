package sat

import "strings"

// status bits carried by a Clause. Promoted from the teacher's forward
// (never fully wired) sat/clauses.go sketch: an unfinished second clause
// representation that already carried an LBD field and a status mask. This
// file finishes that design and becomes the only Clause type in the engine.
type status uint8

const (
	statusLearnt    status = 0b01
	statusProtected status = 0b10
)

// Clause is a disjunction of at least two literals (unit and empty clauses
// never materialize as a *Clause; NewClause handles them by enqueuing or
// signalling failure directly). literals[0] and literals[1] are always the
// two watched literals (spec.md §3's "handle" invariants); the clause is
// registered in exactly the watchlists of literals[0].Opposite() and
// literals[1].Opposite().
type Clause struct {
	literals []Literal
	sliceRef *[]Literal // backing store, returned to the pool on Delete

	activity float64
	lbd      uint32 // 0 for original clauses: "never purge"

	statusMask status
}

func (c *Clause) isLearnt() bool     { return c.statusMask&statusLearnt != 0 }
func (c *Clause) isProtected() bool  { return c.statusMask&statusProtected != 0 }
func (c *Clause) setProtected()      { c.statusMask |= statusProtected }
func (c *Clause) setUnprotected()    { c.statusMask &^= statusProtected }
func (c *Clause) Len() int           { return len(c.literals) }
func (c *Clause) Lit(i int) Literal  { return c.literals[i] }
func (c *Clause) LBD() uint32        { return c.lbd }

// NewClause installs a clause into the solver. For original (non-learnt)
// clauses it first simplifies against the root-level assignment, dropping
// satisfied/tautological clauses and false/duplicate literals (this is
// spec.md §4.2's install_original, generalized to also fold in the
// clause-normalization every original clause needs at parse time). For
// learnt clauses, tmpLiterals must already have the asserting literal at
// offset 0 (spec.md's install_learned contract); NewClause chooses the
// second watch to be a maximum-level literal among the remainder, stores
// the caller-supplied LBD, and bumps its initial activity. lbd is ignored
// when learnt is false.
//
// The LBD must be computed by the caller before the backjump that follows
// analyze() runs: by the time NewClause installs the clause, the asserting
// literal's level has already been reset to -1 by cancelUntil, so computing
// it here would index the LBD scratch table with a stale, out-of-range
// level (spec.md §4.5's LBD is defined over the levels at the moment of
// conflict, not after the jump).
//
// Returns (nil, true) if the clause was satisfied or resulted in a directly
// enqueued unit fact, (nil, false) if it is UNSAT (empty clause or
// conflicting unit), and (c, true) once a clause of size >= 2 is installed.
func NewClause(s *Solver, tmpLiterals []Literal, learnt bool, lbd uint32) (*Clause, bool) {
	size := len(tmpLiterals)

	if !learnt {
		seen := map[Literal]struct{}{}
		for i := size - 1; i >= 0; i-- {
			if _, ok := seen[tmpLiterals[i].Opposite()]; ok {
				return nil, true // tautology
			}
			if _, ok := seen[tmpLiterals[i]]; ok {
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
				continue
			}
			seen[tmpLiterals[i]] = struct{}{}

			switch s.LitValue(tmpLiterals[i]) {
			case True:
				return nil, true
			case False:
				size--
				tmpLiterals[i], tmpLiterals[size] = tmpLiterals[size], tmpLiterals[i]
			}
		}
		tmpLiterals = tmpLiterals[:size]
	}

	switch size {
	case 0:
		return nil, false
	case 1:
		return nil, s.enqueue(tmpLiterals[0], nil)
	default:
		ref := allocSlice(size)
		lits := (*ref)[:0]
		lits = append(lits, tmpLiterals...)

		c := &Clause{
			literals: lits,
			sliceRef: ref,
		}

		if learnt {
			c.statusMask |= statusLearnt

			maxLevel, wl := -1, -1
			for i := 1; i < len(c.literals); i++ {
				if lev := s.level[c.literals[i].VarID()]; lev > maxLevel {
					maxLevel = lev
					wl = i
				}
			}
			c.literals[wl], c.literals[1] = c.literals[1], c.literals[wl]

			c.lbd = lbd
			s.bumpClauseActivity(c)
		}

		s.Watch(c, c.literals[0].Opposite(), c.literals[1])
		s.Watch(c, c.literals[1].Opposite(), c.literals[0])

		return c, true
	}
}

// locked reports whether c is currently somebody's reason clause, i.e. it
// must survive a purge (spec.md §4.2/§7: purging must never dangle a live
// reason).
func (c *Clause) locked(s *Solver) bool {
	return s.reason[c.literals[0].VarID()] == c
}

// Delete unlinks c from both of its watchlists and returns its backing
// slice to the allocator pool. Never call Delete on a locked clause.
func (c *Clause) Delete(s *Solver) {
	s.Unwatch(c, c.literals[0].Opposite())
	s.Unwatch(c, c.literals[1].Opposite())
	*c.sliceRef = c.literals[:0]
	freeSlice(c.sliceRef)
	c.literals = nil
}

// Simplify drops literals falsified at the root level and reports whether
// the clause is satisfied at the root level (in which case the caller
// should remove it entirely).
func (c *Clause) Simplify(s *Solver) bool {
	k := 0
	for _, lit := range c.literals {
		switch s.LitValue(lit) {
		case True:
			return true
		case False:
			// discard the literal
		case Unknown:
			c.literals[k] = lit
			k++
		}
	}
	c.literals = c.literals[:k]
	return false
}

// Propagate is invoked when literal l (the negation of one of c's watched
// literals) has just become true. It implements the two-watched-literal
// step of spec.md §4.3: normalize the falsified watch to offset 1, then
// scan the body for a replacement watch, tombstoning any level-0-false
// literal encountered along the way (spec.md §4.2 level0_tombstone). When
// every body literal beyond offset 0 is false, literals[0] is enqueued with
// c as its reason. It returns false exactly when that enqueue fails, i.e.
// c is conflicting; the caller (Solver.Propagate) then stops propagation
// and reports c as the conflict.
func (c *Clause) Propagate(s *Solver, l Literal) bool {
	opp := l.Opposite()
	if c.literals[0] == opp {
		c.literals[0], c.literals[1] = c.literals[1], c.literals[0]
	}

	if s.LitValue(c.literals[0]) == True {
		s.Watch(c, l, c.literals[0])
		return true
	}

	i := 2
	for i < len(c.literals) {
		lit := c.literals[i]
		if s.LitValue(lit) == False {
			if s.level[lit.VarID()] == 0 {
				last := len(c.literals) - 1
				c.literals[i] = c.literals[last]
				c.literals = c.literals[:last]
				continue // re-examine index i, now holding the swapped-in literal
			}
			i++
			continue
		}
		// lit is True or Unknown: found a replacement watch.
		c.literals[1], c.literals[i] = lit, opp
		s.Watch(c, lit.Opposite(), c.literals[0])
		return true
	}

	// Every body literal is false; literals[0] is the sole remaining
	// candidate. Enqueue returns false on conflict.
	s.Watch(c, l, c.literals[0])
	return s.enqueue(c.literals[0], c)
}

// onTheFlySubsume implements spec.md §4.2's on_the_fly_subsume: the caller
// guarantees literals[j] (j >= 2) is at the current decision level. c is
// shrunk in place by moving literals[j] to offset 0 (making it a watch) and
// the former last literal into slot j, then truncating.
func (c *Clause) onTheFlySubsume(s *Solver, j int) {
	s.Unwatch(c, c.literals[0].Opposite())

	newFirst := c.literals[j]
	last := len(c.literals) - 1
	c.literals[j] = c.literals[last]
	c.literals[0] = newFirst
	c.literals = c.literals[:last]

	s.Watch(c, c.literals[0].Opposite(), c.literals[1])
}

// explainConflict sets *out (reusing its backing array) to the negation of
// every literal in c, producing the antecedent used when c is the conflicting clause itself
// (spec.md's explain(confl, -1)). Every clause consulted during analysis
// counts as "used": a learnt c has its activity bumped here (spec.md
// §4.5/§7: this is what makes the activity-based ReduceDB purge in
// solver.go track actual usage rather than install order) and is marked
// protected, sparing it from the next ReduceDB pass (solver.go clears the
// flag on every surviving learnt at the end of each pass, so protection has
// to be earned again by being consulted at least once per purge interval).
func (c *Clause) explainConflict(s *Solver, out *[]Literal) {
	exp := (*out)[:0]
	for _, l := range c.literals {
		exp = append(exp, l.Opposite())
	}
	*out = exp
	if c.isLearnt() {
		s.bumpClauseActivity(c)
		c.setProtected()
	}
}

// explainAssign sets *out (reusing its backing array) to the negation of
// every literal but the asserted one (offset 0): the antecedent for why c forced literals[0] true. See
// explainConflict for why a learnt c's activity is bumped and it is marked
// protected here.
func (c *Clause) explainAssign(s *Solver, out *[]Literal) {
	exp := (*out)[:0]
	for _, l := range c.literals[1:] {
		exp = append(exp, l.Opposite())
	}
	*out = exp
	if c.isLearnt() {
		s.bumpClauseActivity(c)
		c.setProtected()
	}
}

func (c *Clause) String() string {
	if len(c.literals) == 0 {
		return "Clause[]"
	}
	sb := strings.Builder{}
	sb.WriteString("Clause[")
	sb.WriteString(c.literals[0].String())
	for _, l := range c.literals[1:] {
		sb.WriteByte(' ')
		sb.WriteString(l.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
