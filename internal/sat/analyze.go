package sat

// analyze implements spec.md §4.5: First-UIP conflict-driven clause
// learning. Starting from the conflicting clause, it walks the trail
// backwards resolving away every literal at the current decision level
// except one (the "first unique implication point"), accumulating literals
// from earlier levels into the learned clause along the way. While walking
// an antecedent clause it also applies on-the-fly subsumption when that
// antecedent turns out to contain a literal not needed by the resolution
// (spec.md's on_the_fly_subsume). The returned literal slice always has the
// asserting literal at offset 0.
func (s *Solver) analyze(confl *Clause) (learnt []Literal, backjumpLevel int, lbd uint32) {
	d := s.decisionLevel()
	stamps := s.stamps
	stamps.Bump()

	q := 0
	buf := s.tmpLearnts[:0]
	buf = append(buf, 0) // reserve offset 0 for the asserting literal

	current := confl
	isConflict := true
	nextIdx := len(s.trail) - 1
	var l Literal

	for {
		s.tmpReason = s.tmpReason[:0]
		if isConflict {
			current.explainConflict(s, &s.tmpReason)
		} else {
			current.explainAssign(s, &s.tmpReason)
		}
		antecedent := s.tmpReason

		for _, m := range antecedent {
			v := m.VarID()
			if stamps.Seen(v) {
				continue
			}
			stamps.See(v)
			s.bumpVarActivity(v)

			switch lv := s.level[v]; {
			case lv == d:
				q++
			case lv > 0:
				buf = append(buf, m.Opposite())
				stamps.TouchLevel(lv)
			}
			// lv == 0: root-level literals are dropped entirely.
		}

		// On-the-fly subsumption (spec.md §4.5): once we know current has a
		// literal that plays no role in the resolution so far, and another
		// level-d literal remains to keep the invariant "clause has a
		// current-level watch", shrink it in place.
		if !isConflict && q > 0 {
			r := len(buf) - 1
			if size := current.Len(); q+r+1 < size {
				for j := 2; j < size; j++ {
					if s.level[current.Lit(j).VarID()] >= d {
						current.onTheFlySubsume(s, j)
						break
					}
				}
			}
		}

		for {
			l = s.trail[nextIdx]
			nextIdx--
			if stamps.Seen(l.VarID()) {
				break
			}
		}
		q--
		if q <= 0 {
			break
		}
		current = s.reason[l.VarID()]
		isConflict = false
	}

	buf[0] = l.Opposite()
	s.tmpLearnts = buf

	buf = s.minimize(buf)

	backjumpLevel = 0
	for _, m := range buf[1:] {
		if lv := s.level[m.VarID()]; lv > backjumpLevel {
			backjumpLevel = lv
		}
	}

	if s.previousLearntSubsumed(buf, backjumpLevel) {
		s.dropLastLearnt()
	}

	// LBD must be computed now, while every literal's level (including the
	// asserting literal's, still at the conflict level d) reflects the state
	// at the moment of conflict. The caller backjumps right after this
	// returns, which would otherwise reset the asserting literal's level.
	lbd = s.computeLBD(buf)

	return buf, backjumpLevel, lbd
}

// minimize implements Exercise 257's redundant-literal minimization: a
// literal at level p can be dropped from the learned clause if every level
// p has at least two of the clause's literals (the lstamp epoch+1 gate) and
// its variable is provably "redundant" — implied, transitively, only by
// variables already present in the learned clause or at level 0.
func (s *Solver) minimize(buf []Literal) []Literal {
	stamps := s.stamps
	k := 1
	for i := 1; i < len(buf); i++ {
		v := buf[i].VarID()
		lv := s.level[v]
		redundant := stamps.MinimizableLevel(lv) && s.reason[v] != nil && s.redundant(v)
		if !redundant {
			buf[k] = buf[i]
			k++
		}
	}
	return buf[:k]
}

// redundant recursively tests whether every literal of v's reason clause
// (other than v itself) is either already part of the current learned
// clause, at level 0, or itself redundant. Results are memoized via the
// stamp book's epoch+1/epoch+2 sentinel values so the recursion never
// revisits a variable twice within one analysis. Per spec.md §4.5, a level
// with none of the current analysis's literals (LevelAbsent) kills the
// recursion; a level with even a single one is still worth recursing into.
func (s *Solver) redundant(v int) bool {
	stamps := s.stamps
	r := s.reason[v]
	if r == nil {
		return false
	}
	for i := 1; i < r.Len(); i++ {
		a := r.Lit(i)
		av := a.VarID()
		lv := s.level[av]
		if lv == 0 {
			continue
		}
		if stamps.IsNonRedundant(av) {
			return false
		}
		if !stamps.Seen(av) {
			if stamps.LevelAbsent(lv) || !s.redundant(av) {
				stamps.MarkNonRedundant(av)
				return false
			}
		}
	}
	stamps.MarkRedundant(v)
	return true
}

// previousLearntSubsumed implements Exercise 271: the most recently
// installed learnt clause is dropped in favor of the new one when the new
// clause's literal set is (up to the assigned prefix already accounted for)
// a subset of it and it has not yet been used as anyone's reason. This test
// runs before the impending backjump, while variable assignments still
// reflect the state at the moment of conflict.
func (s *Solver) previousLearntSubsumed(learnt []Literal, backjumpLevel int) bool {
	last := s.lastLearnt
	if last == nil {
		return false
	}
	if s.LitValue(last.Lit(0)) != Unknown {
		return false // already asserted/used, not safe to discard
	}

	needed := len(learnt) // r + 1
	for j := last.Len() - 1; j >= 0 && needed > 0; j-- {
		lit := last.Lit(j)
		if lit == learnt[0] {
			needed--
			continue
		}
		v := lit.VarID()
		if s.stamps.Seen(v) && s.LitValue(lit) != Unknown && s.level[v] <= backjumpLevel {
			needed--
		}
	}
	return needed <= 0
}

// dropLastLearnt deletes the previously installed learnt clause once it has
// been proved subsumed by the clause about to be installed.
func (s *Solver) dropLastLearnt() {
	last := s.lastLearnt
	if last == nil {
		return
	}
	if n := len(s.learnts); n > 0 && s.learnts[n-1] == last {
		s.learnts = s.learnts[:n-1]
	}
	last.Delete(s)
	s.lastLearnt = nil
}

// record installs the freshly learned clause and asserts it, implementing
// the "Install and assert" step of spec.md §4.5: place the asserting
// literal, install with a maximum-level second watch and the LBD computed
// by analyze before the backjump, enqueue the assertion, and let both
// activity increments decay (spec's heap.rescale_delta(), applied to both
// the variable and clause increments).
func (s *Solver) record(learnt []Literal, lbd uint32) {
	c, ok := NewClause(s, learnt, true, lbd)
	if !ok {
		s.unsat = true
		return
	}
	if c != nil {
		s.enqueue(learnt[0], c)
		s.learnts = append(s.learnts, c)
	}
	s.lastLearnt = c
	s.decayClauseActivity()
	s.decayVarActivity()
}
