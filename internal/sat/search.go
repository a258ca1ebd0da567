package sat

import "time"

// Restart and lemma-purge tuning (spec.md §4.6). Restarts are agility-gated
// rather than on a fixed conflict schedule: a burst of conflicts that keeps
// flipping variables away from their saved phase (low agility) indicates the
// search is thrashing in a bad neighborhood of the search tree, and a
// restart is worth its cost; a restart is never attempted twice within the
// same short epoch window, since agility needs time to settle after the
// previous restart's backjump to level 0.
const (
	restartAgilityThreshold = 0.25
	restartMinEpochGap      = 1000
	lemmaCapBase            = 10000
	lemmaCapGrowth          = 2000
)

// Solve drives the search to completion (or to a configured stop
// condition): True if a satisfying assignment was found (left recorded in
// s.Models), False if the instance is unsatisfiable, Unknown if a
// MaxConflicts/Timeout stop condition fired first.
func (s *Solver) Solve() LBool {
	if s.unsat {
		return False
	}

	s.order = newVarOrder(s, s.NumVariables())
	s.startTime = time.Now()
	s.lastRestartEpoch = s.stamps.epoch

	s.printSeparator()
	s.printSearchHeader()
	s.printSeparator()

	result := s.search()

	s.printSearchStats()
	s.printSeparator()

	s.cancelUntil(0)
	return result
}

// search is the propagate/decide/analyze loop of spec.md §4.6.
func (s *Solver) search() LBool {
	nLearntsCap := lemmaCapBase

	for !s.shouldStop() {
		if s.TotalIterations%10000 == 0 {
			s.printSearchStats()
		}
		s.TotalIterations++

		if conflict := s.Propagate(); conflict != nil {
			s.TotalConflicts++

			if s.decisionLevel() == 0 {
				s.unsat = true
				return False
			}

			learnt, backjumpLevel, lbd := s.analyze(conflict)
			s.cancelUntil(backjumpLevel)
			s.record(learnt, lbd)

			if s.stamps.epoch-s.lastRestartEpoch >= restartMinEpochGap &&
				s.agility.Fraction() < restartAgilityThreshold {
				s.TotalRestarts++
				s.lastRestartEpoch = s.stamps.epoch
				s.cancelUntil(0)
			}

			if len(s.learnts) > nLearntsCap {
				s.ReduceDB()
				nLearntsCap += lemmaCapGrowth
			}

			continue
		}

		// No conflict: the trail is saturated under unit propagation.
		if s.decisionLevel() == 0 {
			if !s.Simplify() {
				return False
			}
		}

		if s.NumAssigns() == s.NumVariables() {
			s.saveModel()
			s.cancelUntil(0)
			return True
		}

		l := s.order.Select()
		s.assume(l)
	}

	return Unknown
}
