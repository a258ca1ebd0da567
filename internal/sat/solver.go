package sat

import (
	"fmt"
	"log"
	"sort"
	"time"
)

// Solver is a single-threaded CDCL engine: a clause database, a
// two-watched-literal propagator, a trail with per-decision-level markers,
// a variable-activity heap, and the conflict analyzer/search driver wired
// on top of them (analyze.go, search.go). A Solver instance is not safe for
// concurrent use; solving independent instances concurrently means owning
// one Solver per instance.
type Solver struct {
	// Clause database.
	constraints []*Clause
	learnts     []*Clause
	clauseInc   float64
	clauseDecay float64

	// Variable ordering.
	activity []float64
	varInc   float64
	varDecay float64
	order    *varOrder

	// Propagation and watchers.
	watchers  [][]watcher
	propQueue *Queue[Literal]

	// Value assigned to each literal (indexed by literal, both polarities
	// visible in O(1)).
	assigns []LBool

	// Phase-saving: last value each variable held before being unassigned
	// (spec.md's oval). Also read by the agility counter.
	phase []LBool

	// Trail.
	trail    []Literal
	trailLim []int // spec.md's DI, one entry per opened decision level
	reason   []*Clause
	level    []int

	// Whether the problem has reached a root-level conflict.
	unsat bool

	// Restart machinery.
	agility          agility
	stamps           *stampBook
	lastRestartEpoch uint64

	// LBD scratch (kept separate from the analysis stampBook: LBD is
	// computed once per learnt clause, outside the conflict epoch's
	// sentinel bands).
	lbdSeen  []uint32
	lbdEpoch uint32

	// Previous-learned-clause subsumption target (Exercise 271): the most
	// recently installed learnt clause, or nil.
	lastLearnt *Clause

	// Search statistics.
	TotalConflicts  int64
	TotalRestarts   int64
	TotalIterations int64
	startTime       time.Time
	Verbosity       int

	// Stop conditions.
	hasStopCond bool
	maxConflict int64
	timeout     time.Duration

	// Models found so far.
	Models [][]bool

	// Shared scratch state for propagation and analysis, reused across
	// calls to avoid repeated allocation.
	tmpWatchers []watcher
	tmpLearnts  []Literal
	tmpReason   []Literal
}

// watcher represents a clause attached to a literal's watchlist.
type watcher struct {
	clause *Clause
	// guard is one of the clause's literals, different from the watched
	// literal. If it is already true, the clause need not be examined.
	guard Literal
}

type Options struct {
	ClauseDecay   float64
	VariableDecay float64
	MaxConflicts  int64
	Timeout       time.Duration
	Verbosity     int
}

var DefaultOptions = Options{
	ClauseDecay:   0.999,
	VariableDecay: 0.95,
	MaxConflicts:  -1,
	Timeout:       -1,
	Verbosity:     0,
}

// NewDefaultSolver returns a solver configured with default options.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(opts Options) *Solver {
	s := &Solver{
		clauseDecay: opts.ClauseDecay,
		varDecay:    opts.VariableDecay,
		clauseInc:   1,
		varInc:      1,
		propQueue:   NewQueue[Literal](128),
		maxConflict: -1,
		timeout:     -1,
		Verbosity:   opts.Verbosity,
		stamps:      newStampBook(0, 0),
	}
	if opts.MaxConflicts >= 0 {
		s.hasStopCond = true
		s.maxConflict = opts.MaxConflicts
	}
	if opts.Timeout >= 0 {
		s.hasStopCond = true
		s.timeout = opts.Timeout
	}
	return s
}

func (s *Solver) shouldStop() bool {
	if !s.hasStopCond {
		return false
	}
	if s.maxConflict >= 0 && s.maxConflict <= s.TotalConflicts {
		return true
	}
	if s.timeout >= 0 && s.timeout <= time.Since(s.startTime) {
		return true
	}
	return false
}

func (s *Solver) PositiveLiteral(varID int) Literal { return Literal(varID * 2) }
func (s *Solver) NegativeLiteral(varID int) Literal { return s.PositiveLiteral(varID).Opposite() }

func (s *Solver) NumVariables() int   { return len(s.assigns) / 2 }
func (s *Solver) NumAssigns() int     { return len(s.trail) }
func (s *Solver) NumConstraints() int { return len(s.constraints) }
func (s *Solver) NumLearnts() int     { return len(s.learnts) }

func (s *Solver) VarValue(x int) LBool     { return s.assigns[s.PositiveLiteral(x)] }
func (s *Solver) LitValue(l Literal) LBool { return s.assigns[l] }

// AddVariable declares a new boolean variable and returns its id.
func (s *Solver) AddVariable() int {
	index := s.NumVariables()
	s.watchers = append(s.watchers, nil, nil)
	s.reason = append(s.reason, nil)
	s.assigns = append(s.assigns, Unknown, Unknown)
	s.phase = append(s.phase, False)
	s.level = append(s.level, -1)
	s.activity = append(s.activity, 0)
	s.stamps.expandVars(index + 1)
	s.stamps.expandLevels(index + 1)
	s.lbdSeen = append(s.lbdSeen, 0)
	if s.order != nil {
		s.order.expand()
		s.order.Insert(index)
	}
	return index
}

// Watch registers clause c to be examined when literal watch becomes true.
// guard is the clause's other watched literal, used to skip loading the
// clause from memory when it is already known to be satisfied.
func (s *Solver) Watch(c *Clause, watch Literal, guard Literal) {
	s.watchers[watch] = append(s.watchers[watch], watcher{clause: c, guard: guard})
}

// Unwatch removes clause c from the watchlist of literal watch.
func (s *Solver) Unwatch(c *Clause, watch Literal) {
	j := 0
	list := s.watchers[watch]
	for i := 0; i < len(list); i++ {
		if list[i].clause != c {
			list[j] = list[i]
			j++
		}
	}
	s.watchers[watch] = list[:j]
}

// AddClause installs an original (non-learnt) clause. Must only be called
// at the root decision level, per spec.md §4.2 install_original.
func (s *Solver) AddClause(literals []Literal) error {
	if s.decisionLevel() != 0 {
		return fmt.Errorf("sat: AddClause called at decision level %d, want 0", s.decisionLevel())
	}
	c, ok := NewClause(s, literals, false, 0)
	if c != nil {
		s.constraints = append(s.constraints, c)
	}
	if !ok {
		s.unsat = true
	}
	return nil
}

// Simplify removes clauses satisfied at the root level from both the
// original and learnt clause sets.
func (s *Solver) Simplify() bool {
	if lvl := s.decisionLevel(); lvl != 0 {
		log.Fatalf("sat: Simplify called at decision level %d, want 0", lvl)
	}
	if s.propQueue.Size() != 0 {
		log.Fatal("sat: Simplify called with a non-empty propagation queue")
	}
	if s.unsat || s.Propagate() != nil {
		s.unsat = true
		return false
	}
	s.simplifySet(&s.learnts)
	s.simplifySet(&s.constraints)
	return true
}

func (s *Solver) simplifySet(clausesPtr *[]*Clause) {
	clauses := *clausesPtr
	j := 0
	for i := 0; i < len(clauses); i++ {
		if clauses[i].Simplify(s) {
			clauses[i].Delete(s)
		} else {
			clauses[j] = clauses[i]
			j++
		}
	}
	*clausesPtr = clauses[:j]
}

// ReduceDB is the lemma-purge policy (spec.md §4.6/§9: "purge_lemmas is a
// no-op in the source; policy is unspecified"). This implements an
// activity-based policy grounded on the teacher's own ReduceDB: sort
// learnts by activity, always protect clauses that are locked (currently
// somebody's reason) or that were consulted as a conflict/reason clause
// since the previous ReduceDB pass (Clause.explainConflict/explainAssign
// mark them protected), and drop every other clause of the less active
// half, plus every other clause of the more active half whose activity is
// below the current clause-activity increment divided by the number of
// learnts. Original clauses (LBD
// 0) are never candidates: ReduceDB only ever inspects s.learnts.
//
// Protection is earned, not permanent: every surviving learnt has its
// protected flag cleared at the end of this pass, so a clause spared this
// round must be consulted again before the next pass to be spared again.
func (s *Solver) ReduceDB() {
	if len(s.learnts) == 0 {
		return
	}
	lim := s.clauseInc / float64(len(s.learnts))

	sort.Slice(s.learnts, func(i, j int) bool {
		return s.learnts[i].activity < s.learnts[j].activity
	})

	i, j := 0, 0
	for ; i < len(s.learnts)/2; i++ {
		if s.learnts[i].locked(s) || s.learnts[i].isProtected() {
			s.learnts[j] = s.learnts[i]
			j++
		} else {
			if s.lastLearnt == s.learnts[i] {
				s.lastLearnt = nil
			}
			s.learnts[i].Delete(s)
		}
	}
	for ; i < len(s.learnts); i++ {
		c := s.learnts[i]
		if c.locked(s) || c.isProtected() || c.activity >= lim {
			s.learnts[j] = c
			j++
		} else {
			if s.lastLearnt == c {
				s.lastLearnt = nil
			}
			c.Delete(s)
		}
	}
	s.learnts = s.learnts[:j]

	for _, c := range s.learnts {
		c.setUnprotected()
	}
}

func (s *Solver) decisionLevel() int { return len(s.trailLim) }

func (s *Solver) bumpClauseActivity(c *Clause) {
	c.activity += s.clauseInc
	if c.activity > 1e100 {
		s.clauseInc *= 1e-100
		for _, l := range s.learnts {
			l.activity *= 1e-100
		}
	}
}

func (s *Solver) decayClauseActivity() { s.clauseInc *= 1 / s.clauseDecay }

// bumpVarActivity implements spec.md §4.1's bump(v): add the current
// increment to v's activity, rescaling every activity down if any exceeds
// the overflow threshold.
func (s *Solver) bumpVarActivity(v int) {
	s.activity[v] += s.varInc
	if s.activity[v] > 1e100 {
		s.rescaleActivities()
	}
	s.order.Bump(v)
}

func (s *Solver) rescaleActivities() {
	s.varInc *= 1e-100
	for i := range s.activity {
		s.activity[i] *= 1e-100
	}
}

// decayVarActivity implements spec.md §4.1's rescale_delta(): multiply the
// bump delta by a constant factor greater than one, so that future bumps
// count for relatively more than past ones without having to touch every
// variable's activity.
func (s *Solver) decayVarActivity() { s.varInc *= 1 / s.varDecay }

// computeLBD counts the number of distinct decision levels represented
// among lits (spec.md §4.5's LBD, "Literal Block Distance"). Uses its own
// tagged-epoch scratch table, independent of the conflict-analysis
// stampBook, since it runs after minimization/backjump-level bookkeeping
// for the very same conflict has already consumed that epoch's sentinel
// bands.
func (s *Solver) computeLBD(lits []Literal) uint32 {
	s.lbdEpoch++
	if s.lbdEpoch == 0 { // overflow, vanishingly unlikely but handled
		s.lbdEpoch = 1
		for i := range s.lbdSeen {
			s.lbdSeen[i] = 0
		}
	}
	var count uint32
	for _, l := range lits {
		lev := s.level[l.VarID()]
		if lev == 0 {
			continue
		}
		if s.lbdSeen[lev] != s.lbdEpoch {
			s.lbdSeen[lev] = s.lbdEpoch
			count++
		}
	}
	if count == 0 {
		count = 1
	}
	return count
}

// Propagate advances the trail cursor until saturation or conflict,
// implementing spec.md §4.3 in full: for each newly-true literal, walk the
// watchlist of its negation, letting each clause decide (via
// Clause.Propagate) whether it stays satisfied, finds a new watch, becomes
// unit, or conflicts.
func (s *Solver) Propagate() *Clause {
	for s.propQueue.Size() > 0 {
		l := s.propQueue.Pop()

		s.tmpWatchers = append(s.tmpWatchers[:0], s.watchers[l]...)
		s.watchers[l] = s.watchers[l][:0]

		for i, w := range s.tmpWatchers {
			if s.LitValue(w.guard) == True {
				s.watchers[l] = append(s.watchers[l], w)
				continue
			}
			if w.clause.Propagate(s, l) {
				continue
			}
			// Conflict: keep the remaining watchers untouched (they are
			// still correctly registered) and stop propagation entirely.
			s.watchers[l] = append(s.watchers[l], s.tmpWatchers[i+1:]...)
			s.propQueue.Clear()
			return s.tmpWatchers[i].clause
		}
	}
	return nil
}

// enqueue implements spec.md §4.4's add_to_trail, extended with agility
// maintenance: on a new assignment, the agility counter is updated
// depending on whether the assigned polarity agrees with the saved phase.
func (s *Solver) enqueue(l Literal, from *Clause) bool {
	switch v := s.LitValue(l); v {
	case False:
		return false
	case True:
		return true
	default:
		varID := l.VarID()
		s.assigns[l] = True
		s.assigns[l.Opposite()] = False
		s.level[varID] = s.decisionLevel()
		s.reason[varID] = from
		s.trail = append(s.trail, l)
		s.propQueue.Push(l)

		want := True
		if !l.IsPositive() {
			want = False
		}
		s.agility.Update(s.phase[varID] == want)

		return true
	}
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	s.order.Undo(v)
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.reason[v] = nil
	s.level[v] = -1

	s.trail = s.trail[:len(s.trail)-1]
}

func (s *Solver) assume(l Literal) bool {
	s.trailLim = append(s.trailLim, len(s.trail))
	return s.enqueue(l, nil)
}

func (s *Solver) cancel() {
	n := len(s.trail) - s.trailLim[len(s.trailLim)-1]
	for ; n != 0; n-- {
		s.undoOne()
	}
	s.trailLim = s.trailLim[:len(s.trailLim)-1]
}

// cancelUntil implements spec.md §4.4's backjump(level). Idempotent: once
// decisionLevel() == level, calling it again is a no-op.
func (s *Solver) cancelUntil(level int) {
	for s.decisionLevel() > level {
		s.cancel()
	}
	s.propQueue.Clear()
}

func (s *Solver) saveModel() {
	model := make([]bool, s.NumVariables())
	for i := range model {
		lb := s.VarValue(i)
		if lb == Unknown {
			log.Fatal("sat: saveModel called with an incomplete assignment")
		}
		model[i] = lb == True
	}
	s.Models = append(s.Models, model)
}

func (s *Solver) printSeparator() {
	fmt.Println("c ---------------------------------------------------------------------------")
}

func (s *Solver) printSearchHeader() {
	fmt.Println("c            time     iterations      conflicts       restarts        learnts        agility")
}

func (s *Solver) printSearchStats() {
	if s.Verbosity <= 0 {
		return
	}
	fmt.Printf(
		"c %14.3fs %14d %14d %14d %14d %14.3f\n",
		time.Since(s.startTime).Seconds(),
		s.TotalIterations,
		s.TotalConflicts,
		s.TotalRestarts,
		len(s.learnts),
		s.agility.Fraction())
}
