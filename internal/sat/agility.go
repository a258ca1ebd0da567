package sat

// agility is a fixed-point exponential moving average of the recent rate of
// variable phase flips, in the shape of the teacher's sat.EMA (a small
// struct with an update method and a value accessor, held on Solver) but
// implementing the exact
// integer recurrence from the spec this solver follows rather than a
// floating-point decay: on every trail extension, the running value decays
// by 1/2^13 and, if the newly assigned polarity disagrees with the
// variable's previously saved phase, the value gains a fixed 2^19 bump.
// Interpreted as a fraction in [0, 1) by dividing by 2^32, a low agility
// means the search keeps re-confirming old phases and is a signal to
// restart.
type agility struct {
	value uint32
}

const (
	agilityDecayShift = 13
	agilityBump       = 1 << 19
)

// Update advances the agility counter given whether the literal just placed
// on the trail agrees with the variable's saved phase.
func (a *agility) Update(agreesWithPhase bool) {
	a.value -= a.value >> agilityDecayShift
	if !agreesWithPhase {
		a.value += agilityBump
	}
}

// Fraction returns the agility as a value in [0, 1).
func (a *agility) Fraction() float64 {
	return float64(a.value) / (1 << 32)
}
