package progress

// AnimationPolicy holds the easing constants. These are presentation policy,
// not backend contracts; defaults live in the config package.
type AnimationPolicy struct {
	// Damping divides the remaining distance per frame (larger = slower).
	Damping float64
	// StepFloor is the minimum advance per frame, in percentage points.
	StepFloor float64
	// Epsilon is the convergence tolerance.
	Epsilon float64
}

// StepFrame advances every displayed value one frame toward its target and
// reports whether all tracked transcripts have converged, i.e. whether the
// caller may stop scheduling frames until a new target arrives.
//
// Displayed never animates backward: a target below displayed snaps
// immediately instead of easing down.
func (t *Tracker) StepFrame(p AnimationPolicy) (converged bool) {
	for _, e := range t.entries {
		delta := e.target - e.displayed
		switch {
		case delta > p.Epsilon:
			step := delta / p.Damping
			if step < p.StepFloor {
				step = p.StepFloor
			}
			e.displayed += step
			if e.displayed > e.target {
				e.displayed = e.target
			}
		case delta < -p.Epsilon:
			e.displayed = e.target
		}
	}
	return t.Converged(p.Epsilon)
}

// SnapAll jumps every displayed value straight to its target, skipping the
// easing. Used when tracking ends and the final picture should show truth.
func (t *Tracker) SnapAll() {
	for _, e := range t.entries {
		e.displayed = e.target
	}
}

// Converged reports whether every displayed value is within eps of its target.
func (t *Tracker) Converged(eps float64) bool {
	for _, e := range t.entries {
		d := e.target - e.displayed
		if d < 0 {
			d = -d
		}
		if d > eps {
			return false
		}
	}
	return true
}
