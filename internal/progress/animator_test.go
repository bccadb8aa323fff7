package progress

import "testing"

func testPolicy() AnimationPolicy {
	return AnimationPolicy{Damping: 10, StepFloor: 0.8, Epsilon: 0.5}
}

// TestStepFrameConverges verifies displayed reaches target in a bounded
// number of frames and that convergence is reported so scheduling can stop.
func TestStepFrameConverges(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Apply("T1", 100)

	p := testPolicy()
	const maxFrames = 200
	frames := 0
	for ; frames < maxFrames; frames++ {
		if tr.StepFrame(p) {
			break
		}
	}
	if frames == maxFrames {
		t.Fatal("animator did not converge")
	}

	d, _ := tr.Displayed("T1")
	target, _ := tr.Target("T1")
	if diff := target - d; diff > p.Epsilon || diff < -p.Epsilon {
		t.Fatalf("displayed = %v, target = %v, outside epsilon", d, target)
	}
	if !tr.Converged(p.Epsilon) {
		t.Fatal("converged should report true after convergence")
	}
}

// TestStepFrameNeverOvershoots verifies the per-frame step clamps at target.
func TestStepFrameNeverOvershoots(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Apply("T1", 1) // distance below the step floor

	tr.StepFrame(testPolicy())
	d, _ := tr.Displayed("T1")
	if d > 1 {
		t.Fatalf("displayed = %v overshoots target 1", d)
	}
}

// TestStepFrameMinimumStep verifies small remaining distances still advance
// by the step floor rather than easing asymptotically.
func TestStepFrameMinimumStep(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Apply("T1", 3)

	p := testPolicy()
	tr.StepFrame(p)
	d, _ := tr.Displayed("T1")
	// delta/damping would be 0.3; the floor forces 0.8.
	if d != 0.8 {
		t.Fatalf("displayed = %v after one frame, want 0.8", d)
	}
}

// TestStepFrameSnapsOnRegression verifies the defensive snap: a displayed
// value above target jumps down immediately instead of animating backward.
func TestStepFrameSnapsOnRegression(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Apply("T1", 20)
	tr.entries["T1"].displayed = 40 // force a broken state

	tr.StepFrame(testPolicy())
	d, _ := tr.Displayed("T1")
	if d != 20 {
		t.Fatalf("displayed = %v, want snap to 20", d)
	}
}

// TestStepFrameResumesAfterNewTarget verifies convergence is not sticky: a
// new target makes StepFrame report unconverged again.
func TestStepFrameResumesAfterNewTarget(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Apply("T1", 5)

	p := testPolicy()
	for i := 0; i < 50 && !tr.StepFrame(p); i++ {
	}
	if !tr.Converged(p.Epsilon) {
		t.Fatal("expected convergence at 5")
	}

	tr.Apply("T1", 80)
	if tr.Converged(p.Epsilon) {
		t.Fatal("new target should break convergence")
	}
	if tr.StepFrame(p) {
		t.Fatal("single frame should not reach 80")
	}
}

// TestStepFrameMultipleTranscripts verifies convergence requires every
// tracked transcript to settle.
func TestStepFrameMultipleTranscripts(t *testing.T) {
	tr := NewTracker()
	tr.Track("T1", 0)
	tr.Track("T2", 0)
	tr.Apply("T1", 2)
	tr.Apply("T2", 90)

	p := testPolicy()
	converged := tr.StepFrame(p)
	if converged {
		t.Fatal("T2 cannot converge in one frame")
	}
	for i := 0; i < 200 && !tr.StepFrame(p); i++ {
	}
	if !tr.Converged(p.Epsilon) {
		t.Fatal("both transcripts should converge")
	}
}
