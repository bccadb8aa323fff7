// Package engine is the pipeline progress reconciliation engine: it tracks
// the active orchestration run, folds weakly consistent poll results into
// per-transcript monotonic progress targets, and animates displayed values
// toward them. All mutable state is owned by the reconcile loop goroutine;
// readers consume published snapshots and the event feed.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"pipeline-console-go/internal/config"
	"pipeline-console-go/internal/logger"
	"pipeline-console-go/internal/orchestrator"
	"pipeline-console-go/internal/progress"
	"pipeline-console-go/internal/runstatus"
	"pipeline-console-go/internal/snapshot"
	"pipeline-console-go/internal/stage"
	"pipeline-console-go/internal/types"
)

// Snapshot is the engine's published read-only picture.
type Snapshot struct {
	Tracking    bool            `json:"tracking"`
	RunID       string          `json:"run_id,omitempty"`
	Transcripts []progress.View `json:"transcripts"`
}

// Engine reconciles run-status and domain listing polls into per-transcript
// progress. Construct with New, start with Run.
type Engine struct {
	cfg    config.Config
	log    *logrus.Entry
	client orchestrator.API
	store  *snapshot.Store
	clock  Clock
	feed   *Feed

	msgC chan message

	// Owned by the reconcile loop; never touched concurrently.
	tracking  bool
	runID     string
	tracker   *progress.Tracker
	animating bool

	pubMu     sync.RWMutex
	published Snapshot
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock injects a clock, letting tests drive tickers deterministically.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an engine. It does not poll until Run is called.
func New(cfg config.Config, client orchestrator.API, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     log.WithField("component", "engine"),
		client:  client,
		store:   snapshot.New(),
		clock:   realClock{},
		feed:    NewFeed(500),
		msgC:    make(chan message, 64),
		tracker: progress.NewTracker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the latest domain snapshots for read-only consumers.
func (e *Engine) Store() *snapshot.Store { return e.store }

// Snapshot returns the latest published progress picture.
func (e *Engine) Snapshot() Snapshot {
	e.pubMu.RLock()
	defer e.pubMu.RUnlock()
	return e.published
}

// Events returns feed entries with sequence greater than seq.
func (e *Engine) Events(seq int64) []Event { return e.feed.Since(seq) }

// StartRun asks the backend to start a pipeline run and short-circuits run
// discovery: tracking begins immediately instead of waiting for the next
// listing poll.
func (e *Engine) StartRun(ctx context.Context, transcriptIDs []string, autoApprove bool) (string, error) {
	if len(transcriptIDs) == 0 {
		return "", fmt.Errorf("start run: no transcripts selected")
	}
	runID, err := e.client.StartRun(ctx, transcriptIDs, autoApprove)
	if err != nil {
		return "", err
	}
	msg := message{kind: msgAdopt, adopt: &adoption{
		runID:         runID,
		transcriptIDs: transcriptIDs,
		userStarted:   true,
	}}
	select {
	case e.msgC <- msg:
	case <-ctx.Done():
		return runID, ctx.Err()
	}
	return runID, nil
}

type msgKind int

const (
	msgRunStatus msgKind = iota
	msgRunListing
	msgTranscripts
	msgAnalyses
	msgPlans
	msgWorkflows
	msgAdopt
)

type adoption struct {
	runID         string
	transcriptIDs []string
	userStarted   bool
}

type message struct {
	kind        msgKind
	run         types.OrchestrationRun
	forRunID    string
	runs        []types.OrchestrationRun
	transcripts []types.Transcript
	analyses    []types.Analysis
	plans       []types.Plan
	workflows   []types.Workflow
	adopt       *adoption
}

// apply dispatches one fan-in message inside the reconcile loop.
func (e *Engine) apply(m message) {
	switch m.kind {
	case msgRunStatus:
		e.handleRunStatus(m.forRunID, m.run)
	case msgRunListing:
		e.handleRunListing(m.runs)
	case msgTranscripts:
		e.store.SetTranscripts(m.transcripts)
	case msgAnalyses:
		e.store.SetAnalyses(m.analyses)
		e.reclassify()
	case msgPlans:
		e.store.SetPlans(m.plans)
		e.reclassify()
	case msgWorkflows:
		e.store.SetWorkflows(m.workflows)
		e.reclassify()
	case msgAdopt:
		e.handleAdopt(*m.adopt)
	}
}

// handleAdopt seeds tracking state for a run, either user-started or
// discovered via the run listing.
func (e *Engine) handleAdopt(a adoption) {
	if e.tracking && e.runID == a.runID {
		// Already tracking this run; just make sure its set is seeded.
		for _, id := range a.transcriptIDs {
			e.tracker.Track(id, e.cfg.Progress.StartedFloor)
		}
		e.publish()
		return
	}
	if e.tracking {
		e.log.WithFields(logrus.Fields{"old_run": e.runID, "new_run": a.runID}).
			Info("superseding tracked run")
		e.tracker.Clear()
	}
	e.tracking = true
	e.runID = a.runID
	for _, id := range a.transcriptIDs {
		e.tracker.Track(id, e.cfg.Progress.StartedFloor)
	}

	eventType := EventRunAdopted
	if a.userStarted {
		eventType = EventRunStarted
	}
	e.feed.Publish(Event{Type: eventType, RunID: a.runID, Timestamp: e.clock.Now()})
	e.log.WithFields(logrus.Fields{"run_id": a.runID, "transcripts": len(a.transcriptIDs)}).
		Info("tracking run")
	e.publish()
}

// handleRunStatus folds one run-status poll result into progress state. A
// response for a run other than the tracked one is stale and dropped; the
// merge's idempotence makes in-flight cancellation unnecessary, identity is
// the only check.
func (e *Engine) handleRunStatus(forRunID string, run types.OrchestrationRun) {
	if !e.tracking || forRunID != e.runID {
		e.log.WithField("run_id", forRunID).Debug("dropping stale run status")
		return
	}

	// A run may declare transcripts the adoption never listed; track them
	// at zero so their own evidence can move them.
	for _, id := range run.TranscriptIDs {
		if !e.tracker.Tracked(id) {
			e.tracker.Track(id, 0)
		}
	}

	sig := runstatus.Interpret(run, e.tracker.IDs())
	if sig.Percent > 0 {
		for _, id := range sig.AppliesTo {
			e.tracker.Track(id, 0)
			e.tracker.Apply(id, sig.Percent)
		}
	}
	for _, id := range sig.Floored {
		e.tracker.Track(id, 0)
		e.tracker.Apply(id, e.cfg.Progress.StartedFloor)
	}
	for _, id := range sig.Completed {
		e.tracker.Track(id, 0)
		e.tracker.Apply(id, 100)
	}
	e.publish()

	if run.Status.Terminal() {
		e.teardown(run.Status)
	}
}

// handleRunListing refreshes the run cache, adopts an active run when idle,
// and notices termination of the tracked run from a refreshed listing entry.
func (e *Engine) handleRunListing(runs []types.OrchestrationRun) {
	e.store.SetRuns(runs)

	if !e.tracking {
		for _, run := range runs {
			if run.Status.Active() {
				e.handleAdopt(adoption{runID: run.ID, transcriptIDs: run.TranscriptIDs})
				return
			}
		}
		return
	}
	for _, run := range runs {
		if run.ID == e.runID && run.Status.Terminal() {
			e.teardown(run.Status)
			return
		}
	}
}

// reclassify recomputes baselines from the current domain snapshot for every
// tracked transcript and merges them. Runs after every domain listing poll.
func (e *Engine) reclassify() {
	for _, id := range e.tracker.IDs() {
		baseline, _ := stage.Classify(id, e.store)
		e.tracker.Apply(id, baseline)
	}
	e.publish()
}

// teardown leaves tracking state: the final picture is published with
// displayed snapped to target, caches are invalidated so the next polls see
// ground truth, and the tracked set is cleared. FAILED tears down exactly
// like COMPLETED; the distinction only reaches the feed.
func (e *Engine) teardown(status types.RunStatus) {
	finished := e.runID
	// The run is over; the displayed bar shows truth instead of easing
	// against a retired tracker.
	e.tracker.SnapAll()
	final := e.tracker.Views()

	e.tracking = false
	e.runID = ""
	e.animating = false
	e.tracker.Clear()
	e.store.InvalidateAll()

	e.feed.Publish(Event{
		Type:      EventRunFinished,
		RunID:     finished,
		RunStatus: status,
		Views:     final,
		Timestamp: e.clock.Now(),
	})
	e.log.WithFields(logrus.Fields{"run_id": finished, "status": status}).Info("run finished, tracking stopped")

	e.setPublished(Snapshot{Tracking: false, Transcripts: final})
}

// handleFrame advances one animation frame and reports whether further
// frames are needed.
func (e *Engine) handleFrame() {
	converged := e.tracker.StepFrame(e.animationPolicy())
	e.animating = !converged
	e.setPublished(e.currentSnapshot())
}

func (e *Engine) animationPolicy() progress.AnimationPolicy {
	return progress.AnimationPolicy{
		Damping:   e.cfg.Progress.Damping,
		StepFloor: e.cfg.Progress.StepFloor,
		Epsilon:   e.cfg.Progress.Epsilon,
	}
}

func (e *Engine) currentSnapshot() Snapshot {
	return Snapshot{
		Tracking:    e.tracking,
		RunID:       e.runID,
		Transcripts: e.tracker.Views(),
	}
}

// publish refreshes the published snapshot after a merge, emits a progress
// event when the picture materially changed, and wakes the animator if any
// displayed value now lags its target.
func (e *Engine) publish() {
	snap := e.currentSnapshot()
	prev := e.Snapshot()
	e.setPublished(snap)

	if !viewsEqual(prev.Transcripts, snap.Transcripts) || prev.RunID != snap.RunID {
		e.feed.Publish(Event{
			Type:      EventProgress,
			RunID:     snap.RunID,
			Views:     snap.Transcripts,
			Timestamp: e.clock.Now(),
		})
	}
	if !e.tracker.Converged(e.cfg.Progress.Epsilon) {
		e.animating = true
	}
}

func (e *Engine) setPublished(snap Snapshot) {
	e.pubMu.Lock()
	e.published = snap
	e.pubMu.Unlock()
}

func viewsEqual(a, b []progress.View) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// trackedRun returns the run the status poller should query, if any.
func (e *Engine) trackedRun() (string, bool) {
	snap := e.Snapshot()
	return snap.RunID, snap.Tracking && snap.RunID != ""
}
