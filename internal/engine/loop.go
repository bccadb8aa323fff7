package engine

import (
	"context"
	"time"
)

// Run starts the pollers and the reconcile loop and blocks until ctx is
// cancelled. Everything funnels into one channel: poll results, adoption
// requests, and animation frames are applied by a single goroutine, so
// response ordering never matters and no engine state needs locking.
func (e *Engine) Run(ctx context.Context) {
	go e.pollRunListing(ctx)
	go e.pollRunStatus(ctx)
	go e.pollDomain(ctx)

	var frameTicker Ticker
	var frameC <-chan time.Time
	defer func() {
		if frameTicker != nil {
			frameTicker.Stop()
		}
	}()

	for {
		// The frame ticker exists only while something is animating; it is
		// torn down on convergence so an idle dashboard schedules nothing.
		if e.animating && frameTicker == nil {
			frameTicker = e.clock.NewTicker(e.cfg.Progress.FrameInterval())
			frameC = frameTicker.C()
		}
		if !e.animating && frameTicker != nil {
			frameTicker.Stop()
			frameTicker = nil
			frameC = nil
		}

		select {
		case <-ctx.Done():
			return
		case m := <-e.msgC:
			e.apply(m)
		case <-frameC:
			e.handleFrame()
		}
	}
}

// pollRunListing drives the slow, always-on run discovery cadence.
func (e *Engine) pollRunListing(ctx context.Context) {
	e.fetchRunListing(ctx)
	t := e.clock.NewTicker(e.cfg.Polling.RunListingInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			e.fetchRunListing(ctx)
		}
	}
}

func (e *Engine) fetchRunListing(ctx context.Context) {
	runs, err := e.client.ListRuns(ctx)
	if err != nil {
		// A failed poll is "no new information this cycle"; prior state stands.
		e.log.WithError(err).Warn("run listing poll failed")
		return
	}
	e.send(ctx, message{kind: msgRunListing, runs: runs})
}

// pollRunStatus drives the fast cadence. It only issues a request while a
// run is tracked; the response carries the run identity it was issued
// against so the loop can drop stale answers.
func (e *Engine) pollRunStatus(ctx context.Context) {
	t := e.clock.NewTicker(e.cfg.Polling.RunStatusInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			runID, ok := e.trackedRun()
			if !ok {
				continue
			}
			run, err := e.client.RunStatus(ctx, runID)
			if err != nil {
				e.log.WithError(err).WithField("run_id", runID).Warn("run status poll failed")
				continue
			}
			e.send(ctx, message{kind: msgRunStatus, forRunID: runID, run: run})
		}
	}
}

// pollDomain refreshes the four domain listings on the medium cadence. Each
// listing that succeeds is applied independently; one failing endpoint never
// blocks the others.
func (e *Engine) pollDomain(ctx context.Context) {
	e.fetchDomain(ctx)
	t := e.clock.NewTicker(e.cfg.Polling.DomainInterval())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			e.fetchDomain(ctx)
		}
	}
}

func (e *Engine) fetchDomain(ctx context.Context) {
	if transcripts, err := e.client.ListTranscripts(ctx); err != nil {
		e.log.WithError(err).Warn("transcript poll failed")
	} else {
		e.send(ctx, message{kind: msgTranscripts, transcripts: transcripts})
	}
	if analyses, err := e.client.ListAnalyses(ctx); err != nil {
		e.log.WithError(err).Warn("analysis poll failed")
	} else {
		e.send(ctx, message{kind: msgAnalyses, analyses: analyses})
	}
	if plans, err := e.client.ListPlans(ctx); err != nil {
		e.log.WithError(err).Warn("plan poll failed")
	} else {
		e.send(ctx, message{kind: msgPlans, plans: plans})
	}
	if workflows, err := e.client.ListWorkflows(ctx); err != nil {
		e.log.WithError(err).Warn("workflow poll failed")
	} else {
		e.send(ctx, message{kind: msgWorkflows, workflows: workflows})
	}
}

func (e *Engine) send(ctx context.Context, m message) {
	select {
	case e.msgC <- m:
	case <-ctx.Done():
	}
}
