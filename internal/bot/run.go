package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// FarmSource reads the current farm state: inventory counts plus the
// resource coordinates the player can harvest.
type FarmSource interface {
	FetchFarm(ctx context.Context, farmID, apiKey string) (FarmData, error)
}

// Surface is the browser session the sequencer clicks through. Open
// attaches a persistent session bound to a profile directory; the
// profile is exclusively owned until Close.
type Surface interface {
	Open(ctx context.Context, profileDir string) error
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, x, y int) error
	Close() error
}

// Recorder persists a finished run. Implementations must tolerate
// partial records (a failed run still carries its dispatched clicks).
type Recorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// RunRecord is the durable trace of one run, terminal on every branch.
type RunRecord struct {
	ID         string
	FarmID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Clicks     []Click
	Err        string
}

// Params are the only inputs the entry point recognizes.
type Params struct {
	FarmID     string
	APIKey     string
	ProfileDir string
	Store      Coordinate
}

// Runner wires the evaluator and sequencer to their collaborators and
// owns the browser session lifecycle. One Run is single-threaded and
// single-attempt: there is no retry edge anywhere in the state machine.
type Runner struct {
	Farm    FarmSource
	Browser Surface
	History Recorder // optional
	Logger  *log.Logger
	GameURL string
	Now     func() time.Time // test hook, defaults to time.Now
}

// Run executes one full cycle: fetch inventory, evaluate, and if the
// decision is actionable, open the browser and dispatch the click
// sequence. The browser session is only acquired on the acting branch
// and is closed on every exit path of that branch.
func (r *Runner) Run(ctx context.Context, p Params) (Outcome, error) {
	nowFn := r.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	rec := RunRecord{
		ID:        uuid.NewString(),
		FarmID:    p.FarmID,
		StartedAt: nowFn(),
	}

	r.logf("[RUN %s] fetching farm %s", rec.ID, p.FarmID)
	farm, err := r.Farm.FetchFarm(ctx, p.FarmID, p.APIKey)
	if err != nil {
		err = fmt.Errorf("fetch farm %s: %w", p.FarmID, err)
		return r.finish(ctx, nowFn, rec, OutcomeInventoryUnavailable, err)
	}

	decision := Evaluate(farm.Inventory, farm.Trees())
	r.logf("[RUN %s] axes=%d gold=%d resupply=%v targets=%d",
		rec.ID, farm.Inventory.Axes, farm.Inventory.Gold, decision.Resupply, len(decision.Targets))
	if !decision.Actionable() {
		return r.finish(ctx, nowFn, rec, OutcomeIdle, nil)
	}

	if err := r.Browser.Open(ctx, p.ProfileDir); err != nil {
		err = fmt.Errorf("open session: %w: %w", ErrInteractionFailed, err)
		return r.finish(ctx, nowFn, rec, OutcomeInteractionFailed, err)
	}
	defer func() {
		if cerr := r.Browser.Close(); cerr != nil {
			r.logf("[RUN %s] close session: %v", rec.ID, cerr)
		}
	}()

	if err := r.Browser.Navigate(ctx, r.GameURL); err != nil {
		err = fmt.Errorf("navigate %s: %w: %w", r.GameURL, ErrInteractionFailed, err)
		return r.finish(ctx, nowFn, rec, OutcomeInteractionFailed, err)
	}

	seq := &Sequencer{Surface: r.Browser, Logger: r.Logger}
	clicks, err := seq.Run(ctx, p.Store, decision.Targets)
	rec.Clicks = clicks
	if err != nil {
		return r.finish(ctx, nowFn, rec, OutcomeInteractionFailed, err)
	}
	return r.finish(ctx, nowFn, rec, OutcomeCompleted, nil)
}

func (r *Runner) finish(ctx context.Context, nowFn func() time.Time, rec RunRecord, outcome Outcome, err error) (Outcome, error) {
	rec.FinishedAt = nowFn()
	rec.Outcome = outcome
	if err != nil {
		rec.Err = err.Error()
	}
	if r.History != nil {
		if herr := r.History.RecordRun(ctx, rec); herr != nil {
			r.logf("[RUN %s] record run: %v", rec.ID, herr)
		}
	}
	r.logf("[RUN %s] outcome=%s clicks=%d", rec.ID, outcome, len(rec.Clicks))
	return outcome, err
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
