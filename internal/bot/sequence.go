package bot

import (
	"context"
	"fmt"
	"log"
)

// hitsPerTree is how many axe swings fell one tree in Sunflower Land.
const hitsPerTree = 3

// ClickSurface delivers one synchronous click at a world coordinate.
// Three calls are three independent clicks; there is no debounce and
// no read-back of the in-game effect.
type ClickSurface interface {
	Click(ctx context.Context, x, y int) error
}

// Sequencer turns a positive decision into the strict click order:
// one purchase click at the store, then three clicks per target
// coordinate before moving to the next. It never retries, skips or
// reorders; the first delivery failure aborts the remainder.
type Sequencer struct {
	Surface ClickSurface
	Logger  *log.Logger
}

// Run dispatches the full sequence for the given store and targets.
// It returns the clicks that were successfully delivered, in order.
// On failure the error wraps ErrInteractionFailed and the returned
// slice shows how far the sequence got.
func (s *Sequencer) Run(ctx context.Context, store Coordinate, targets []Coordinate) ([]Click, error) {
	dispatched := make([]Click, 0, 1+hitsPerTree*len(targets))

	s.logf("[SEQUENCE] buying axes at store (%d,%d)", store.X, store.Y)
	if err := s.Surface.Click(ctx, store.X, store.Y); err != nil {
		return dispatched, fmt.Errorf("store click at (%d,%d): %w: %w", store.X, store.Y, ErrInteractionFailed, err)
	}
	dispatched = append(dispatched, Click{Kind: ClickStore, X: store.X, Y: store.Y})

	for _, target := range targets {
		s.logf("[SEQUENCE] chopping tree at (%d,%d)", target.X, target.Y)
		for hit := 0; hit < hitsPerTree; hit++ {
			if err := s.Surface.Click(ctx, target.X, target.Y); err != nil {
				return dispatched, fmt.Errorf("harvest click %d at (%d,%d): %w: %w", hit+1, target.X, target.Y, ErrInteractionFailed, err)
			}
			dispatched = append(dispatched, Click{Kind: ClickHarvest, X: target.X, Y: target.Y})
		}
	}

	s.logf("[SEQUENCE] done, %d clicks dispatched", len(dispatched))
	return dispatched, nil
}

func (s *Sequencer) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
