package bot

// Restock thresholds. Either trigger alone is enough: a full axe stash
// means chopping is cheap, a full purse means buying more is cheap.
const (
	axeRestockThreshold  = 10
	goldRestockThreshold = 500
)

// Decision is the run-level verdict derived from one snapshot.
type Decision struct {
	Resupply bool
	Targets  []Coordinate
}

// Actionable reports whether the run should touch the browser at all.
// No resupply or no known targets is the idle outcome, not an error.
func (d Decision) Actionable() bool {
	return d.Resupply && len(d.Targets) > 0
}

// Evaluate interprets an inventory snapshot against the fixed
// thresholds and collapses the raw coordinate list to distinct targets
// in first-seen order. The input list may be empty or carry duplicates
// from the farm API.
func Evaluate(snap Snapshot, coords []Coordinate) Decision {
	return Decision{
		Resupply: snap.Axes > axeRestockThreshold || snap.Gold > goldRestockThreshold,
		Targets:  dedupe(coords),
	}
}

func dedupe(coords []Coordinate) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	seen := make(map[Coordinate]struct{}, len(coords))
	out := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
