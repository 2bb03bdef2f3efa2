package bot

// Coordinate identifies a clickable world position by integer pair.
// Two coordinates are the same target iff both components match.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Snapshot is a point-in-time read of the farm inventory. It is never
// refreshed mid-run: the decision and the harvest list both come from
// the same snapshot.
type Snapshot struct {
	Axes int `json:"axes"`
	Gold int `json:"gold"`
}

// FarmData is everything a single farm fetch yields: the inventory
// snapshot plus the resource coordinates grouped by type. Only trees
// are harvested today, but the grouping keeps room for stones, iron
// and the rest without reshaping the API.
type FarmData struct {
	Inventory Snapshot
	Resources map[string][]Coordinate
}

// Trees returns the harvestable tree coordinates, possibly with
// duplicates straight from the API.
func (f FarmData) Trees() []Coordinate {
	return f.Resources[ResourceTrees]
}

// ResourceTrees is the resource group the harvest loop consumes.
const ResourceTrees = "trees"

// Click is one dispatched interaction, recorded in dispatch order.
type Click struct {
	Kind string `json:"kind"` // "store" or "harvest"
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

const (
	// ClickStore is the single purchase click per run.
	ClickStore = "store"
	// ClickHarvest is a tree-chopping click.
	ClickHarvest = "harvest"
)
