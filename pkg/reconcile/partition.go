package reconcile

import (
	"math"
	"sort"

	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/store"
)

// PositionTolerance is the per-axis threshold below which a position delta
// is treated as float noise rather than a real move.
const PositionTolerance = 0.01

// Partition splits the active fields into the three save phases. Every
// active field lands in exactly one bucket.
type Partition struct {
	ToCreate  []models.Field
	ToUpdate  []models.Field
	Unchanged []models.Field
}

// PartitionFields classifies the store's active fields against the
// last-persisted snapshot. Fields without a server id are creations;
// persisted fields whose snapshot is missing or differs are updates. The
// creation list is ordered by display order, which the identity
// correlation after the create phase depends on.
func PartitionFields(st *store.Store) Partition {
	var p Partition

	for _, f := range st.Active() {
		if f.ID == nil {
			p.ToCreate = append(p.ToCreate, f)
			continue
		}

		snap, ok := st.Snapshot(*f.ID)
		if !ok || Changed(f, snap) {
			p.ToUpdate = append(p.ToUpdate, f)
			continue
		}
		p.Unchanged = append(p.Unchanged, f)
	}

	sort.SliceStable(p.ToCreate, func(i, j int) bool {
		return p.ToCreate[i].DisplayOrder < p.ToCreate[j].DisplayOrder
	})

	return p
}

// Changed reports whether a field differs from its persisted snapshot in
// any way worth an update call.
func Changed(current, snap models.Field) bool {
	if current.Name != snap.Name ||
		current.Type != snap.Type ||
		current.Required != snap.Required ||
		current.Partner != snap.Partner {
		return true
	}

	if current.Position.Page != snap.Position.Page {
		return true
	}
	if !equalDefault(current.Position.DefaultValue, snap.Position.DefaultValue) {
		return true
	}
	if positionMoved(current.Position, snap.Position) {
		return true
	}

	return !current.Options.Equal(snap.Options)
}

func positionMoved(a, b models.Position) bool {
	return math.Abs(a.X-b.X) >= PositionTolerance ||
		math.Abs(a.Y-b.Y) >= PositionTolerance ||
		math.Abs(a.Width-b.Width) >= PositionTolerance ||
		math.Abs(a.Height-b.Height) >= PositionTolerance
}

func equalDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
