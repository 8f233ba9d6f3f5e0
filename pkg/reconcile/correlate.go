package reconcile

import (
	"sort"

	"github.com/Ramsey-B/dahlia/pkg/models"
)

// Correlator matches the server records returned by the create phase back
// to the local fields that produced them. Creation responses carry no
// client-side correlation token, so matching has to rely on order and
// shape.
type Correlator interface {
	// Correlate returns temp id -> server id for every pair it could
	// match. Unmatched local fields keep their temp identity and will be
	// re-submitted as creations on the next save.
	Correlate(submitted []models.Field, returned []models.FieldRecord) map[string]int64
}

// OrderedCorrelator pairs the display-order-sorted submission list with
// the display-order-sorted response list positionally, accepting a pair
// only when name and type agree. A server that reorders or renames on
// create breaks the pairing for the affected fields, nothing else.
type OrderedCorrelator struct{}

func (OrderedCorrelator) Correlate(submitted []models.Field, returned []models.FieldRecord) map[string]int64 {
	recs := append([]models.FieldRecord(nil), returned...)
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].DisplayOrder < recs[j].DisplayOrder
	})

	locals := append([]models.Field(nil), submitted...)
	sort.SliceStable(locals, func(i, j int) bool {
		return locals[i].DisplayOrder < locals[j].DisplayOrder
	})

	matched := make(map[string]int64, len(locals))
	for i, f := range locals {
		if i >= len(recs) {
			break
		}
		rec := recs[i]
		if rec.ID <= 0 || rec.Name != f.Name || rec.FieldType != f.Type {
			continue
		}
		matched[f.TempID] = rec.ID
	}
	return matched
}
