// Package reconcile converts between the upstream template service's view
// of a field set and the editor's normalized in-memory view: seeding a
// session from raw server records at load, and diffing/flushing the
// session back through the template API on save.
package reconcile

import (
	"fmt"

	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/partners"
)

// InitResult is the seeded state for a fresh editor session.
type InitResult struct {
	Fields   []models.Field
	Snapshot map[int64]models.Field
	Partners []string
	// Corrections lists non-fatal geometry clamps applied to stored
	// values. Duplicates counts records dropped by the de-duplication
	// pass.
	Corrections []string
	Duplicates  int
}

// Initialize converts raw template field records into the normalized local
// representation. Records may arrive pixel-valued or already normalized,
// may contain duplicate ids (first occurrence wins, silently), and may be
// missing type-specific options.
func Initialize(tmpl models.TemplateInfo, page geometry.PageSize) InitResult {
	result := InitResult{
		Snapshot: make(map[int64]models.Field),
	}

	seen := make(map[int64]struct{}, len(tmpl.Fields))
	var roster []string
	partnerSeen := make(map[string]struct{})

	for _, rec := range tmpl.Fields {
		if rec.ID > 0 {
			if _, dup := seen[rec.ID]; dup {
				result.Duplicates++
				continue
			}
			seen[rec.ID] = struct{}{}
		}

		field := recordToField(rec, page, &result)
		result.Fields = append(result.Fields, field)

		if field.ID != nil {
			result.Snapshot[*field.ID] = field.Clone()
		}

		if field.Partner != "" {
			if _, ok := partnerSeen[field.Partner]; !ok {
				partnerSeen[field.Partner] = struct{}{}
				roster = append(roster, field.Partner)
			}
		}
	}

	if len(roster) == 0 {
		roster = []string{partners.DefaultPartnerName}
	}
	result.Partners = roster

	return result
}

func recordToField(rec models.FieldRecord, page geometry.PageSize, result *InitResult) models.Field {
	raw := geometry.Rect{
		X:      rec.Position.X,
		Y:      rec.Position.Y,
		Width:  rec.Position.Width,
		Height: rec.Position.Height,
	}

	rect, changed := geometry.Clamp(geometry.ToNormalized(raw, page))
	if changed {
		result.Corrections = append(result.Corrections,
			fmt.Sprintf("field %d position clamped into page bounds", rec.ID))
	}

	pageNum := rec.Position.Page
	if pageNum < 1 {
		pageNum = 1
	}

	field := models.Field{
		Name:     rec.Name,
		Type:     rec.FieldType,
		Required: rec.Required,
		Partner:  rec.Partner,
		Position: models.Position{
			X:            rect.X,
			Y:            rect.Y,
			Width:        rect.Width,
			Height:       rect.Height,
			Page:         pageNum,
			DefaultValue: rec.Position.DefaultValue,
		},
		Options:      models.BackfillOptions(rec.FieldType, rec.Options),
		DisplayOrder: rec.DisplayOrder,
	}

	if rec.ID > 0 {
		id := rec.ID
		field.ID = &id
		field.TempID = models.ServerTempID(id)
	} else {
		field.TempID = models.NewTempID()
	}

	return field
}
