// Package session hosts the server-side editor sessions. A session owns
// one template's field store, partner registry and canvas state; its mutex
// stands in for the single UI thread the editing model assumes, so store
// and registry are only ever mutated under it.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/dahlia/pkg/canvas"
	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/partners"
	"github.com/Ramsey-B/dahlia/pkg/pdfinfo"
	"github.com/Ramsey-B/dahlia/pkg/store"
)

// Session is one user's editing session on a template.
type Session struct {
	mu sync.Mutex

	ID         string
	TemplateID int64
	UserID     string
	ReadOnly   bool

	store    *store.Store
	registry *partners.Registry
	canvas   canvas.State
	doc      *pdfinfo.DocumentInfo
	page     geometry.PageSize

	// initKey guards re-initialization: seeding only re-runs when the
	// template identity or page geometry changes, never on a redundant
	// open that would discard in-progress edits.
	initKey string

	lock       EditLock
	lastActive time.Time
	dirty      bool
}

func (s *Session) touch() {
	s.lastActive = time.Now()
	s.dirty = true
}

// IdleSince returns how long the session has been untouched.
func (s *Session) IdleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActive)
}

// Snapshot returns the session state for the hosting page.
func (s *Session) Snapshot() models.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.SessionResponse{
		SessionID:      s.ID,
		TemplateID:     s.TemplateID,
		ReadOnly:       s.ReadOnly,
		Fields:         s.store.Active(),
		Partners:       s.registry.Names(),
		PartnerColors:  s.registry.Colors(),
		CurrentPartner: s.registry.Current(),
		Page:           s.canvas.Page,
		PageSize:       s.page,
	}
}

// Fields returns the active field set.
func (s *Session) Fields() []models.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Active()
}

// Partners returns the registry with its color coding.
func (s *Session) Partners() models.PartnerListResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.PartnerListResponse{
		Partners:       s.registry.Names(),
		PartnerColors:  s.registry.Colors(),
		CurrentPartner: s.registry.Current(),
	}
}

// env builds the reducer's view of the session.
func (s *Session) env() canvas.Env {
	return canvas.Env{
		PartnerCount:   s.registry.Len(),
		CurrentPartner: s.registry.Current(),
		FieldRect: func(tempID string) (geometry.Rect, bool) {
			f, ok := s.store.Get(tempID)
			if !ok {
				return geometry.Rect{}, false
			}
			return f.Position.Rect(), true
		},
		FieldColumns: func(tempID string) int {
			f, ok := s.store.Get(tempID)
			if !ok || f.Options == nil {
				return 0
			}
			return f.Options.Columns
		},
	}
}

// ApplyPointer feeds one pointer event through the canvas reducer and
// applies the resulting effects to the store.
func (s *Session) ApplyPointer(req models.PointerEventRequest) (models.PointerEventResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	var ev canvas.Event
	point := canvas.Point{X: req.X, Y: req.Y}
	switch req.Kind {
	case "down":
		ev = canvas.PointerDown{Point: point, OnOverlay: req.OnOverlay, Modifier: req.Modifier}
	case "move":
		ev = canvas.PointerMove{Point: point}
	case "up":
		ev = canvas.PointerUp{Point: point}
	default:
		return models.PointerEventResponse{}, errors.NewEditorErrorf("unknown pointer event kind '%s'", req.Kind)
	}

	st, effects := canvas.Reduce(s.canvas, ev, s.env())
	s.canvas = st

	resp := models.PointerEventResponse{Phase: string(s.canvas.Phase)}
	for _, effect := range effects {
		switch e := effect.(type) {
		case canvas.CreateField:
			field := s.createField(e)
			s.canvas.Selected = field.TempID
			resp.CreatedField = &field

		case canvas.SetColumns:
			s.setColumns(e.TempID, e.Columns)

		case canvas.Warn:
			resp.Warnings = append(resp.Warnings, e.Message)
		}
	}
	resp.SelectedField = s.canvas.Selected

	return resp, nil
}

// createField materializes a draw gesture into a stored field.
func (s *Session) createField(e canvas.CreateField) models.Field {
	field := models.Field{
		TempID:   models.NewTempID(),
		Name:     s.nameFor(e.Type),
		Type:     e.Type,
		Partner:  e.Partner,
		Options:  models.DefaultOptionsFor(e.Type),
		Position: models.Position{Page: e.Page}.WithRect(e.Rect),
	}
	s.store.Append(field)

	// Append assigns the display order; read the stored shape back.
	stored, _ := s.store.Get(field.TempID)
	return stored
}

// setColumns re-splits a cells field, resetting widths to uniform.
func (s *Session) setColumns(tempID string, columns int) {
	f, ok := s.store.Get(tempID)
	if !ok {
		return
	}

	opts := f.Options.Clone()
	if opts == nil {
		opts = &models.FieldOptions{}
	}
	opts.Columns = columns
	opts.Widths = models.UniformWidths(columns)

	_, _ = s.store.Update(tempID, models.UpdateFieldRequest{Options: opts})
}

// nameFor generates the next free ordinal name for a field type.
func (s *Session) nameFor(t models.FieldType) string {
	taken := make(map[string]struct{})
	for _, f := range s.store.Fields() {
		taken[f.Name] = struct{}{}
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", t, i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// SelectTool switches the active drawing tool.
func (s *Session) SelectTool(tool models.FieldType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if tool != "" && !tool.IsValid() {
		return errors.NewEditorErrorf("unknown field type '%s'", tool)
	}
	s.canvas, _ = canvas.Reduce(s.canvas, canvas.SelectTool{Tool: tool}, s.env())
	return nil
}

// SelectField marks a field as selected.
func (s *Session) SelectField(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if _, ok := s.store.Get(tempID); !ok {
		return errors.NewEditorError("field not found").AddField(tempID).AddSession(s.ID)
	}
	s.canvas, _ = canvas.Reduce(s.canvas, canvas.SelectField{TempID: tempID}, s.env())
	return nil
}

// SetCanvasSize records the live overlay pixel dimensions.
func (s *Session) SetCanvasSize(req models.CanvasSizeRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.canvas, _ = canvas.Reduce(s.canvas, canvas.SetCanvasSize{
		Width:  req.Width,
		Height: req.Height,
		Page:   req.Page,
	}, s.env())

	if s.doc != nil && req.Page > 0 {
		s.page = s.doc.PageSize(req.Page)
	}
}

// GrabColumnHandle begins a column-split drag on a cells field.
func (s *Session) GrabColumnHandle(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(tempID)
	if !ok {
		return errors.NewEditorError("field not found").AddField(tempID).AddSession(s.ID)
	}
	if f.Type != models.FieldTypeCells {
		return errors.NewEditorError("only cells fields have column handles").AddField(tempID)
	}

	s.canvas, _ = canvas.Reduce(s.canvas, canvas.GrabColumnHandle{TempID: tempID}, s.env())
	return nil
}

// SetColumnRatio applies a column-handle position directly, outside a
// pointer gesture.
func (s *Session) SetColumnRatio(tempID string, ratio float64) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(tempID)
	if !ok {
		return models.Field{}, errors.NewEditorError("field not found").AddField(tempID).AddSession(s.ID)
	}
	if f.Type != models.FieldTypeCells {
		return models.Field{}, errors.NewEditorError("only cells fields have column handles").AddField(tempID)
	}

	px := geometry.ToPixels(f.Position.Rect(), s.canvas.Canvas.OrDefault())
	cols := canvas.ColumnsForRatio(ratio, px.Width)
	s.setColumns(tempID, cols)

	updated, _ := s.store.Get(tempID)
	return updated, nil
}

// DragField moves a field to a new pixel position.
func (s *Session) DragField(tempID string, xPx, yPx float64) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(tempID)
	if !ok {
		return models.Field{}, errors.NewEditorError("field not found").AddField(tempID).AddSession(s.ID)
	}

	rect := canvas.DragTo(f.Position.Rect(), xPx, yPx, s.canvas.Canvas)
	pos := f.Position.WithRect(rect)
	return s.store.Update(tempID, models.UpdateFieldRequest{Position: &pos})
}

// ResizeField resizes a field via its manipulation handles.
func (s *Session) ResizeField(tempID string, req models.ResizeFieldRequest) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	f, ok := s.store.Get(tempID)
	if !ok {
		return models.Field{}, errors.NewEditorError("field not found").AddField(tempID).AddSession(s.ID)
	}

	rect := canvas.ResizeTo(req.X, req.Y, req.Width, req.Height, s.canvas.Canvas)
	pos := f.Position.WithRect(rect)
	return s.store.Update(tempID, models.UpdateFieldRequest{Position: &pos})
}

// UpdateField merges a partial update. A partner change must reference a
// registered partner; position changes are clamped.
func (s *Session) UpdateField(tempID string, patch models.UpdateFieldRequest) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if patch.Partner != nil && !s.registry.Contains(*patch.Partner) {
		return models.Field{}, errors.NewEditorError("partner is not registered").
			AddPartner(*patch.Partner).AddField(tempID)
	}
	if patch.Position != nil {
		rect, _ := geometry.Clamp(patch.Position.Rect())
		clamped := patch.Position.WithRect(rect)
		patch.Position = &clamped
	}

	return s.store.Update(tempID, patch)
}

// DeleteField removes a field, marking its server id for deletion on the
// next save.
func (s *Session) DeleteField(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if _, err := s.store.Delete(tempID); err != nil {
		return err
	}
	if s.canvas.Selected == tempID {
		s.canvas.Selected = ""
	}
	return nil
}

// DuplicateField copies a field under a fresh identity and selects the
// copy.
func (s *Session) DuplicateField(tempID string) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	dup, err := s.store.Duplicate(tempID)
	if err != nil {
		return models.Field{}, err
	}
	s.canvas.Selected = dup.TempID
	return dup, nil
}

// AddPartner registers a signing party.
func (s *Session) AddPartner(name string) (models.PartnerChangeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	added, err := s.registry.Add(name)
	if err != nil {
		return models.PartnerChangeResponse{}, err
	}
	return models.PartnerChangeResponse{
		Partner:        added,
		CurrentPartner: s.registry.Current(),
	}, nil
}

// RenamePartner renames a partner and atomically rewrites every field
// referencing the old name.
func (s *Session) RenamePartner(oldName, newName string) (models.PartnerChangeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.registry.Rename(oldName, newName); err != nil {
		return models.PartnerChangeResponse{}, err
	}
	touched := s.store.ReassignPartner(oldName, newName)

	return models.PartnerChangeResponse{
		Partner:          newName,
		ReassignedFields: touched,
		CurrentPartner:   s.registry.Current(),
	}, nil
}

// RemovePartnerCascading removes a partner and deletes every field
// referencing it, reporting exactly what was removed.
func (s *Session) RemovePartnerCascading(name string) (models.PartnerChangeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.registry.Remove(name); err != nil {
		return models.PartnerChangeResponse{}, err
	}
	removed := s.store.DeleteByPartner(name)
	if ectolinq.Contains(removed, s.canvas.Selected) {
		s.canvas.Selected = ""
	}

	return models.PartnerChangeResponse{
		Partner:        name,
		DeletedFields:  removed,
		CurrentPartner: s.registry.Current(),
	}, nil
}

// SetCurrentPartner selects the default assignment target for newly drawn
// fields.
func (s *Session) SetCurrentPartner(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.registry.SetCurrent(name)
}

// AutoAssignOrphans assigns every field with a missing or unregistered
// partner to the first registry entry, reporting which fields moved.
func (s *Session) AutoAssignOrphans() (models.PartnerChangeResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.autoAssignOrphansLocked()
}

func (s *Session) autoAssignOrphansLocked() (models.PartnerChangeResponse, error) {
	first := s.registry.First()
	if first == "" {
		return models.PartnerChangeResponse{}, errors.NewEditorError("no partners are registered").AddSession(s.ID)
	}

	orphans := s.store.Orphans(s.registry.Contains)
	for _, tempID := range orphans {
		partner := first
		_, _ = s.store.Update(tempID, models.UpdateFieldRequest{Partner: &partner})
	}

	return models.PartnerChangeResponse{
		Partner:          first,
		ReassignedFields: orphans,
		CurrentPartner:   s.registry.Current(),
	}, nil
}
