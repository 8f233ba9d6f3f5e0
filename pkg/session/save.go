package session

import (
	"context"

	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/reconcile"
)

// Save validates the partner invariants and flushes the session through
// the save reconciler. Validation failures abort before anything is
// mutated, locally or remotely.
func (s *Session) Save(ctx context.Context, saver *reconcile.Saver) (models.SaveResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.ReadOnly {
		return models.SaveResponse{}, errors.NewEditorError("session is read-only").AddSession(s.ID)
	}
	if s.registry.Len() == 0 {
		return models.SaveResponse{}, errors.NewEditorError("no partners are registered").AddSession(s.ID)
	}

	// Every partner must end up with at least one field. Orphans count
	// toward the first partner since that is where auto-assignment will
	// put them; the check runs before the assignment so a failed save
	// mutates nothing.
	counts := make(map[string]int, s.registry.Len())
	for _, name := range s.registry.Names() {
		counts[name] = 0
	}
	first := s.registry.First()
	for _, f := range s.store.Active() {
		if _, ok := counts[f.Partner]; ok {
			counts[f.Partner]++
		} else {
			counts[first]++
		}
	}
	for name, n := range counts {
		if n == 0 {
			return models.SaveResponse{}, errors.NewEditorError("partner has no fields").AddPartner(name).AddSession(s.ID)
		}
	}

	if _, err := s.autoAssignOrphansLocked(); err != nil {
		return models.SaveResponse{}, err
	}

	outcome, err := saver.Save(ctx, s.TemplateID, s.store, s.page)
	if err != nil {
		return models.SaveResponse{Success: false}, err
	}

	s.dirty = false

	return models.SaveResponse{
		Success: true,
		Created: outcome.Created,
		Updated: outcome.Updated,
		Deleted: outcome.Deleted,
	}, nil
}

// DraftState returns the working state for autosave, and whether anything
// changed since the last draft write.
func (s *Session) DraftState() (fields []models.Field, partners []string, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Fields(), s.registry.Names(), s.dirty
}

// DraftSaved marks the current state as captured by the draft store.
func (s *Session) DraftSaved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}
