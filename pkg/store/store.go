// Package store holds an editor session's in-memory field collection: the
// working array keyed by temp id, the set of server ids marked for
// deletion, and the last-known-persisted snapshot used for save-time
// change detection. The snapshot is never a source of truth for rendering.
package store

import (
	"fmt"

	"github.com/Ramsey-B/dahlia/pkg/errors"
	"github.com/Ramsey-B/dahlia/pkg/models"
)

// Store is not safe for concurrent use; the owning session serializes
// access.
type Store struct {
	fields     []models.Field
	deletedIDs map[int64]struct{}
	snapshot   map[int64]models.Field
}

func New() *Store {
	return &Store{
		deletedIDs: make(map[int64]struct{}),
		snapshot:   make(map[int64]models.Field),
	}
}

// Seed replaces the working array and snapshot wholesale and clears the
// deleted set. Used by the initialization reconciler.
func (s *Store) Seed(fields []models.Field, snapshot map[int64]models.Field) {
	s.fields = make([]models.Field, len(fields))
	for i, f := range fields {
		s.fields[i] = f.Clone()
	}

	s.snapshot = make(map[int64]models.Field, len(snapshot))
	for id, f := range snapshot {
		s.snapshot[id] = f.Clone()
	}

	s.deletedIDs = make(map[int64]struct{})
}

// Fields returns a copy of the full working array, including fields whose
// server id is pending deletion.
func (s *Store) Fields() []models.Field {
	out := make([]models.Field, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Clone()
	}
	return out
}

// Active returns the fields visible to the editor: everything in the
// working array whose server id is not marked deleted.
func (s *Store) Active() []models.Field {
	out := make([]models.Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.ID != nil {
			if _, gone := s.deletedIDs[*f.ID]; gone {
				continue
			}
		}
		out = append(out, f.Clone())
	}
	return out
}

// Len returns the working array size.
func (s *Store) Len() int {
	return len(s.fields)
}

// Get looks up a field by temp id.
func (s *Store) Get(tempID string) (models.Field, bool) {
	for _, f := range s.fields {
		if f.TempID == tempID {
			return f.Clone(), true
		}
	}
	return models.Field{}, false
}

// Append adds a field to the end of the working array.
func (s *Store) Append(f models.Field) {
	f.DisplayOrder = s.nextDisplayOrder()
	s.fields = append(s.fields, f.Clone())
}

// Update merges a partial update into the field. Absent patch values leave
// the field untouched.
func (s *Store) Update(tempID string, patch models.UpdateFieldRequest) (models.Field, error) {
	for i := range s.fields {
		if s.fields[i].TempID != tempID {
			continue
		}

		f := &s.fields[i]
		if patch.Name != nil {
			f.Name = *patch.Name
		}
		if patch.Required != nil {
			f.Required = *patch.Required
		}
		if patch.Partner != nil {
			f.Partner = *patch.Partner
		}
		if patch.Position != nil {
			f.Position = *patch.Position
		}
		if patch.Options != nil {
			f.Options = patch.Options.Clone()
		}
		return f.Clone(), nil
	}

	return models.Field{}, errors.NewEditorError("field not found").AddField(tempID)
}

// Delete removes the field from the working array. A server id, if
// present, moves into the deleted set so the next save flushes the
// deletion; fields that were never persisted just disappear.
func (s *Store) Delete(tempID string) (*int64, error) {
	for i, f := range s.fields {
		if f.TempID != tempID {
			continue
		}

		s.fields = append(s.fields[:i], s.fields[i+1:]...)
		if f.ID != nil {
			id := *f.ID
			s.deletedIDs[id] = struct{}{}
			return &id, nil
		}
		return nil, nil
	}

	return nil, errors.NewEditorError("field not found").AddField(tempID)
}

// Duplicate copies a field under a fresh temp id and a name guaranteed
// unique within the working array. The copy has no server identity.
func (s *Store) Duplicate(tempID string) (models.Field, error) {
	src, ok := s.Get(tempID)
	if !ok {
		return models.Field{}, errors.NewEditorError("field not found").AddField(tempID)
	}

	dup := src.Clone()
	dup.TempID = models.DuplicateTempID()
	dup.ID = nil
	dup.Name = s.uniqueName(src.Name)
	dup.DisplayOrder = s.nextDisplayOrder()
	s.fields = append(s.fields, dup)

	return dup.Clone(), nil
}

// SetIdentity records a server-assigned identity on a field, rewriting its
// temp id to the server form.
func (s *Store) SetIdentity(tempID string, serverID int64) error {
	for i := range s.fields {
		if s.fields[i].TempID == tempID {
			id := serverID
			s.fields[i].ID = &id
			s.fields[i].TempID = models.ServerTempID(serverID)
			return nil
		}
	}
	return errors.NewEditorError("field not found").AddField(tempID)
}

// DeletedIDs returns the server ids marked for deletion but not yet
// flushed.
func (s *Store) DeletedIDs() []int64 {
	out := make([]int64, 0, len(s.deletedIDs))
	for id := range s.deletedIDs {
		out = append(out, id)
	}
	return out
}

// IsDeleted reports whether a server id is marked for deletion.
func (s *Store) IsDeleted(id int64) bool {
	_, ok := s.deletedIDs[id]
	return ok
}

// Snapshot returns the last-persisted shape for a server id.
func (s *Store) Snapshot(id int64) (models.Field, bool) {
	f, ok := s.snapshot[id]
	if !ok {
		return models.Field{}, false
	}
	return f.Clone(), true
}

// FinishSave completes a save round-trip: drops fields whose server id was
// flushed as deleted, clears the deleted set, and rebuilds the snapshot
// from the reconciled working array.
func (s *Store) FinishSave() {
	kept := s.fields[:0]
	for _, f := range s.fields {
		if f.ID != nil {
			if _, gone := s.deletedIDs[*f.ID]; gone {
				continue
			}
		}
		kept = append(kept, f)
	}
	s.fields = kept
	s.deletedIDs = make(map[int64]struct{})

	s.snapshot = make(map[int64]models.Field, len(s.fields))
	for _, f := range s.fields {
		if f.ID != nil {
			s.snapshot[*f.ID] = f.Clone()
		}
	}
}

// ReassignPartner rewrites every field referencing oldName to newName and
// returns the temp ids it touched.
func (s *Store) ReassignPartner(oldName, newName string) []string {
	var touched []string
	for i := range s.fields {
		if s.fields[i].Partner == oldName {
			s.fields[i].Partner = newName
			touched = append(touched, s.fields[i].TempID)
		}
	}
	return touched
}

// DeleteByPartner removes every field referencing the partner, collecting
// server ids into the deleted set. Returns the temp ids removed.
func (s *Store) DeleteByPartner(name string) []string {
	var removed []string
	kept := s.fields[:0]
	for _, f := range s.fields {
		if f.Partner != name {
			kept = append(kept, f)
			continue
		}
		if f.ID != nil {
			s.deletedIDs[*f.ID] = struct{}{}
		}
		removed = append(removed, f.TempID)
	}
	s.fields = kept
	return removed
}

// Orphans returns the temp ids of fields whose partner fails the validity
// check (missing or unregistered).
func (s *Store) Orphans(valid func(string) bool) []string {
	var orphans []string
	for _, f := range s.fields {
		if !valid(f.Partner) {
			orphans = append(orphans, f.TempID)
		}
	}
	return orphans
}

func (s *Store) nextDisplayOrder() int {
	next := 0
	for _, f := range s.fields {
		if f.DisplayOrder >= next {
			next = f.DisplayOrder + 1
		}
	}
	return next
}

func (s *Store) uniqueName(base string) string {
	taken := make(map[string]struct{}, len(s.fields))
	for _, f := range s.fields {
		taken[f.Name] = struct{}{}
	}

	candidate := fmt.Sprintf("%s (copy)", base)
	for i := 2; ; i++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate = fmt.Sprintf("%s (copy %d)", base, i)
	}
}
