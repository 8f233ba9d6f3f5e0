package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/Ramsey-B/dahlia/pkg/geometry"
)

// FieldType is the closed set of placeable field kinds.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeSignature FieldType = "signature"
	FieldTypeInitials  FieldType = "initials"
	FieldTypeDate      FieldType = "date"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeNumber    FieldType = "number"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeMultiple  FieldType = "multiple"
	FieldTypeSelect    FieldType = "select"
	FieldTypeCells     FieldType = "cells"
	FieldTypeImage     FieldType = "image"
	FieldTypeFile      FieldType = "file"
)

var fieldTypes = map[FieldType]struct{}{
	FieldTypeText:      {},
	FieldTypeSignature: {},
	FieldTypeInitials:  {},
	FieldTypeDate:      {},
	FieldTypeCheckbox:  {},
	FieldTypeNumber:    {},
	FieldTypeRadio:     {},
	FieldTypeMultiple:  {},
	FieldTypeSelect:    {},
	FieldTypeCells:     {},
	FieldTypeImage:     {},
	FieldTypeFile:      {},
}

// IsValid reports whether t is a known field type.
func (t FieldType) IsValid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Position is a field's normalized placement: page fractions plus a 1-based
// page number.
type Position struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Page         int     `json:"page"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// Rect returns the geometric part of the position.
func (p Position) Rect() geometry.Rect {
	return geometry.Rect{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
}

// WithRect returns a copy of the position with its rect replaced.
func (p Position) WithRect(r geometry.Rect) Position {
	p.X, p.Y, p.Width, p.Height = r.X, r.Y, r.Width, r.Height
	return p
}

// Field is the central editing entity. TempID is its process-local
// identity, stable for the lifetime of the session and never persisted;
// ID is the server-assigned identity, absent until the first save.
type Field struct {
	TempID       string        `json:"temp_id"`
	ID           *int64        `json:"id,omitempty"`
	Name         string        `json:"name"`
	Type         FieldType     `json:"field_type"`
	Required     bool          `json:"required"`
	Partner      string        `json:"partner"`
	Position     Position      `json:"position"`
	Options      *FieldOptions `json:"options,omitempty"`
	DisplayOrder int           `json:"display_order"`
}

// Persisted reports whether the field has a server-assigned identity.
func (f Field) Persisted() bool {
	return f.ID != nil
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	out := f
	if f.ID != nil {
		id := *f.ID
		out.ID = &id
	}
	if f.Position.DefaultValue != nil {
		v := *f.Position.DefaultValue
		out.Position.DefaultValue = &v
	}
	if f.Options != nil {
		out.Options = f.Options.Clone()
	}
	return out
}

// ServerTempID is the temp identity assigned to server-origin fields at
// initialization, and reassigned to created fields after reconciliation.
func ServerTempID(id int64) string {
	return fmt.Sprintf("field-%d", id)
}

// NewTempID generates the temp identity for a freshly drawn field.
func NewTempID() string {
	return fmt.Sprintf("new-%d", time.Now().UnixNano())
}

// DuplicateTempID generates the temp identity for a duplicated field. The
// random suffix keeps rapid duplications of the same source distinct.
func DuplicateTempID() string {
	return fmt.Sprintf("field-%d-%d", time.Now().UnixNano(), rand.Intn(1000))
}
