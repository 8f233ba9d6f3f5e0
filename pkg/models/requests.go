package models

import "github.com/Ramsey-B/dahlia/pkg/geometry"

// OpenSessionRequest opens an editor session on a template. Canvas
// dimensions may be supplied up front or later via a resize pointer event;
// PDFPath optionally points at the template document so real page geometry
// can be read instead of the fixed defaults.
type OpenSessionRequest struct {
	TemplateID   int64   `json:"template_id" validate:"required"`
	CanvasWidth  float64 `json:"canvas_width" validate:"omitempty,gt=0"`
	CanvasHeight float64 `json:"canvas_height" validate:"omitempty,gt=0"`
	PDFPath      string  `json:"pdf_path,omitempty"`
}

// SessionResponse is the session snapshot returned to the hosting page.
type SessionResponse struct {
	SessionID      string            `json:"session_id"`
	TemplateID     int64             `json:"template_id"`
	ReadOnly       bool              `json:"read_only"`
	Fields         []Field           `json:"fields"`
	Partners       []string          `json:"partners"`
	PartnerColors  map[string]string `json:"partner_colors"`
	CurrentPartner string            `json:"current_partner"`
	Page           int               `json:"page"`
	PageSize       geometry.PageSize `json:"page_size"`
}

// PointerEventRequest feeds one pointer event into the canvas engine.
type PointerEventRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=down move up"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	OnOverlay bool    `json:"on_overlay"`
	Modifier  bool    `json:"modifier"`
}

// PointerEventResponse reports what the gesture did.
type PointerEventResponse struct {
	Phase         string   `json:"phase"`
	SelectedField string   `json:"selected_field,omitempty"`
	CreatedField  *Field   `json:"created_field,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// SelectToolRequest switches the active drawing tool. An empty tool means
// the select tool.
type SelectToolRequest struct {
	Tool FieldType `json:"tool" validate:"omitempty,oneof=text signature initials date checkbox number radio multiple select cells image file"`
}

// CanvasSizeRequest updates the live canvas pixel dimensions after a
// container resize or page render.
type CanvasSizeRequest struct {
	Width  float64 `json:"width" validate:"required,gt=0"`
	Height float64 `json:"height" validate:"required,gt=0"`
	Page   int     `json:"page" validate:"omitempty,min=1"`
}

// DragFieldRequest moves an existing field to a new pixel position.
type DragFieldRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResizeFieldRequest resizes an existing field via its manipulation
// handles, in pixel space.
type ResizeFieldRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"required,gt=0"`
	Height float64 `json:"height" validate:"required,gt=0"`
}

// ColumnHandleRequest drags a cells field's column split handle to a
// position ratio within the field.
type ColumnHandleRequest struct {
	Ratio float64 `json:"ratio" validate:"required,gt=0,lte=1"`
}

// UpdateFieldRequest is a partial field update; absent values are left
// untouched.
type UpdateFieldRequest struct {
	Name     *string       `json:"name,omitempty"`
	Required *bool         `json:"required,omitempty"`
	Partner  *string       `json:"partner,omitempty"`
	Position *Position     `json:"position,omitempty"`
	Options  *FieldOptions `json:"options,omitempty"`
}

// AddPartnerRequest adds a signing party. An empty name generates the next
// ordinal one.
type AddPartnerRequest struct {
	Name string `json:"name"`
}

// RenamePartnerRequest renames a signing party everywhere it is referenced.
type RenamePartnerRequest struct {
	NewName string `json:"new_name" validate:"required"`
}

// CurrentPartnerRequest selects the default assignment target for newly
// drawn fields.
type CurrentPartnerRequest struct {
	Name string `json:"name" validate:"required"`
}

// FieldListResponse lists the session's active fields.
type FieldListResponse struct {
	Fields []Field `json:"fields"`
}

// PartnerListResponse lists the registry with its color coding.
type PartnerListResponse struct {
	Partners       []string          `json:"partners"`
	PartnerColors  map[string]string `json:"partner_colors"`
	CurrentPartner string            `json:"current_partner"`
}

// PartnerChangeResponse describes the side effects of a cascading partner
// mutation.
type PartnerChangeResponse struct {
	Partner          string   `json:"partner"`
	DeletedFields    []string `json:"deleted_fields,omitempty"`
	ReassignedFields []string `json:"reassigned_fields,omitempty"`
	CurrentPartner   string   `json:"current_partner"`
}

// SaveResponse reports a save round-trip.
type SaveResponse struct {
	Success bool `json:"success"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Deleted int  `json:"deleted"`
}
