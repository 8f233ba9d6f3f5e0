package models

// WirePosition is the pixel-valued position used on the network boundary.
// Legacy records may in fact hold already-normalized values; the
// initialization reconciler sorts that out.
type WirePosition struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Page         int     `json:"page"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// FieldRecord is a field as the upstream template service stores and
// transmits it.
type FieldRecord struct {
	ID           int64         `json:"id,omitempty"`
	Name         string        `json:"name"`
	FieldType    FieldType     `json:"field_type"`
	Required     bool          `json:"required"`
	Partner      string        `json:"partner,omitempty"`
	Position     WirePosition  `json:"position"`
	Options      *FieldOptions `json:"options,omitempty"`
	DisplayOrder int           `json:"display_order"`
}

// TemplateInfo is the full template payload returned by the upstream
// template service.
type TemplateInfo struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	PageCount  int           `json:"page_count"`
	PageWidth  float64       `json:"page_width,omitempty"`
	PageHeight float64       `json:"page_height,omitempty"`
	Fields     []FieldRecord `json:"fields"`
}
