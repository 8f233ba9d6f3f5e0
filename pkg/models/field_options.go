package models

// FieldOptions is the per-type option payload. Choice types (radio,
// multiple, select) use Options/DefaultValue; the cells type uses
// Columns/Widths; every other type carries no options.
type FieldOptions struct {
	Options      []string  `json:"options,omitempty"`
	DefaultValue string    `json:"defaultValue,omitempty"`
	Columns      int       `json:"columns,omitempty"`
	Widths       []float64 `json:"widths,omitempty"`
}

// Clone returns a deep copy.
func (o *FieldOptions) Clone() *FieldOptions {
	if o == nil {
		return nil
	}
	out := *o
	if o.Options != nil {
		out.Options = append([]string(nil), o.Options...)
	}
	if o.Widths != nil {
		out.Widths = append([]float64(nil), o.Widths...)
	}
	return &out
}

// Equal is a deep comparison used by save-time change detection.
func (o *FieldOptions) Equal(other *FieldOptions) bool {
	if o == nil || other == nil {
		return o == other
	}
	if o.DefaultValue != other.DefaultValue || o.Columns != other.Columns {
		return false
	}
	if len(o.Options) != len(other.Options) || len(o.Widths) != len(other.Widths) {
		return false
	}
	for i, v := range o.Options {
		if other.Options[i] != v {
			return false
		}
	}
	for i, v := range o.Widths {
		if other.Widths[i] != v {
			return false
		}
	}
	return true
}

// DefaultCellsColumns is the column count a cells field starts with.
const DefaultCellsColumns = 3

// defaultOptions is the single source of truth for per-type default
// options. Types absent from the table carry no options.
var defaultOptions = map[FieldType]func() *FieldOptions{
	FieldTypeRadio: func() *FieldOptions {
		return &FieldOptions{Options: []string{"Option 1", "Option 2"}}
	},
	FieldTypeMultiple: func() *FieldOptions {
		return &FieldOptions{Options: []string{"Option 1", "Option 2", "Option 3"}}
	},
	FieldTypeSelect: func() *FieldOptions {
		return &FieldOptions{Options: []string{"Option 1", "Option 2", "Option 3"}}
	},
	FieldTypeCells: func() *FieldOptions {
		return &FieldOptions{Columns: DefaultCellsColumns, Widths: UniformWidths(DefaultCellsColumns)}
	},
}

// DefaultOptionsFor returns a fresh default option payload for the type,
// or nil for types that carry none.
func DefaultOptionsFor(t FieldType) *FieldOptions {
	ctor, ok := defaultOptions[t]
	if !ok {
		return nil
	}
	return ctor()
}

// BackfillOptions fills in missing option values for a field loaded from
// the server. Stored values win; defaults only cover the gaps, so a cells
// field with a stored column count keeps it but gets widths backfilled.
func BackfillOptions(t FieldType, stored *FieldOptions) *FieldOptions {
	def := DefaultOptionsFor(t)
	if def == nil {
		return stored
	}
	if stored == nil {
		return def
	}

	merged := stored.Clone()
	if len(merged.Options) == 0 {
		merged.Options = def.Options
	}
	if merged.Columns <= 0 {
		merged.Columns = def.Columns
	}
	if t == FieldTypeCells && len(merged.Widths) != merged.Columns {
		merged.Widths = UniformWidths(merged.Columns)
	}
	return merged
}

// UniformWidths returns n equal relative column widths.
func UniformWidths(n int) []float64 {
	if n < 1 {
		n = 1
	}
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = 1.0 / float64(n)
	}
	return widths
}
