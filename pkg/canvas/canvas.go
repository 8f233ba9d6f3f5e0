// Package canvas interprets pointer input on the page overlay as a pure
// state machine: (state, event) -> (state, effects). The reducer owns no
// fields itself; it reads the live facts it needs through Env and
// describes mutations as effects for the session to apply. This keeps
// every gesture unit-testable without a rendering surface, and keeps the
// per-pointer-move path pure arithmetic.
package canvas

import (
	"math"

	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
)

// Gesture thresholds, in pixels.
const (
	// MinDrawWidthPx / MinDrawHeightPx: a completed draw box smaller than
	// this is treated as an accidental click, not an error.
	MinDrawWidthPx  = 20.0
	MinDrawHeightPx = 5.0

	// MinColumnWidthPx bounds how many columns a cells field can be split
	// into.
	MinColumnWidthPx = 10.0
)

// Phase is the exclusive gesture state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseDrawing        Phase = "drawing"
	PhaseColumnResizing Phase = "column_resizing"
)

// Point is a pointer position in canvas pixels.
type Point struct {
	X float64
	Y float64
}

// State is the canvas interaction state. Canvas holds the live overlay
// pixel dimensions; they change on container resize, page navigation and
// initial PDF load, and every conversion reads them fresh.
type State struct {
	Phase       Phase
	Tool        models.FieldType // "" means the select tool
	LastTool    models.FieldType
	Selected    string
	Start       Point
	Current     Point
	ColumnField string
	Page        int
	Canvas      geometry.PageSize
}

// NewState returns the idle state with the text tool as the remembered
// drawing tool.
func NewState() State {
	return State{
		Phase:    PhaseIdle,
		LastTool: models.FieldTypeText,
		Page:     1,
	}
}

// Env supplies the reducer the session facts a transition depends on.
type Env struct {
	PartnerCount   int
	CurrentPartner string
	// FieldRect returns a field's normalized rect.
	FieldRect func(tempID string) (geometry.Rect, bool)
	// FieldColumns returns a cells field's current column count.
	FieldColumns func(tempID string) int
}

// Event is pointer or tool input.
type Event interface{ isEvent() }

type PointerDown struct {
	Point
	OnOverlay bool
	Modifier  bool
}

type PointerMove struct{ Point }

type PointerUp struct{ Point }

// SelectTool switches the active tool; the zero value is the select tool.
type SelectTool struct{ Tool models.FieldType }

// SelectField marks a field as selected.
type SelectField struct{ TempID string }

// SetCanvasSize records the live overlay pixel dimensions, optionally
// switching pages.
type SetCanvasSize struct {
	Width  float64
	Height float64
	Page   int
}

// GrabColumnHandle begins a column-split drag on a cells field.
type GrabColumnHandle struct{ TempID string }

func (PointerDown) isEvent()      {}
func (PointerMove) isEvent()      {}
func (PointerUp) isEvent()        {}
func (SelectTool) isEvent()       {}
func (SelectField) isEvent()      {}
func (SetCanvasSize) isEvent()    {}
func (GrabColumnHandle) isEvent() {}

// Effect describes a mutation for the session to apply.
type Effect interface{ isEffect() }

// CreateField appends a new field drawn on the canvas. Rect is normalized
// and clamped.
type CreateField struct {
	Rect    geometry.Rect
	Type    models.FieldType
	Partner string
	Page    int
}

// SetColumns re-splits a cells field into a new uniform column count.
type SetColumns struct {
	TempID  string
	Columns int
}

// Warn surfaces a user-facing validation warning; no state was mutated.
type Warn struct{ Message string }

func (CreateField) isEffect() {}
func (SetColumns) isEffect()  {}
func (Warn) isEffect()        {}

// Reduce applies one event. It never mutates its input state.
func Reduce(st State, ev Event, env Env) (State, []Effect) {
	switch e := ev.(type) {
	case SelectTool:
		st.Tool = e.Tool
		if e.Tool != "" {
			st.LastTool = e.Tool
		}
		return st, nil

	case SelectField:
		st.Selected = e.TempID
		return st, nil

	case SetCanvasSize:
		st.Canvas = geometry.PageSize{Width: e.Width, Height: e.Height}
		if e.Page > 0 {
			st.Page = e.Page
		}
		return st, nil

	case GrabColumnHandle:
		if st.Phase != PhaseIdle {
			return st, nil
		}
		st.Phase = PhaseColumnResizing
		st.ColumnField = e.TempID
		return st, nil

	case PointerDown:
		return reducePointerDown(st, e)

	case PointerMove:
		return reducePointerMove(st, e, env)

	case PointerUp:
		return reducePointerUp(st, e, env)
	}

	return st, nil
}

func reducePointerDown(st State, e PointerDown) (State, []Effect) {
	if st.Phase != PhaseIdle {
		return st, nil
	}
	if !e.OnOverlay {
		return st, nil
	}
	// The select tool only starts a draw with the modifier held.
	if st.Tool == "" && !e.Modifier {
		return st, nil
	}

	st.Phase = PhaseDrawing
	st.Start = e.Point
	st.Current = e.Point
	return st, nil
}

func reducePointerMove(st State, e PointerMove, env Env) (State, []Effect) {
	switch st.Phase {
	case PhaseDrawing:
		st.Current = e.Point
		return st, nil

	case PhaseColumnResizing:
		return st, columnEffects(st, e.Point, env)
	}

	return st, nil
}

func reducePointerUp(st State, e PointerUp, env Env) (State, []Effect) {
	switch st.Phase {
	case PhaseColumnResizing:
		st.Phase = PhaseIdle
		st.ColumnField = ""
		return st, nil

	case PhaseDrawing:
		st.Phase = PhaseIdle
		box := drawBox(st.Start, e.Point)
		if box.Width < MinDrawWidthPx || box.Height < MinDrawHeightPx {
			// Accidental click; discard without error.
			return st, nil
		}

		if env.PartnerCount == 0 {
			return st, []Effect{Warn{Message: "add a signing party before placing fields"}}
		}

		fieldType := st.Tool
		if fieldType == "" {
			fieldType = st.LastTool
		}

		canvas := st.Canvas.OrDefault()
		rect, _ := geometry.Clamp(geometry.Rect{
			X:      box.X / canvas.Width,
			Y:      box.Y / canvas.Height,
			Width:  box.Width / canvas.Width,
			Height: box.Height / canvas.Height,
		})

		// The new field becomes selected by the session once it exists;
		// the tool reverts to select either way.
		st.Tool = ""

		return st, []Effect{CreateField{
			Rect:    rect,
			Type:    fieldType,
			Partner: env.CurrentPartner,
			Page:    st.Page,
		}}
	}

	return st, nil
}

// columnEffects recomputes the implied column count from the handle's
// position ratio within the field, bounded by the minimum per-column
// pixel width.
func columnEffects(st State, p Point, env Env) []Effect {
	if env.FieldRect == nil || env.FieldColumns == nil {
		return nil
	}
	rect, ok := env.FieldRect(st.ColumnField)
	if !ok {
		return nil
	}

	px := geometry.ToPixels(rect, st.Canvas.OrDefault())
	if px.Width <= 0 {
		return nil
	}

	cols := ColumnsForRatio((p.X-px.X)/px.Width, px.Width)
	if cols == env.FieldColumns(st.ColumnField) {
		return nil
	}

	return []Effect{SetColumns{TempID: st.ColumnField, Columns: cols}}
}

// ColumnsForRatio maps a split-handle position ratio to a column count:
// round(1/ratio), with the ratio clamped so every column keeps at least
// MinColumnWidthPx and the count never drops below one.
func ColumnsForRatio(ratio, fieldWidthPx float64) int {
	minRatio := MinColumnWidthPx / fieldWidthPx
	if minRatio > 1 {
		minRatio = 1
	}
	if ratio < minRatio {
		ratio = minRatio
	}
	if ratio > 1 {
		ratio = 1
	}

	cols := int(math.Round(1 / ratio))
	if cols < 1 {
		cols = 1
	}

	maxCols := int(fieldWidthPx / MinColumnWidthPx)
	if maxCols < 1 {
		maxCols = 1
	}
	if cols > maxCols {
		cols = maxCols
	}
	return cols
}

// DragTo recomputes a field's normalized origin from a new pixel
// position, clamped so the field cannot move past the page boundary.
func DragTo(rect geometry.Rect, xPx, yPx float64, canvas geometry.PageSize) geometry.Rect {
	canvas = canvas.OrDefault()
	x, y := geometry.ClampPoint(xPx/canvas.Width, yPx/canvas.Height, rect.Width, rect.Height)
	rect.X, rect.Y = x, y
	return rect
}

// ResizeTo recomputes a field's normalized rect from new pixel geometry,
// with size floored at the minimum visible size.
func ResizeTo(xPx, yPx, wPx, hPx float64, canvas geometry.PageSize) geometry.Rect {
	canvas = canvas.OrDefault()
	rect, _ := geometry.Clamp(geometry.Rect{
		X:      xPx / canvas.Width,
		Y:      yPx / canvas.Height,
		Width:  wPx / canvas.Width,
		Height: hPx / canvas.Height,
	})
	return rect
}

func drawBox(a, b Point) geometry.Rect {
	return geometry.Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}
