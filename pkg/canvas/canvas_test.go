package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/dahlia/pkg/geometry"
	"github.com/Ramsey-B/dahlia/pkg/models"
)

func drawEnv() Env {
	return Env{PartnerCount: 1, CurrentPartner: "First Party"}
}

func sized(st State) State {
	st.Canvas = geometry.PageSize{Width: 600, Height: 800}
	return st
}

func drag(t *testing.T, st State, env Env, from, to Point) (State, []Effect) {
	t.Helper()

	st, effects := Reduce(st, PointerDown{Point: from, OnOverlay: true}, env)
	require.Empty(t, effects)
	assert.Equal(t, PhaseDrawing, st.Phase)

	st, effects = Reduce(st, PointerMove{Point: to}, env)
	require.Empty(t, effects)

	return Reduce(st, PointerUp{Point: to}, env)
}

func TestDrawCreatesField(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeSignature}, drawEnv())

	st, effects := drag(t, st, drawEnv(), Point{X: 60, Y: 80}, Point{X: 180, Y: 160})

	require.Len(t, effects, 1)
	create, ok := effects[0].(CreateField)
	require.True(t, ok)
	assert.Equal(t, models.FieldTypeSignature, create.Type)
	assert.Equal(t, "First Party", create.Partner)
	assert.Equal(t, 1, create.Page)
	assert.InDelta(t, 0.1, create.Rect.X, 1e-9)
	assert.InDelta(t, 0.1, create.Rect.Y, 1e-9)
	assert.InDelta(t, 0.2, create.Rect.Width, 1e-9)
	assert.InDelta(t, 0.1, create.Rect.Height, 1e-9)

	// The tool reverts to select after a completed draw
	assert.Equal(t, models.FieldType(""), st.Tool)
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestTinyDrawIsDiscardedSilently(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())

	// 15x3 px is under both thresholds: an accidental click
	st, effects := drag(t, st, drawEnv(), Point{X: 100, Y: 100}, Point{X: 115, Y: 103})

	assert.Empty(t, effects)
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestDrawWidthAndHeightThresholdsAreIndependent(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())

	// Wide enough but too short
	_, effects := drag(t, st, drawEnv(), Point{X: 100, Y: 100}, Point{X: 140, Y: 103})
	assert.Empty(t, effects)

	// 25x10 px clears both
	st = sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())
	_, effects = drag(t, st, drawEnv(), Point{X: 100, Y: 100}, Point{X: 125, Y: 110})
	assert.Len(t, effects, 1)
}

func TestDrawWithoutPartnersWarns(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())

	env := Env{PartnerCount: 0}
	_, effects := drag(t, st, env, Point{X: 100, Y: 100}, Point{X: 200, Y: 150})

	require.Len(t, effects, 1)
	_, ok := effects[0].(Warn)
	assert.True(t, ok)
}

func TestSelectToolWithoutModifierDoesNotDraw(t *testing.T) {
	st := sized(NewState())

	st, _ = Reduce(st, PointerDown{Point: Point{X: 100, Y: 100}, OnOverlay: true}, drawEnv())
	assert.Equal(t, PhaseIdle, st.Phase)

	// With the modifier held the select tool draws using the last tool
	st, _ = Reduce(st, PointerDown{Point: Point{X: 100, Y: 100}, OnOverlay: true, Modifier: true}, drawEnv())
	require.Equal(t, PhaseDrawing, st.Phase)

	st, effects := Reduce(st, PointerUp{Point: Point{X: 200, Y: 150}}, drawEnv())
	require.Len(t, effects, 1)
	create := effects[0].(CreateField)
	assert.Equal(t, models.FieldTypeText, create.Type)
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestPointerDownOffOverlayIsIgnored(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())

	st, _ = Reduce(st, PointerDown{Point: Point{X: 100, Y: 100}}, drawEnv())
	assert.Equal(t, PhaseIdle, st.Phase)
}

func TestReversedDragNormalizes(t *testing.T) {
	st := sized(NewState())
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeText}, drawEnv())

	// Dragging up-left still produces a positive-size box
	_, effects := drag(t, st, drawEnv(), Point{X: 180, Y: 160}, Point{X: 60, Y: 80})
	require.Len(t, effects, 1)
	create := effects[0].(CreateField)
	assert.InDelta(t, 0.1, create.Rect.X, 1e-9)
	assert.InDelta(t, 0.2, create.Rect.Width, 1e-9)
}

func TestSelectToolRemembersLastTool(t *testing.T) {
	st := NewState()
	st, _ = Reduce(st, SelectTool{Tool: models.FieldTypeDate}, drawEnv())
	st, _ = Reduce(st, SelectTool{Tool: ""}, drawEnv())

	assert.Equal(t, models.FieldType(""), st.Tool)
	assert.Equal(t, models.FieldTypeDate, st.LastTool)
}

func TestColumnResizeGesture(t *testing.T) {
	env := drawEnv()
	fieldRect := geometry.Rect{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.05}
	env.FieldRect = func(string) (geometry.Rect, bool) { return fieldRect, true }
	cols := 3
	env.FieldColumns = func(string) int { return cols }

	st := sized(NewState())
	st, _ = Reduce(st, GrabColumnHandle{TempID: "field-1"}, env)
	require.Equal(t, PhaseColumnResizing, st.Phase)

	// Field spans 60..360 px; handle at a third of the width keeps 3
	// columns, so no effect fires
	st, effects := Reduce(st, PointerMove{Point: Point{X: 160, Y: 100}}, env)
	assert.Empty(t, effects)

	// Handle at half the width implies 2 columns
	st, effects = Reduce(st, PointerMove{Point: Point{X: 210, Y: 100}}, env)
	require.Len(t, effects, 1)
	set := effects[0].(SetColumns)
	assert.Equal(t, 2, set.Columns)

	st, effects = Reduce(st, PointerUp{Point: Point{X: 210, Y: 100}}, env)
	assert.Empty(t, effects)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "", st.ColumnField)
}

func TestColumnsForRatio(t *testing.T) {
	assert.Equal(t, 3, ColumnsForRatio(0.33, 300))
	assert.Equal(t, 2, ColumnsForRatio(0.5, 300))
	assert.Equal(t, 1, ColumnsForRatio(1.0, 300))
	assert.Equal(t, 1, ColumnsForRatio(2.5, 300))

	// The minimum column width bounds the count for narrow fields
	assert.LessOrEqual(t, ColumnsForRatio(0.01, 50), 5)
	assert.Equal(t, 1, ColumnsForRatio(0.5, 8))
}

func TestSetCanvasSize(t *testing.T) {
	st := NewState()
	st, effects := Reduce(st, SetCanvasSize{Width: 900, Height: 1200, Page: 2}, drawEnv())

	assert.Empty(t, effects)
	assert.Equal(t, geometry.PageSize{Width: 900, Height: 1200}, st.Canvas)
	assert.Equal(t, 2, st.Page)

	// Page zero means "no page change"
	st, _ = Reduce(st, SetCanvasSize{Width: 450, Height: 600}, drawEnv())
	assert.Equal(t, 2, st.Page)
}

func TestDragTo(t *testing.T) {
	rect := geometry.Rect{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.1}
	canvas := geometry.PageSize{Width: 600, Height: 800}

	moved := DragTo(rect, 300, 400, canvas)
	assert.InDelta(t, 0.5, moved.X, 1e-9)
	assert.InDelta(t, 0.5, moved.Y, 1e-9)

	// Size is untouched by a drag
	assert.Equal(t, rect.Width, moved.Width)
	assert.Equal(t, rect.Height, moved.Height)

	// Dragging past the edge clamps against the page boundary
	clamped := DragTo(rect, 10000, -50, canvas)
	assert.InDelta(t, 0.8, clamped.X, 1e-9)
	assert.InDelta(t, 0.0, clamped.Y, 1e-9)
}

func TestResizeTo(t *testing.T) {
	canvas := geometry.PageSize{Width: 600, Height: 800}

	got := ResizeTo(60, 80, 120, 40, canvas)
	assert.InDelta(t, 0.1, got.X, 1e-9)
	assert.InDelta(t, 0.2, got.Width, 1e-9)

	// Collapsing a field below the minimum size floors it
	tiny := ResizeTo(60, 80, 1, 1, canvas)
	assert.Equal(t, geometry.MinSize, tiny.Width)
	assert.Equal(t, geometry.MinSize, tiny.Height)
}
