package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptionsFor(t *testing.T) {
	cells := DefaultOptionsFor(FieldTypeCells)
	require.NotNil(t, cells)
	assert.Equal(t, DefaultCellsColumns, cells.Columns)
	assert.Len(t, cells.Widths, DefaultCellsColumns)

	radio := DefaultOptionsFor(FieldTypeRadio)
	require.NotNil(t, radio)
	assert.Equal(t, []string{"Option 1", "Option 2"}, radio.Options)

	// Types without option payloads get nil
	assert.Nil(t, DefaultOptionsFor(FieldTypeText))
	assert.Nil(t, DefaultOptionsFor(FieldTypeSignature))
}

func TestBackfillOptionsStoredValuesWin(t *testing.T) {
	stored := &FieldOptions{Options: []string{"Yes", "No"}}
	merged := BackfillOptions(FieldTypeRadio, stored)
	require.NotNil(t, merged)
	assert.Equal(t, []string{"Yes", "No"}, merged.Options)
}

func TestBackfillOptionsFillsGaps(t *testing.T) {
	merged := BackfillOptions(FieldTypeSelect, nil)
	require.NotNil(t, merged)
	assert.Len(t, merged.Options, 3)

	// A cells field with a stored column count keeps it but gets widths
	// regenerated when the stored widths don't line up
	cells := BackfillOptions(FieldTypeCells, &FieldOptions{Columns: 5})
	require.NotNil(t, cells)
	assert.Equal(t, 5, cells.Columns)
	assert.Len(t, cells.Widths, 5)
}

func TestBackfillOptionsNoPayloadTypes(t *testing.T) {
	assert.Nil(t, BackfillOptions(FieldTypeText, nil))

	// Stored options on a no-payload type pass through untouched
	stored := &FieldOptions{DefaultValue: "hello"}
	assert.Equal(t, stored, BackfillOptions(FieldTypeText, stored))
}

func TestUniformWidths(t *testing.T) {
	widths := UniformWidths(4)
	require.Len(t, widths, 4)
	sum := 0.0
	for _, w := range widths {
		assert.InDelta(t, 0.25, w, 1e-9)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	assert.Len(t, UniformWidths(0), 1)
}

func TestFieldOptionsEqual(t *testing.T) {
	a := &FieldOptions{Options: []string{"A", "B"}, Columns: 2, Widths: []float64{0.5, 0.5}}
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Widths[0] = 0.4
	assert.False(t, a.Equal(b))

	var none *FieldOptions
	assert.True(t, none.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestFieldCloneIsDeep(t *testing.T) {
	id := int64(7)
	def := "x"
	f := Field{
		TempID:   ServerTempID(id),
		ID:       &id,
		Name:     "text_1",
		Type:     FieldTypeCells,
		Position: Position{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05, Page: 1, DefaultValue: &def},
		Options:  &FieldOptions{Columns: 3, Widths: []float64{0.3, 0.3, 0.4}},
	}

	c := f.Clone()
	*c.ID = 99
	*c.Position.DefaultValue = "y"
	c.Options.Widths[0] = 0.9

	assert.Equal(t, int64(7), *f.ID)
	assert.Equal(t, "x", *f.Position.DefaultValue)
	assert.Equal(t, 0.3, f.Options.Widths[0])
}

func TestFieldTypeIsValid(t *testing.T) {
	assert.True(t, FieldTypeSignature.IsValid())
	assert.True(t, FieldTypeCells.IsValid())
	assert.False(t, FieldType("hologram").IsValid())
	assert.False(t, FieldType("").IsValid())
}
