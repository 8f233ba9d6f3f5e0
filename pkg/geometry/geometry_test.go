package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPixelValuedDetection(t *testing.T) {
	assert.False(t, IsPixelValued(Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05}))
	assert.True(t, IsPixelValued(Rect{X: 120, Y: 240, Width: 180, Height: 40}))

	// One coordinate above 1 flips the whole rect to pixels
	assert.True(t, IsPixelValued(Rect{X: 0.5, Y: 1.5, Width: 0.2, Height: 0.1}))

	// Exactly 1.0 everywhere still reads as normalized
	assert.False(t, IsPixelValued(Rect{X: 0, Y: 0, Width: 1, Height: 1}))
}

func TestToNormalizedConvertsPixels(t *testing.T) {
	page := PageSize{Width: 600, Height: 800}

	got := ToNormalized(Rect{X: 60, Y: 80, Width: 120, Height: 40}, page)
	assert.InDelta(t, 0.1, got.X, 1e-9)
	assert.InDelta(t, 0.1, got.Y, 1e-9)
	assert.InDelta(t, 0.2, got.Width, 1e-9)
	assert.InDelta(t, 0.05, got.Height, 1e-9)
}

func TestToNormalizedPassesThroughNormalized(t *testing.T) {
	in := Rect{X: 0.25, Y: 0.5, Width: 0.1, Height: 0.1}
	assert.Equal(t, in, ToNormalized(in, PageSize{Width: 600, Height: 800}))
}

func TestNormalizePixelsRoundTrip(t *testing.T) {
	page := PageSize{Width: 612, Height: 792}
	in := Rect{X: 0.15, Y: 0.33, Width: 0.2, Height: 0.04}

	px := ToPixels(in, page)
	back := ToNormalized(px, page)

	assert.InDelta(t, in.X, back.X, 1e-9)
	assert.InDelta(t, in.Y, back.Y, 1e-9)
	assert.InDelta(t, in.Width, back.Width, 1e-9)
	assert.InDelta(t, in.Height, back.Height, 1e-9)
}

func TestToPixelsUsesDefaultPageWhenUnset(t *testing.T) {
	got := ToPixels(Rect{X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1}, PageSize{})
	assert.InDelta(t, 300.0, got.X, 1e-9)
	assert.InDelta(t, 400.0, got.Y, 1e-9)
}

func TestClampEnforcesMinimumSize(t *testing.T) {
	got, changed := Clamp(Rect{X: 0.5, Y: 0.5, Width: 0.001, Height: 0})
	assert.True(t, changed)
	assert.Equal(t, MinSize, got.Width)
	assert.Equal(t, MinSize, got.Height)
}

func TestClampKeepsRectOnPage(t *testing.T) {
	got, changed := Clamp(Rect{X: 0.95, Y: 0.99, Width: 0.2, Height: 0.1})
	assert.True(t, changed)
	assert.InDelta(t, 0.8, got.X, 1e-9)
	assert.InDelta(t, 0.9, got.Y, 1e-9)

	// The clamped rect is always fully on the page
	assert.LessOrEqual(t, got.X+got.Width, 1.0)
	assert.LessOrEqual(t, got.Y+got.Height, 1.0)
}

func TestClampInBoundsIsUntouched(t *testing.T) {
	in := Rect{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.05}
	got, changed := Clamp(in)
	assert.False(t, changed)
	assert.Equal(t, in, got)
}

func TestClampPoint(t *testing.T) {
	x, y := ClampPoint(0.95, -0.2, 0.2, 0.1)
	assert.InDelta(t, 0.8, x, 1e-9)
	assert.InDelta(t, 0.0, y, 1e-9)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, PageSize{Width: DefaultPageWidth, Height: DefaultPageHeight}, PageSize{}.OrDefault())
	assert.Equal(t, PageSize{Width: 612, Height: 792}, PageSize{Width: 612, Height: 792}.OrDefault())
}
