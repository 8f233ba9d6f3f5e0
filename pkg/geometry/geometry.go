// Package geometry defines the normalized coordinate model for field
// placement.
//
// Fields live in page-fraction space: x, y, width and height are fractions
// of the rendered page (0 to 1), independent of zoom or render resolution.
// Pixel geometry is view-dependent and is always derived from the current
// page dimensions at the moment of use. The wire format on the network
// boundary is pixel-valued; conversion happens exactly once at that
// boundary.
package geometry

// MinSize is the smallest normalized width/height a field may have.
const MinSize = 0.01

// Default page pixel dimensions, used when the real page geometry was
// never established (e.g. the PDF has not rendered yet).
const (
	DefaultPageWidth  = 600.0
	DefaultPageHeight = 800.0
)

// Rect is a field rectangle. Depending on context its values are either
// normalized page fractions or raw pixels; the conversion functions below
// are the only place the two meet.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSize is a page's pixel dimensions.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OrDefault substitutes the fixed default page dimensions for a page size
// that was never established.
func (p PageSize) OrDefault() PageSize {
	if p.Width <= 0 || p.Height <= 0 {
		return PageSize{Width: DefaultPageWidth, Height: DefaultPageHeight}
	}
	return p
}

// IsPixelValued reports whether a stored rect is pixel-valued rather than
// normalized. Mixed-origin data carries no unit tag, so this is the
// detection rule: any coordinate above 1 means the whole rect is pixels.
// A field legitimately at exactly 1.0 is indistinguishable from pixels;
// see DESIGN.md for why the heuristic is kept as-is.
func IsPixelValued(r Rect) bool {
	return r.X > 1 || r.Y > 1 || r.Width > 1 || r.Height > 1
}

// ToNormalized converts a stored rect to normalized page fractions. Rects
// already in [0,1] on every coordinate pass through unchanged.
func ToNormalized(r Rect, page PageSize) Rect {
	if !IsPixelValued(r) {
		return r
	}

	page = page.OrDefault()
	return Rect{
		X:      r.X / page.Width,
		Y:      r.Y / page.Height,
		Width:  r.Width / page.Width,
		Height: r.Height / page.Height,
	}
}

// ToPixels converts a normalized rect to pixel space for the given page.
func ToPixels(r Rect, page PageSize) Rect {
	page = page.OrDefault()
	return Rect{
		X:      r.X * page.Width,
		Y:      r.Y * page.Height,
		Width:  r.Width * page.Width,
		Height: r.Height * page.Height,
	}
}

// Clamp forces a normalized rect into bounds: size in [MinSize, 1] and
// position such that the rect stays on the page. The bool reports whether
// any value actually changed, which callers surface as a non-fatal
// geometry correction.
func Clamp(r Rect) (Rect, bool) {
	out := r

	out.Width = clamp(out.Width, MinSize, 1)
	out.Height = clamp(out.Height, MinSize, 1)
	out.X = clamp(out.X, 0, 1-out.Width)
	out.Y = clamp(out.Y, 0, 1-out.Height)

	return out, out != r
}

// ClampPoint bounds a normalized x/y position so a field of the given size
// cannot move past the page edge.
func ClampPoint(x, y, width, height float64) (float64, float64) {
	return clamp(x, 0, 1-width), clamp(y, 0, 1-height)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
