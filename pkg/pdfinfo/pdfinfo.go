// Package pdfinfo reads page geometry out of template PDF documents so
// pixel conversions can use the real page aspect instead of the fixed
// defaults.
package pdfinfo

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Ramsey-B/dahlia/pkg/geometry"
)

// DocumentInfo is the page geometry of a template document.
type DocumentInfo struct {
	PageCount int
	Pages     []geometry.PageSize
}

// PageSize returns the size of a 1-based page, falling back to the default
// page when the page is unknown.
func (d *DocumentInfo) PageSize(page int) geometry.PageSize {
	if d == nil || page < 1 || page > len(d.Pages) {
		return geometry.PageSize{}.OrDefault()
	}
	return d.Pages[page-1].OrDefault()
}

// ReadFile opens a PDF and extracts its page count and per-page media box
// dimensions in points.
func ReadFile(path string) (*DocumentInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}

	info := &DocumentInfo{
		PageCount: ctx.PageCount,
		Pages:     make([]geometry.PageSize, 0, len(dims)),
	}
	for _, dim := range dims {
		info.Pages = append(info.Pages, geometry.PageSize{
			Width:  dim.Width,
			Height: dim.Height,
		})
	}
	return info, nil
}
