package pipeline

import (
	"context"
	"io"

	"segno/internal/config"
	"segno/internal/render"
	"segno/internal/segment"
	"segno/internal/split"
	"segno/internal/vision"
)

// Renderer prepares page images and text-layer headers for a downloaded PDF.
type Renderer interface {
	PageCount(path string) (int, error)
	RenderPages(ctx context.Context, pdfPath, outDir string) ([]render.PageImage, error)
	ExtractHeaders(path string, fraction float64) ([]render.PageHeader, error)
}

// Segmenter is the deterministic header-text part splitter.
type Segmenter interface {
	Segment(headers []render.PageHeader) segment.Result
}

// Extractor is the vision-model client surface the orchestrator consumes.
type Extractor interface {
	ExtractDocument(ctx context.Context, req vision.ExtractRequest) (vision.ExtractionResult, error)
	LabelHeaders(ctx context.Context, headerImages []string) ([]vision.HeaderLabel, error)
}

// Splitter carves the source PDF into per-part documents.
type Splitter interface {
	Split(source io.ReadSeeker, instructions []split.CuttingInstruction) ([]split.PartResult, error)
}

type defaultRenderer struct {
	inner *render.Renderer
}

// DefaultRenderer adapts the pdftoppm-backed renderer and the text-layer
// reader to the orchestrator's Renderer interface.
func DefaultRenderer(cfg *config.Config) Renderer {
	return defaultRenderer{inner: render.New(cfg)}
}

func (d defaultRenderer) PageCount(path string) (int, error) {
	return render.PageCount(path)
}

func (d defaultRenderer) RenderPages(ctx context.Context, pdfPath, outDir string) ([]render.PageImage, error) {
	return d.inner.RenderPages(ctx, pdfPath, outDir)
}

func (d defaultRenderer) ExtractHeaders(path string, fraction float64) ([]render.PageHeader, error) {
	return render.ExtractPageHeaders(path, fraction)
}
