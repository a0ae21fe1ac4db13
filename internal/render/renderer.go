package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"segno/internal/config"
)

// PageImage holds the rendered artifacts for one page: the full page image
// and a crop of the header band used for part labeling.
type PageImage struct {
	Page       int // 1-based
	ImagePath  string
	HeaderPath string
}

// Renderer rasterizes PDF pages with pdftoppm.
type Renderer struct {
	binary         string
	dpi            int
	headerFraction float64
}

// New builds a renderer from the configuration.
func New(cfg *config.Config) *Renderer {
	return &Renderer{
		binary:         cfg.PdftoppmBinary(),
		dpi:            cfg.Render.DPI,
		headerFraction: cfg.Render.HeaderCropFraction,
	}
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

// RenderPages rasterizes every page of the PDF at pdfPath into outDir and
// returns one PageImage per page, in page order.
func (r *Renderer) RenderPages(ctx context.Context, pdfPath, outDir string) ([]PageImage, error) {
	pdfCtx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	dims, err := pdfCtx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("pdf %q has no pages", pdfPath)
	}

	images := make([]PageImage, 0, len(dims))
	for i, dim := range dims {
		page := i + 1
		fullPrefix := filepath.Join(outDir, fmt.Sprintf("page-%03d", page))
		headerPrefix := filepath.Join(outDir, fmt.Sprintf("header-%03d", page))

		if err := r.run(ctx, pdfPath, page, fullPrefix, nil); err != nil {
			return nil, err
		}

		widthPx := int(dim.Width / 72 * float64(r.dpi))
		cropPx := int(dim.Height / 72 * float64(r.dpi) * r.headerFraction)
		crop := []string{
			"-x", "0",
			"-y", "0",
			"-W", strconv.Itoa(widthPx),
			"-H", strconv.Itoa(cropPx),
		}
		if err := r.run(ctx, pdfPath, page, headerPrefix, crop); err != nil {
			return nil, err
		}

		images = append(images, PageImage{
			Page:       page,
			ImagePath:  fullPrefix + ".png",
			HeaderPath: headerPrefix + ".png",
		})
	}
	return images, nil
}

func (r *Renderer) run(ctx context.Context, pdfPath string, page int, prefix string, extra []string) error {
	args := []string{
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
	}
	args = append(args, extra...)
	args = append(args, pdfPath, prefix)

	cmd := exec.CommandContext(ctx, r.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(string(output)))
	}
	if _, err := os.Stat(prefix + ".png"); err != nil {
		return fmt.Errorf("pdftoppm page %d produced no output at %s.png", page, prefix)
	}
	return nil
}
