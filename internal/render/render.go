package render

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"

	"github.com/gen2brain/go-fitz"

	"github.com/FarDust/criticat/internal/model"
)

const (
	// DefaultDPI balances legibility for the vision model against payload size.
	DefaultDPI = 200

	// DefaultJPEGQuality is the JPEG quality used for page images.
	DefaultJPEGQuality = 90

	// MimeTypeJPEG is the MIME type of rendered pages.
	MimeTypeJPEG = "image/jpeg"

	// headerWindow is how far into the file the %PDF- marker may appear.
	headerWindow = 1024
)

var pdfMagic = []byte("%PDF-")

// Renderer converts PDF bytes into PageImages.
type Renderer struct {
	dpi     float64
	quality int
	logger  *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDPI sets the render resolution. Non-positive values are ignored.
func WithDPI(dpi int) Option {
	return func(r *Renderer) {
		if dpi > 0 {
			r.dpi = float64(dpi)
		}
	}
}

// WithJPEGQuality sets the JPEG quality (1-100). Out of range values are ignored.
func WithJPEGQuality(q int) Option {
	return func(r *Renderer) {
		if q >= 1 && q <= 100 {
			r.quality = q
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		dpi:     DefaultDPI,
		quality: DefaultJPEGQuality,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render rasterizes every page of pdf in page order.
// It returns a *model.RenderError when pdf is not a PDF, cannot be parsed,
// or has no pages. Cancellation is checked between pages.
func (r *Renderer) Render(ctx context.Context, pdf []byte) ([]model.PageImage, error) {
	if len(pdf) == 0 {
		return nil, &model.RenderError{Reason: "empty input"}
	}
	if !hasPDFHeader(pdf) {
		return nil, &model.RenderError{Reason: "input is not a PDF document"}
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, &model.RenderError{Reason: "cannot open document", Err: err}
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, &model.RenderError{Reason: "document has no pages"}
	}
	r.logger.Debug("rendering document", "pages", pageCount, "dpi", r.dpi)

	pages := make([]model.PageImage, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", model.ErrCancelled, ctx.Err())
		default:
		}

		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, &model.RenderError{Reason: fmt.Sprintf("cannot render page %d", i), Err: err}
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.quality}); err != nil {
			return nil, &model.RenderError{Reason: fmt.Sprintf("cannot encode page %d", i), Err: err}
		}

		bounds := img.Bounds()
		pages = append(pages, model.PageImage{
			Index:    i,
			Data:     buf.Bytes(),
			MIMEType: MimeTypeJPEG,
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
		})
	}
	return pages, nil
}

func hasPDFHeader(b []byte) bool {
	window := b
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, pdfMagic)
}
