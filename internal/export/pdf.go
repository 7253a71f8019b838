package export

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	DefaultWidth      = 1400
	DefaultHeight     = 1000
	DefaultTimeoutSec = 30
)

// PDFOptions configures a headless Chromium print.
type PDFOptions struct {
	// Width and Height are the viewport in pixels used for layout.
	Width  int
	Height int

	Timeout   time.Duration
	Landscape bool
}

// ChromePrinter prints pages to PDF with chromedp.
type ChromePrinter struct {
	opts PDFOptions
}

func NewChromePrinter(opts PDFOptions) *ChromePrinter {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return &ChromePrinter{opts: opts}
}

// PrintPDF navigates to url, waits for the page to mark itself
// data-ready="true" and prints it with backgrounds, so lesson colors
// survive.
func (p *ChromePrinter) PrintPDF(parentCtx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("pdf: URL is required")
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer timeoutCancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(p.opts.Width), int64(p.opts.Height)),
		chromedp.Navigate(url),
		chromedp.WaitVisible(`[data-ready="true"]`, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(p.opts.Landscape).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("pdf: chromedp run failed: %w", err)
	}
	return pdf, nil
}
