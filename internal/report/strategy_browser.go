package report

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

// BrowserStrategy prints the report HTML to PDF through a headless
// browser. It is first in the chain because it renders the canonical
// HTML with full styling fidelity.
type BrowserStrategy struct {
	timeout time.Duration
}

// NewBrowserStrategy creates the headless-browser strategy with its
// execution bound
func NewBrowserStrategy(timeout time.Duration) *BrowserStrategy {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BrowserStrategy{timeout: timeout}
}

// Name identifies the strategy in logs and aggregate errors
func (s *BrowserStrategy) Name() string {
	return "headless-browser"
}

// Render loads the document HTML into a fresh browser context and
// prints it to PDF
func (s *BrowserStrategy) Render(ctx context.Context, doc *Document) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.HTML).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "browser print failed")
	}
	if len(pdf) == 0 {
		return nil, errors.New("browser returned an empty document")
	}

	return pdf, nil
}
