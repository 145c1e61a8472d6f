// Package preview renders receipt text into a PNG using headless Chrome, so
// the web UI can show what the paper will look like without printing it.
package preview

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const previewTemplate = `<!DOCTYPE html>
<html>
<head>
<style>
  body { margin: 0; background: #fff; }
  pre {
    font-family: "Courier New", monospace;
    font-size: 14px;
    line-height: 1.25;
    margin: 12px;
    white-space: pre;
  }
</style>
</head>
<body><pre>%s</pre></body>
</html>`

// Renderer produces PNG previews. Zero value is not usable; construct with
// NewRenderer so the Chrome path is probed once.
type Renderer struct {
	chromePath string
}

// NewRenderer probes for a Chrome/Chromium binary. Returns an error when none
// is found so the HTTP surface can report previews as unavailable instead of
// failing per request.
func NewRenderer() (*Renderer, error) {
	ok, path := CheckChrome()
	if !ok {
		return nil, fmt.Errorf("chrome/chromium is required for previews but was not found")
	}
	return &Renderer{chromePath: path}, nil
}

// ChromePath returns the resolved browser binary.
func (r *Renderer) ChromePath() string { return r.chromePath }

// RenderPNG converts receipt text into a full-height PNG screenshot.
func (r *Renderer) RenderPNG(ctx context.Context, receiptText string) ([]byte, error) {
	doc := fmt.Sprintf(previewTemplate, html.EscapeString(receiptText))

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.chromePath),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	cdpCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pngBytes []byte
	err := chromedp.Run(cdpCtx,
		chromedp.Navigate("data:text/html,"+urlEncode(doc)),
		chromedp.Sleep(300*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, err := page.CaptureScreenshot().
				WithCaptureBeyondViewport(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pngBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed generating preview image: %w", err)
	}
	return pngBytes, nil
}

func urlEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
