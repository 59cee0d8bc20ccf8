// Package render captures an element from a page loaded in a throwaway
// headless Chrome driven by chromedp.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/domsnap/internal/pagecapture"
)

// Options configure the headless browser.
type Options struct {
	BrowserPath  string        // empty uses chromedp's lookup
	Width        int           // window width, default 1280
	Height       int           // window height, default 800
	WaitSelector string        // default "body"
	Settle       time.Duration // extra delay after WaitSelector is ready
	Timeout      time.Duration // whole render, default 30s
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	if strings.TrimSpace(o.WaitSelector) == "" {
		o.WaitSelector = "body"
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// evalRunner loads pageURL and returns the string result of js.
type evalRunner func(ctx context.Context, opts Options, pageURL, js string) (string, error)

// Renderer loads pages headless and captures one element per call.
type Renderer struct {
	opts Options
	run  evalRunner
}

func New(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults(), run: runChrome}
}

// Capture loads target (a URL or a local file path) and captures the first
// element matching selector.
func (r *Renderer) Capture(ctx context.Context, target, selector string) (*pagecapture.Capture, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, fmt.Errorf("render: selector is required")
	}
	pageURL, err := TargetURL(target)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	slog.Info("render start", "url", pageURL, "selector", selector)
	raw, err := r.run(ctx, r.opts, pageURL, pagecapture.CaptureSelector(selector))
	if err != nil {
		slog.Warn("render failed", "url", pageURL, "error", err)
		return nil, fmt.Errorf("render: %s: %w", pageURL, err)
	}
	capture, err := pagecapture.DecodeCapture(raw)
	if err != nil {
		return nil, fmt.Errorf("render: %s: %w", pageURL, err)
	}
	slog.Info("render ok", "url", pageURL, "duration", time.Since(start))
	return capture, nil
}

// TargetURL turns a command-line target into a URL. Paths become file URLs.
func TargetURL(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("render: target is required")
	}
	if u, err := url.Parse(target); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "file", "data", "about":
			return target, nil
		}
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("render: resolve %s: %w", target, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func runChrome(ctx context.Context, opts Options, pageURL, js string) (string, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.BrowserPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.BrowserPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	tasks := chromedp.Tasks{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(opts.WaitSelector, chromedp.ByQuery),
	}
	if opts.Settle > 0 {
		tasks = append(tasks, chromedp.Sleep(opts.Settle))
	}
	var raw string
	tasks = append(tasks, chromedp.Evaluate(js, &raw))

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return "", err
	}
	return raw, nil
}
