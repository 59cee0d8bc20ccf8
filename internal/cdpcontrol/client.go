package cdpcontrol

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/domsnap/internal/pagecapture"
)

// transientHints are substrings in error causes that indicate a transient
// failure worth retrying (e.g. broken connection, closed session).
var transientHints = []string{
	"context canceled",
	"target closed",
	"session closed",
	"websocket",
	"connection reset",
	"broken pipe",
	"eof",
	"connection refused",
	"connection closed",
}

type tabSession struct {
	info      TabInfo
	mu        sync.Mutex
	sessionID string // CDP session ID from Target.attachToTarget
}

// Client evaluates page scripts on the tabs of a running browser.
type Client struct {
	cdpURL      string
	tabFilter   string
	evalTimeout time.Duration
	pickTimeout time.Duration

	mu   sync.Mutex
	cdp  *rawCDP
	tabs map[target.ID]*tabSession

	tabLocksMu sync.Mutex
	tabLocks   map[string]*sync.Mutex
}

// evalOptions tune a single evaluation.
type evalOptions struct {
	timeout     time.Duration
	exclusive   bool // hold the per-tab lock for the whole evaluation
	retry       bool
	userGesture bool
}

func NewClient(cdpURL, tabFilter string, evalTimeout, pickTimeout time.Duration) *Client {
	return &Client{
		cdpURL:      cdpURL,
		tabFilter:   strings.ToLower(strings.TrimSpace(tabFilter)),
		evalTimeout: evalTimeout,
		pickTimeout: pickTimeout,
		tabs:        make(map[target.ID]*tabSession),
		tabLocks:    make(map[string]*sync.Mutex),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.cdpURL == "" {
		return newError(CodeCDPUnavailable, "missing CDP URL", nil)
	}

	slog.Info("cdpcontrol connect start", "cdp_url", c.cdpURL)
	c.cleanupLocked()

	c.cdp = newRawCDP(c.cdpURL)
	if err := c.cdp.connect(ctx); err != nil {
		c.cdp = nil
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	if err := c.syncTabsLocked(ctx); err != nil {
		slog.Error("cdpcontrol initial tab sync failed", "error", err)
		c.cleanupLocked()
		return newError(CodeCDPUnavailable, "connect to CDP failed", err)
	}

	slog.Info("cdpcontrol connect ok", "cdp_url", c.cdpURL, "tabs", len(c.tabs))
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
	return nil
}

func (c *Client) cleanupLocked() {
	// Detach from any active sessions without closing targets.
	if c.cdp != nil {
		for targetID, session := range c.tabs {
			if session == nil {
				continue
			}
			session.mu.Lock()
			if session.sessionID != "" {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if err := c.cdp.detachFromTarget(ctx, session.sessionID); err != nil {
					slog.Debug("cdpcontrol detach cleanup failed", "target_id", targetID, "error", err)
				}
				cancel()
				session.sessionID = ""
			}
			session.mu.Unlock()
		}
		c.cdp.close()
		c.cdp = nil
	}
	c.tabs = make(map[target.ID]*tabSession)
}

// ListTabs returns the page tabs that pass the URL filter, sorted by URL.
func (c *Client) ListTabs(ctx context.Context) ([]TabInfo, error) {
	if err := c.refreshTabs(ctx); err != nil {
		slog.Warn("cdpcontrol list tabs failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	tabs := make([]TabInfo, 0, len(c.tabs))
	for _, s := range c.tabs {
		if s != nil {
			tabs = append(tabs, s.info)
		}
	}
	c.mu.Unlock()

	sort.Slice(tabs, func(i, j int) bool {
		if tabs[i].URL != tabs[j].URL {
			return tabs[i].URL < tabs[j].URL
		}
		return tabs[i].TabID < tabs[j].TabID
	})
	slog.Debug("cdpcontrol list tabs", "count", len(tabs))
	return tabs, nil
}

// CaptureSelector snapshots the first element matching selector on the tab.
func (c *Client) CaptureSelector(ctx context.Context, tabID, selector string) (*pagecapture.Capture, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, newError(CodeValidation, "selector is required", nil)
	}
	raw, err := c.evalOnTab(ctx, tabID, pagecapture.CaptureSelector(selector), evalOptions{
		timeout:   c.evalTimeout,
		exclusive: true,
		retry:     true,
	})
	if err != nil {
		return nil, err
	}
	return decodeCapture(raw)
}

// Pick installs the element picker on the tab and waits for the user to
// click an element. Escape, PickerOff or ctx cancellation end the wait with
// CodePickCancelled. The per-tab lock is not held while waiting so the
// picker can be switched off from another goroutine.
func (c *Client) Pick(ctx context.Context, tabID string, opts pagecapture.PickerOptions) (*pagecapture.Capture, error) {
	raw, err := c.evalOnTab(ctx, tabID, pagecapture.PickerInstall(opts), evalOptions{
		timeout: c.pickTimeout,
	})
	if err != nil {
		var coded *CodedError
		if errors.As(err, &coded) && coded.Code == CodeEvalTimeout {
			return nil, newError(CodePickCancelled, "no element picked before timeout", err)
		}
		if ctx.Err() != nil {
			return nil, newError(CodePickCancelled, "pick cancelled", ctx.Err())
		}
		return nil, err
	}
	return decodeCapture(raw)
}

// PickerOff removes the picker overlay from the tab. It reports whether a
// picker was active.
func (c *Client) PickerOff(ctx context.Context, tabID string) (bool, error) {
	raw, err := c.evalOnTab(ctx, tabID, pagecapture.PickerOff(), evalOptions{
		timeout:   c.evalTimeout,
		exclusive: true,
		retry:     true,
	})
	if err != nil {
		return false, err
	}
	var out struct {
		WasActive bool `json:"was_active"`
	}
	if err := decodeEnvelope(raw, &out); err != nil {
		return false, err
	}
	return out.WasActive, nil
}

// PickerActive reports whether the picker overlay is installed on the tab.
func (c *Client) PickerActive(ctx context.Context, tabID string) (bool, error) {
	raw, err := c.evalOnTab(ctx, tabID, pagecapture.PickerStatus(), evalOptions{
		timeout:   c.evalTimeout,
		exclusive: true,
		retry:     true,
	})
	if err != nil {
		return false, err
	}
	var out struct {
		Active bool `json:"active"`
	}
	if err := decodeEnvelope(raw, &out); err != nil {
		return false, err
	}
	return out.Active, nil
}

// WriteClipboard writes text to the page clipboard. Failures are returned
// as-is and never retried.
func (c *Client) WriteClipboard(ctx context.Context, tabID, text string) error {
	raw, err := c.evalOnTab(ctx, tabID, pagecapture.ClipboardWrite(text), evalOptions{
		timeout:     c.evalTimeout,
		exclusive:   true,
		userGesture: true,
	})
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, nil)
}

func decodeCapture(raw string) (*pagecapture.Capture, error) {
	capture, err := pagecapture.DecodeCapture(raw)
	if err != nil {
		return nil, mapScriptError(err)
	}
	return capture, nil
}

func decodeEnvelope(raw string, out any) error {
	return mapScriptError(pagecapture.DecodeEnvelope(raw, out))
}

// mapScriptError converts page-reported failures into coded errors.
func mapScriptError(err error) error {
	if err == nil {
		return nil
	}
	var scriptErr *pagecapture.ScriptError
	if errors.As(err, &scriptErr) {
		switch scriptErr.Code {
		case pagecapture.CodeElementNotFound:
			return newError(CodeElementNotFound, scriptErr.Message, nil)
		case pagecapture.CodePickCancelled:
			return newError(CodePickCancelled, scriptErr.Message, nil)
		case pagecapture.CodeClipboardDenied:
			return newError(CodeClipboardDenied, scriptErr.Message, nil)
		default:
			return newError(CodeEvalFailure, scriptErr.Message, nil)
		}
	}
	return newError(CodeEvalFailure, "invalid evaluation result", err)
}

func (c *Client) evalOnTab(ctx context.Context, tabID, js string, opts evalOptions) (string, error) {
	tabID = strings.TrimSpace(tabID)
	if tabID == "" {
		return "", newError(CodeValidation, "tab id is required", nil)
	}

	if opts.exclusive {
		lock := c.tabLock(tabID)
		lock.Lock()
		defer lock.Unlock()
	}

	// First attempt.
	slog.Debug("cdpcontrol eval on tab", "tab_id", tabID)
	session, err := c.resolveTabSession(ctx, tabID)
	var raw string
	if err != nil {
		slog.Warn("cdpcontrol tab resolve failed", "tab_id", tabID, "error", err)
	} else {
		raw, err = c.evalOnSession(ctx, session, js, opts)
	}
	if err == nil {
		return raw, nil
	}
	if !opts.retry || !c.shouldRetry(err) {
		return "", err
	}

	// Retry after recovery.
	slog.Warn("cdpcontrol eval retry after transient failure", "tab_id", tabID, "error", err)
	if c.asCode(err, CodeCDPUnavailable) {
		if recErr := c.reconnect(ctx); recErr != nil {
			slog.Error("cdpcontrol reconnect failed during retry", "tab_id", tabID, "error", recErr)
			return "", recErr
		}
	} else if syncErr := c.refreshTabs(ctx); syncErr != nil {
		slog.Warn("cdpcontrol tab refresh failed during retry", "tab_id", tabID, "error", syncErr)
	}

	session, err = c.resolveTabSession(ctx, tabID)
	if err != nil {
		slog.Warn("cdpcontrol tab resolve failed (retry)", "tab_id", tabID, "error", err)
		return "", err
	}
	return c.evalOnSession(ctx, session, js, opts)
}

func (c *Client) evalOnSession(ctx context.Context, session *tabSession, js string, opts evalOptions) (string, error) {
	c.mu.Lock()
	cdp := c.cdp
	c.mu.Unlock()
	if cdp == nil {
		return "", newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targetID := session.info.TabID
	sessionID, err := c.ensureSession(ctx, cdp, session, targetID)
	if err != nil {
		return "", err
	}

	evalCtx, evalCancel := context.WithTimeout(ctx, opts.timeout)
	defer evalCancel()

	raw, err := cdp.evaluate(evalCtx, sessionID, js, opts.userGesture)
	if err != nil {
		slog.Warn("cdpcontrol eval failed", "target_id", targetID, "error", err)
		// Reset session so a fresh attach happens on retry.
		session.mu.Lock()
		session.sessionID = ""
		session.mu.Unlock()

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
			return "", newError(CodeEvalTimeout, "evaluation timed out", err)
		}
		return "", newError(CodeEvalFailure, "evaluation failed", err)
	}
	return raw, nil
}

// ensureSession returns a CDP session ID for the target, attaching if needed.
func (c *Client) ensureSession(ctx context.Context, cdp *rawCDP, session *tabSession, targetID string) (string, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.sessionID != "" {
		return session.sessionID, nil
	}

	sid, err := cdp.attachToTarget(ctx, targetID)
	if err != nil {
		return "", newError(CodeCDPUnavailable, "attach to target failed", err)
	}
	session.sessionID = sid
	slog.Debug("cdpcontrol session attached", "target_id", targetID, "session_id", sid)
	return sid, nil
}

func (c *Client) resolveTabSession(ctx context.Context, tabID string) (*tabSession, error) {
	if session, found := c.lookupTabSession(tabID); found {
		return session, nil
	}

	if err := c.refreshTabs(ctx); err != nil {
		return nil, err
	}

	if session, found := c.lookupTabSession(tabID); found {
		return session, nil
	}
	return nil, newError(CodeTabNotFound, "tab not found: "+tabID, nil)
}

func (c *Client) lookupTabSession(tabID string) (*tabSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	session := c.tabs[target.ID(tabID)]
	return session, session != nil
}

func (c *Client) refreshTabs(ctx context.Context) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncTabsLocked(ctx)
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) syncTabsLocked(ctx context.Context) error {
	if c.cdp == nil {
		return newError(CodeCDPUnavailable, "CDP client not connected", nil)
	}

	targets, err := c.cdp.listTargets(ctx)
	if err != nil {
		return newError(CodeCDPUnavailable, "failed to list targets", err)
	}

	expected := make(map[target.ID]TabInfo)
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if c.tabFilter != "" && !strings.Contains(strings.ToLower(t.URL), c.tabFilter) {
			continue
		}
		expected[t.TargetID] = TabInfo{
			TabID: string(t.TargetID),
			URL:   t.URL,
			Title: t.Title,
		}
	}

	for targetID := range c.tabs {
		if _, ok := expected[targetID]; !ok {
			delete(c.tabs, targetID)
		}
	}
	for targetID, info := range expected {
		if session := c.tabs[targetID]; session != nil {
			session.info = info
			continue
		}
		c.tabs[targetID] = &tabSession{info: info}
	}

	// Prune tab locks for tabs no longer present.
	c.tabLocksMu.Lock()
	for id := range c.tabLocks {
		if _, ok := c.tabs[target.ID(id)]; !ok {
			delete(c.tabLocks, id)
		}
	}
	c.tabLocksMu.Unlock()

	slog.Debug("cdpcontrol tab sync", "targets", len(targets), "tabs", len(c.tabs))
	return nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.mu.Lock()
	connected := c.cdp != nil
	c.mu.Unlock()
	if connected {
		return nil
	}
	return c.reconnect(ctx)
}

func (c *Client) tabLock(tabID string) *sync.Mutex {
	c.tabLocksMu.Lock()
	defer c.tabLocksMu.Unlock()
	m, ok := c.tabLocks[tabID]
	if !ok {
		m = &sync.Mutex{}
		c.tabLocks[tabID] = m
	}
	return m
}

func (c *Client) shouldRetry(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}

	switch coded.Code {
	case CodeCDPUnavailable:
		return true
	case CodeEvalFailure:
		if coded.Cause == nil {
			return false
		}
		cause := strings.ToLower(coded.Cause.Error())
		for _, hint := range transientHints {
			if strings.Contains(cause, hint) {
				return true
			}
		}
	}
	return false
}

func (c *Client) asCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}
