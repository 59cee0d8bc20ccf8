// Package picker keeps one element-picker session per tab. A session waits
// for the user's click in the background and hands the picked element to a
// handler; toggling again or closing the manager ends it.
package picker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/pagecapture"
)

// Browser is the subset of the CDP client the picker drives.
type Browser interface {
	Pick(ctx context.Context, tabID string, opts pagecapture.PickerOptions) (*pagecapture.Capture, error)
	PickerOff(ctx context.Context, tabID string) (bool, error)
	PickerActive(ctx context.Context, tabID string) (bool, error)
}

// Handler receives a picked element. ctx is not cancelled when the session
// ends.
type Handler func(ctx context.Context, tabID string, capture *pagecapture.Capture) error

// Session is one active picker on one tab.
type Session struct {
	TabID     string
	StartedAt time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	stopping atomic.Bool
}

// Active reports whether the session is still waiting for a pick.
func (s *Session) Active() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done is closed when the session has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deactivate stops waiting. The overlay is removed by the manager.
func (s *Session) Deactivate() { s.cancel() }

// Status is a snapshot of a tab's picker state.
type Status struct {
	TabID     string     `json:"tab_id"`
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Manager owns the picker sessions.
type Manager struct {
	browser  Browser
	handle   Handler
	opts     pagecapture.PickerOptions
	OnChange func(active int)

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(browser Browser, handle Handler, opts pagecapture.PickerOptions) *Manager {
	return &Manager{
		browser:  browser,
		handle:   handle,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Toggle turns the picker on for tabID, or off when it is already on. It
// reports the new state.
func (m *Manager) Toggle(ctx context.Context, tabID string) (bool, error) {
	if s := m.session(tabID); s != nil {
		m.stop(ctx, s)
		return false, nil
	}

	// An overlay left behind by an earlier process counts as "on".
	active, err := m.browser.PickerActive(ctx, tabID)
	if err != nil {
		return false, err
	}
	if active {
		if _, err := m.browser.PickerOff(ctx, tabID); err != nil {
			return false, err
		}
		slog.Info("picker orphan overlay removed", "tab_id", tabID)
		return false, nil
	}

	m.start(tabID)
	return true, nil
}

// Status reports the picker state of tabID.
func (m *Manager) Status(tabID string) Status {
	s := m.session(tabID)
	if s == nil {
		return Status{TabID: tabID}
	}
	started := s.StartedAt
	return Status{TabID: tabID, Active: s.Active(), StartedAt: &started}
}

// Active lists the tabs with a running session.
func (m *Manager) Active() []Status {
	m.mu.Lock()
	out := make([]Status, 0, len(m.sessions))
	for id, s := range m.sessions {
		started := s.StartedAt
		out = append(out, Status{TabID: id, Active: true, StartedAt: &started})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// Close ends every session and waits for them to finish.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		m.stop(ctx, s)
	}
	for _, s := range sessions {
		select {
		case <-s.done:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) session(tabID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[tabID]
}

func (m *Manager) start(tabID string) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		TabID:     tabID,
		StartedAt: time.Now().UTC(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	m.mu.Lock()
	if m.sessions[tabID] != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.sessions[tabID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.changed(n)

	slog.Info("picker activated", "tab_id", tabID)
	go m.run(ctx, s)
}

func (m *Manager) run(ctx context.Context, s *Session) {
	defer m.finish(s)

	capture, err := m.browser.Pick(ctx, s.TabID, m.opts)
	if err != nil {
		// A timed out or failed pick leaves the page overlay swallowing clicks.
		if !s.stopping.Load() {
			m.removeOverlay(context.WithoutCancel(ctx), s.TabID)
		}
		if isCancelled(err) {
			slog.Info("picker cancelled", "tab_id", s.TabID)
			return
		}
		slog.Warn("picker failed", "tab_id", s.TabID, "error", err)
		return
	}

	slog.Info("picker element picked", "tab_id", s.TabID, "url", capture.URL)
	if err := m.handle(context.WithoutCancel(ctx), s.TabID, capture); err != nil {
		slog.Warn("picker handler failed", "tab_id", s.TabID, "error", err)
	}
}

func (m *Manager) finish(s *Session) {
	s.cancel()
	m.mu.Lock()
	if m.sessions[s.TabID] == s {
		delete(m.sessions, s.TabID)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	m.changed(n)
	close(s.done)
}

// stop removes the overlay, which settles the pending pick, then cancels
// the wait.
func (m *Manager) stop(ctx context.Context, s *Session) {
	s.stopping.Store(true)
	m.removeOverlay(ctx, s.TabID)
	s.Deactivate()
	slog.Info("picker deactivated", "tab_id", s.TabID)
}

func (m *Manager) removeOverlay(ctx context.Context, tabID string) {
	if _, err := m.browser.PickerOff(ctx, tabID); err != nil {
		slog.Warn("picker overlay removal failed", "tab_id", tabID, "error", err)
	}
}

func (m *Manager) changed(n int) {
	if m.OnChange != nil {
		m.OnChange(n)
	}
}

func isCancelled(err error) bool {
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		return coded.Code == cdpcontrol.CodePickCancelled
	}
	return errors.Is(err, context.Canceled)
}
