package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/metrics"
	"github.com/dgnsrekt/domsnap/internal/pagecapture"
	"github.com/dgnsrekt/domsnap/internal/picker"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

// Browser is the subset of the CDP client the service uses.
type Browser interface {
	ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error)
	CaptureSelector(ctx context.Context, tabID, selector string) (*pagecapture.Capture, error)
}

// Pickers toggles picker sessions.
type Pickers interface {
	Toggle(ctx context.Context, tabID string) (bool, error)
	Status(tabID string) picker.Status
}

// CaptureResult is a stored capture with its serialized tree.
type CaptureResult struct {
	ID             string                `json:"id"`
	Meta           snapshot.CaptureMeta  `json:"meta"`
	Node           *prune.SerializedNode `json:"node"`
	DeliveryErrors []string              `json:"delivery_errors,omitempty"`
}

// Service captures elements from browser tabs, stores them and hands them to
// the configured sinks.
type Service struct {
	browser Browser
	pickers Pickers
	snaps   *snapshot.Store
	sinks   deliver.Sink
	metrics *metrics.Metrics
}

// NewService wires the service. sinks may be nil when nothing beyond the
// store should receive captures.
func NewService(browser Browser, snaps *snapshot.Store, sinks deliver.Sink, m *metrics.Metrics) *Service {
	return &Service{browser: browser, snaps: snaps, sinks: sinks, metrics: m}
}

// SetPickers attaches the picker manager. The manager's handler is usually
// HandlePick, so it is built after the service.
func (s *Service) SetPickers(p Pickers) { s.pickers = p }

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

func (s *Service) ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error) {
	return s.browser.ListTabs(ctx)
}

// CaptureSelector captures the first element matching selector on a tab,
// stores it, and delivers it to the sinks when deliver is set.
func (s *Service) CaptureSelector(ctx context.Context, tabID, selector string, deliver bool) (CaptureResult, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return CaptureResult{}, err
	}
	if err := s.requireNonEmpty(selector, "selector"); err != nil {
		return CaptureResult{}, err
	}
	tabID, selector = strings.TrimSpace(tabID), strings.TrimSpace(selector)

	start := time.Now()
	capture, err := s.browser.CaptureSelector(ctx, tabID, selector)
	if err != nil {
		s.metrics.ObserveCapture(snapshot.SourceSelector, outcomeOf(err), time.Since(start), 0, 0)
		return CaptureResult{}, err
	}
	return s.process(ctx, start, tabID, snapshot.SourceSelector, capture, deliver)
}

// HandlePick is the picker handler: it stores and delivers a picked element.
func (s *Service) HandlePick(ctx context.Context, tabID string, capture *pagecapture.Capture) error {
	_, err := s.process(ctx, time.Now(), tabID, snapshot.SourcePick, capture, true)
	return err
}

func (s *Service) process(ctx context.Context, start time.Time, tabID, source string, capture *pagecapture.Capture, deliverIt bool) (CaptureResult, error) {
	ser := prune.NewSerializer(prune.NewBaselineProvider(capture.Host()))
	node := ser.Serialize(capture.Root())

	r, err := deliver.NewResult(snapshot.NewID(), source, node)
	if err != nil {
		s.metrics.ObserveCapture(source, metrics.OutcomeError, time.Since(start), 0, 0)
		return CaptureResult{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "encode capture", Cause: err}
	}
	r.TabID = tabID
	r.URL = capture.URL
	r.Title = capture.Title
	r.Selector = capture.Selector

	meta, err := s.snaps.Save(deliver.Meta(r), r.JSON)
	if err != nil {
		s.metrics.ObserveCapture(source, metrics.OutcomeError, time.Since(start), 0, 0)
		return CaptureResult{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: fmt.Sprintf("save capture: %v", err)}
	}
	s.metrics.ObserveCapture(source, metrics.OutcomeOK, time.Since(start), meta.NodeCount, ser.Baselines().Misses())
	slog.Info("capture stored", "id", meta.ID, "source", source, "tab_id", tabID, "tag", meta.Tag, "nodes", meta.NodeCount)

	out := CaptureResult{ID: meta.ID, Meta: meta, Node: node}
	if deliverIt && s.sinks != nil {
		if err := s.sinks.Deliver(ctx, r); err != nil {
			out.DeliveryErrors = splitJoined(err)
		}
	}
	return out, nil
}

// TogglePicker turns the element picker on or off for a tab.
func (s *Service) TogglePicker(ctx context.Context, tabID string) (picker.Status, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return picker.Status{}, err
	}
	if s.pickers == nil {
		return picker.Status{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "picker is not enabled"}
	}
	tabID = strings.TrimSpace(tabID)
	if _, err := s.pickers.Toggle(ctx, tabID); err != nil {
		return picker.Status{}, err
	}
	return s.pickers.Status(tabID), nil
}

func (s *Service) PickerStatus(ctx context.Context, tabID string) (picker.Status, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return picker.Status{}, err
	}
	if s.pickers == nil {
		return picker.Status{TabID: strings.TrimSpace(tabID)}, nil
	}
	return s.pickers.Status(strings.TrimSpace(tabID)), nil
}

func (s *Service) ListCaptures(ctx context.Context) ([]snapshot.CaptureMeta, error) {
	return s.snaps.List()
}

// GetCapture returns a stored capture with its tree.
func (s *Service) GetCapture(ctx context.Context, id string) (CaptureResult, error) {
	if err := s.requireNonEmpty(id, "capture_id"); err != nil {
		return CaptureResult{}, err
	}

	data, meta, err := s.snaps.Read(strings.TrimSpace(id))
	if err != nil {
		return CaptureResult{}, storeErr(err)
	}
	var node prune.SerializedNode
	if err := json.Unmarshal(data, &node); err != nil {
		return CaptureResult{}, &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "stored capture is unreadable", Cause: err}
	}
	return CaptureResult{ID: meta.ID, Meta: meta, Node: &node}, nil
}

func (s *Service) DeleteCapture(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "capture_id"); err != nil {
		return err
	}
	if err := s.snaps.Delete(strings.TrimSpace(id)); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	if errors.Is(err, snapshot.ErrInvalidID) {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: err.Error()}
	}
	if errors.Is(err, snapshot.ErrNotFound) {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeCaptureNotFound, Message: err.Error()}
	}
	return &cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "capture store", Cause: err}
}

func outcomeOf(err error) string {
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) && coded.Code == cdpcontrol.CodePickCancelled {
		return metrics.OutcomeCancelled
	}
	return metrics.OutcomeError
}

// splitJoined flattens an errors.Join result into messages.
func splitJoined(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
