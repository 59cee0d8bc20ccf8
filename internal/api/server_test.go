package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/controller"
	"github.com/dgnsrekt/domsnap/internal/picker"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

type stubService struct {
	err error

	gotTab      string
	gotSelector string
	gotDeliver  bool
	deleted     string
}

func (s *stubService) ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []cdpcontrol.TabInfo{{TabID: "T1", URL: "https://example.com/", Title: "Example"}}, nil
}

func (s *stubService) CaptureSelector(ctx context.Context, tabID, selector string, deliver bool) (controller.CaptureResult, error) {
	s.gotTab, s.gotSelector, s.gotDeliver = tabID, selector, deliver
	if s.err != nil {
		return controller.CaptureResult{}, s.err
	}
	text := "Home"
	node := &prune.SerializedNode{
		Tag:        "a",
		Attributes: map[string]string{"title": "Home"},
		Styles:     map[string]string{},
		Children:   []*prune.SerializedNode{},
	}
	node.TextContent = &text
	return controller.CaptureResult{
		ID:             "c1",
		Meta:           snapshot.CaptureMeta{ID: "c1", TabID: tabID, Source: snapshot.SourceSelector, Tag: "a", NodeCount: 1},
		Node:           node,
		DeliveryErrors: []string{"clipboard: denied"},
	}, nil
}

func (s *stubService) TogglePicker(ctx context.Context, tabID string) (picker.Status, error) {
	if s.err != nil {
		return picker.Status{}, s.err
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return picker.Status{TabID: tabID, Active: true, StartedAt: &now}, nil
}

func (s *stubService) PickerStatus(ctx context.Context, tabID string) (picker.Status, error) {
	return picker.Status{TabID: tabID}, s.err
}

func (s *stubService) ListCaptures(ctx context.Context) ([]snapshot.CaptureMeta, error) {
	return nil, s.err
}

func (s *stubService) GetCapture(ctx context.Context, id string) (controller.CaptureResult, error) {
	if s.err != nil {
		return controller.CaptureResult{}, s.err
	}
	return controller.CaptureResult{
		ID:   id,
		Meta: snapshot.CaptureMeta{ID: id, Tag: "nav"},
		Node: &prune.SerializedNode{Tag: "nav", Attributes: map[string]string{}, Styles: map[string]string{"display": "flex"}, Children: []*prune.SerializedNode{}},
	}, nil
}

func (s *stubService) DeleteCapture(ctx context.Context, id string) error {
	s.deleted = id
	return s.err
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := serve(t, NewServer(&stubService{}, Options{}), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestListTabs(t *testing.T) {
	w := serve(t, NewServer(&stubService{}, Options{}), http.MethodGet, "/api/v1/tabs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body struct {
		Tabs []cdpcontrol.TabInfo `json:"tabs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Tabs) != 1 || body.Tabs[0].TabID != "T1" {
		t.Fatalf("tabs = %+v", body.Tabs)
	}
}

func TestCaptureSelector(t *testing.T) {
	svc := &stubService{}
	w := serve(t, NewServer(svc, Options{}), http.MethodPost, "/api/v1/tabs/T1/capture", `{"selector":"a.home","deliver":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if svc.gotTab != "T1" || svc.gotSelector != "a.home" || !svc.gotDeliver {
		t.Fatalf("service got tab=%q selector=%q deliver=%v", svc.gotTab, svc.gotSelector, svc.gotDeliver)
	}
	var body struct {
		ID             string               `json:"id"`
		Node           prune.SerializedNode `json:"node"`
		DeliveryErrors []string             `json:"delivery_errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "c1" || body.Node.Tag != "a" {
		t.Fatalf("body = %+v", body)
	}
	if text, ok := body.Node.Text(); !ok || text != "Home" {
		t.Fatalf("textContent = %q, %v", text, ok)
	}
	if len(body.DeliveryErrors) != 1 {
		t.Fatalf("delivery_errors = %v", body.DeliveryErrors)
	}
}

func TestCaptureSelectorRequiresSelector(t *testing.T) {
	w := serve(t, NewServer(&stubService{}, Options{}), http.MethodPost, "/api/v1/tabs/T1/capture", `{"deliver":true}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
}

func TestPickerEndpoints(t *testing.T) {
	h := NewServer(&stubService{}, Options{})
	w := serve(t, h, http.MethodPost, "/api/v1/tabs/T9/picker/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle status = %d: %s", w.Code, w.Body.String())
	}
	var st picker.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TabID != "T9" || !st.Active || st.StartedAt == nil {
		t.Fatalf("toggle = %+v", st)
	}

	w = serve(t, h, http.MethodGet, "/api/v1/tabs/T9/picker", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"active":false`) {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
}

func TestCaptureStoreEndpoints(t *testing.T) {
	svc := &stubService{}
	h := NewServer(svc, Options{})

	w := serve(t, h, http.MethodGet, "/api/v1/captures", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"captures":[]`) {
		t.Fatalf("list = %d %s", w.Code, w.Body.String())
	}

	w = serve(t, h, http.MethodGet, "/api/v1/captures/abc", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"display":"flex"`) {
		t.Fatalf("get = %d %s", w.Code, w.Body.String())
	}

	w = serve(t, h, http.MethodDelete, "/api/v1/captures/abc", "")
	if w.Code != http.StatusOK || svc.deleted != "abc" {
		t.Fatalf("delete = %d %s (deleted %q)", w.Code, w.Body.String(), svc.deleted)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: "selector is required"}, http.StatusBadRequest},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeTabNotFound, Message: "tab not found"}, http.StatusNotFound},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeElementNotFound, Message: "no element"}, http.StatusNotFound},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeCaptureNotFound, Message: "no capture"}, http.StatusNotFound},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodePickCancelled, Message: "cancelled"}, http.StatusConflict},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeClipboardDenied, Message: "denied"}, http.StatusForbidden},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalTimeout, Message: "timeout"}, http.StatusGatewayTimeout},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeCDPUnavailable, Message: "down"}, http.StatusBadGateway},
		{&cdpcontrol.CodedError{Code: cdpcontrol.CodeEvalFailure, Message: "boom"}, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := serve(t, NewServer(&stubService{err: tt.err}, Options{}), http.MethodGet, "/api/v1/tabs", "")
		if w.Code != tt.want {
			t.Fatalf("ListTabs(%v) status = %d; want %d", tt.err, w.Code, tt.want)
		}
	}
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("domsnap_captures_total 1\n"))
	})
	w := serve(t, NewServer(&stubService{}, Options{Metrics: metrics}), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "domsnap_captures_total") {
		t.Fatalf("metrics = %d %s", w.Code, w.Body.String())
	}

	w = serve(t, NewServer(&stubService{}, Options{}), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics without handler = %d; want 404", w.Code)
	}
}

func TestStreamRouteWinsOverCaptureID(t *testing.T) {
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: capture\n\n"))
	})
	w := serve(t, NewServer(&stubService{}, Options{Stream: stream}), http.MethodGet, "/api/v1/captures/stream", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("stream = %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}
