package cdpcontrol

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/target"

	"github.com/dgnsrekt/domsnap/internal/pagecapture"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func withDefaultHTTPClient(t *testing.T, transport http.RoundTripper) {
	t.Helper()
	origClient := http.DefaultClient
	t.Cleanup(func() {
		http.DefaultClient = origClient
	})
	http.DefaultClient = &http.Client{
		Transport: transport,
	}
}

func TestSyncTabsLockedWrapsListTargetsError(t *testing.T) {
	withDefaultHTTPClient(t, roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == "/json/list" {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader(`oops`)),
			}, nil
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(``))}, nil
	}))

	c := &Client{
		cdp:  newRawCDP("http://example.com"),
		tabs: map[target.ID]*tabSession{},
	}

	err := c.syncTabsLocked(context.Background())
	if err == nil {
		t.Fatal("expected syncTabsLocked() to fail")
	}

	var codedErr *CodedError
	if !errors.As(err, &codedErr) {
		t.Fatalf("expected *CodedError, got %T", err)
	}
	if codedErr.Code != CodeCDPUnavailable {
		t.Fatalf("error code = %s; want %s", codedErr.Code, CodeCDPUnavailable)
	}
	if !strings.Contains(codedErr.Message, "failed to list targets") {
		t.Fatalf("error message = %q; want to contain %q", codedErr.Message, "failed to list targets")
	}
}

func TestMapScriptError(t *testing.T) {
	tests := []struct {
		in   error
		code string
	}{
		{&pagecapture.ScriptError{Code: pagecapture.CodeElementNotFound, Message: "x"}, CodeElementNotFound},
		{&pagecapture.ScriptError{Code: pagecapture.CodePickCancelled}, CodePickCancelled},
		{&pagecapture.ScriptError{Code: pagecapture.CodeClipboardDenied}, CodeClipboardDenied},
		{&pagecapture.ScriptError{Code: "SOMETHING_ELSE"}, CodeEvalFailure},
		{pagecapture.ErrMalformed, CodeEvalFailure},
	}
	for _, tt := range tests {
		err := mapScriptError(tt.in)
		var codedErr *CodedError
		if !errors.As(err, &codedErr) || codedErr.Code != tt.code {
			t.Fatalf("mapScriptError(%v) = %v; want code %s", tt.in, err, tt.code)
		}
	}
	if mapScriptError(nil) != nil {
		t.Fatalf("mapScriptError(nil) != nil")
	}
}

func TestShouldRetry(t *testing.T) {
	c := &Client{}
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cdp unavailable", newError(CodeCDPUnavailable, "x", nil), true},
		{"transient eval", newError(CodeEvalFailure, "x", errors.New("websocket: close 1006")), true},
		{"script failure", newError(CodeEvalFailure, "x", nil), false},
		{"tab missing", newError(CodeTabNotFound, "x", nil), false},
		{"plain", errors.New("eof"), false},
	}
	for _, tt := range tests {
		if got := c.shouldRetry(tt.err); got != tt.want {
			t.Fatalf("%s: shouldRetry() = %v; want %v", tt.name, got, tt.want)
		}
	}
}
