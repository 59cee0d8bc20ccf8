package cdpcontrol

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/domsnap/internal/pagecapture"
)

const captureEnvelope = `{"ok":true,"data":{"url":"https://example.com/a","title":"A","selector":"#x",
"root":{"type":"element","tag":"DIV","style":[["display","flex"]],"children":[{"type":"text","text":"hi"}]},
"baselines":{"div":[["display","block"]]}}}`

var pageTargets = []fakeTarget{
	{ID: "T2", Type: "page", Title: "Docs", URL: "https://example.com/docs"},
	{ID: "T1", Type: "page", Title: "App", URL: "https://app.example.com/"},
	{ID: "W1", Type: "service_worker", URL: "https://example.com/sw.js"},
	{ID: "T3", Type: "page", Title: "Other", URL: "https://other.org/"},
}

func connectFake(t *testing.T, filter string, respond func(string) string) (*Client, *fakeBrowser) {
	t.Helper()
	fb := newFakeBrowser(t, pageTargets, respond)
	c := NewClient(fb.srv.URL, filter, time.Second, 200*time.Millisecond)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, fb
}

func codeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

func TestListTabsFiltersAndSorts(t *testing.T) {
	c, _ := connectFake(t, "EXAMPLE", func(string) string { return `{"ok":true}` })

	tabs, err := c.ListTabs(context.Background())
	if err != nil {
		t.Fatalf("ListTabs() failed: %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("len(tabs) = %d; want 2 (%+v)", len(tabs), tabs)
	}
	if tabs[0].TabID != "T1" || tabs[1].TabID != "T2" {
		t.Fatalf("tabs = %+v; want T1 then T2", tabs)
	}
	if tabs[1].Title != "Docs" {
		t.Fatalf("Title = %q; want Docs", tabs[1].Title)
	}
}

func TestCaptureSelector(t *testing.T) {
	c, fb := connectFake(t, "", func(string) string { return captureEnvelope })

	capture, err := c.CaptureSelector(context.Background(), "T1", "#x")
	if err != nil {
		t.Fatalf("CaptureSelector() failed: %v", err)
	}
	if capture.URL != "https://example.com/a" {
		t.Fatalf("URL = %q", capture.URL)
	}
	node := capture.Serialize()
	if node.Styles["display"] != "flex" {
		t.Fatalf("Styles = %v; want display flex", node.Styles)
	}
	if text, ok := node.Text(); !ok || text != "hi" {
		t.Fatalf("Text() = %q, %v; want hi", text, ok)
	}
	if !strings.Contains(fb.lastEval().Expression, `var sel = "#x";`) {
		t.Fatalf("selector not embedded in capture script")
	}
}

func TestCaptureSelectorErrors(t *testing.T) {
	c, _ := connectFake(t, "", func(string) string {
		return `{"ok":false,"error_code":"ELEMENT_NOT_FOUND","error_message":"no element matches #nope"}`
	})
	ctx := context.Background()

	if _, err := c.CaptureSelector(ctx, "T1", "  "); codeOf(err) != CodeValidation {
		t.Fatalf("empty selector error = %v; want %s", err, CodeValidation)
	}
	if _, err := c.CaptureSelector(ctx, "", "#x"); codeOf(err) != CodeValidation {
		t.Fatalf("empty tab error = %v; want %s", err, CodeValidation)
	}
	if _, err := c.CaptureSelector(ctx, "missing", "#x"); codeOf(err) != CodeTabNotFound {
		t.Fatalf("unknown tab error = %v; want %s", err, CodeTabNotFound)
	}
	if _, err := c.CaptureSelector(ctx, "T2", "#nope"); codeOf(err) != CodeElementNotFound {
		t.Fatalf("no match error = %v; want %s", err, CodeElementNotFound)
	}
}

func TestPickerStatusAndOff(t *testing.T) {
	c, _ := connectFake(t, "", func(js string) string {
		if strings.Contains(js, "was_active") {
			return `{"ok":true,"data":{"was_active":true}}`
		}
		return `{"ok":true,"data":{"active":true}}`
	})
	ctx := context.Background()

	active, err := c.PickerActive(ctx, "T1")
	if err != nil || !active {
		t.Fatalf("PickerActive() = %v, %v; want true", active, err)
	}
	was, err := c.PickerOff(ctx, "T1")
	if err != nil || !was {
		t.Fatalf("PickerOff() = %v, %v; want true", was, err)
	}
}

func TestPickCancelled(t *testing.T) {
	c, _ := connectFake(t, "", func(string) string {
		return `{"ok":false,"error_code":"PICK_CANCELLED","error_message":"picker cancelled"}`
	})
	if _, err := c.Pick(context.Background(), "T1", pagecapture.PickerOptions{}); codeOf(err) != CodePickCancelled {
		t.Fatalf("Pick() error = %v; want %s", err, CodePickCancelled)
	}
}

func TestPickTimeoutIsCancellation(t *testing.T) {
	release := make(chan struct{})
	c, _ := connectFake(t, "", func(js string) string {
		if strings.Contains(js, "new Promise") {
			<-release
		}
		return `{"ok":true}`
	})
	t.Cleanup(func() { close(release) })

	_, err := c.Pick(context.Background(), "T1", pagecapture.PickerOptions{})
	if codeOf(err) != CodePickCancelled {
		t.Fatalf("Pick() error = %v; want %s", err, CodePickCancelled)
	}
}

func TestWriteClipboard(t *testing.T) {
	c, fb := connectFake(t, "", func(string) string {
		return `{"ok":false,"error_code":"CLIPBOARD_DENIED","error_message":"Document is not focused."}`
	})

	err := c.WriteClipboard(context.Background(), "T1", `{"tag":"div"}`)
	if codeOf(err) != CodeClipboardDenied {
		t.Fatalf("WriteClipboard() error = %v; want %s", err, CodeClipboardDenied)
	}
	eval := fb.lastEval()
	if !eval.UserGesture {
		t.Fatalf("clipboard evaluation must be sent as a user gesture")
	}
	if !strings.Contains(eval.Expression, `writeText("{\"tag\":\"div\"}")`) {
		t.Fatalf("clipboard text not embedded")
	}
}

func TestConnectFailsWithoutURL(t *testing.T) {
	c := NewClient("", "", time.Second, time.Second)
	if err := c.Connect(context.Background()); codeOf(err) != CodeCDPUnavailable {
		t.Fatalf("Connect() error = %v; want %s", err, CodeCDPUnavailable)
	}
}
