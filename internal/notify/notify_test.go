package notify

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/prune"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func okResponse() *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Header:     make(http.Header),
	}
}

func sampleResult(t *testing.T) deliver.Result {
	t.Helper()
	text := "Home"
	node := &prune.SerializedNode{
		Tag:        "nav",
		Attributes: map[string]string{},
		Styles:     map[string]string{"display": "flex"},
		Children: []*prune.SerializedNode{{
			Tag:         "a",
			Attributes:  map[string]string{"title": "Home"},
			Styles:      map[string]string{},
			TextContent: &text,
			Children:    []*prune.SerializedNode{},
		}},
	}
	r, err := deliver.NewResult("c1", "pick", node)
	if err != nil {
		t.Fatalf("NewResult() failed: %v", err)
	}
	r.URL = "https://example.com/"
	r.Title = "Example"
	return r
}

func TestSendPostsMessage(t *testing.T) {
	ctx := context.Background()

	var receivedMethod string
	var receivedPath string
	var receivedBody string
	var receivedContentType string
	var receivedTitle string

	client := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			receivedMethod = r.Method
			receivedPath = r.URL.Path
			receivedContentType = r.Header.Get("Content-Type")
			receivedTitle = r.Header.Get("Title")
			rawBody, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			receivedBody = string(rawBody)
			return okResponse(), nil
		}),
	}

	if err := Send(ctx, client, "http://example.com/captures", "domsnap", "hello"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if got, want := receivedMethod, http.MethodPost; got != want {
		t.Fatalf("method = %q; want %q", got, want)
	}
	if got, want := receivedPath, "/captures"; got != want {
		t.Fatalf("path = %q; want %q", got, want)
	}
	if got, want := receivedContentType, "text/plain"; got != want {
		t.Fatalf("content-type = %q; want %q", got, want)
	}
	if got, want := receivedTitle, "domsnap"; got != want {
		t.Fatalf("title = %q; want %q", got, want)
	}
	if got, want := receivedBody, "hello"; got != want {
		t.Fatalf("body = %q; want %q", got, want)
	}
}

func TestSendReturnsErrorForServerError(t *testing.T) {
	ctx := context.Background()

	client := &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusInternalServerError,
				Body:       io.NopCloser(strings.NewReader("server failure")),
				Header:     make(http.Header),
			}, nil
		}),
	}

	err := Send(ctx, client, "http://example.com/captures", "", "hello")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "ntfy notification failed") {
		t.Fatalf("error = %q; want to contain %q", err, "ntfy notification failed")
	}
}

func TestSendDisallowsMissingEndpoint(t *testing.T) {
	ctx := context.Background()
	err := Send(ctx, http.DefaultClient, "", "", "hello")
	if err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestMessage(t *testing.T) {
	r := sampleResult(t)
	got := Message(r)
	want := "pick <nav> captured: 2 elements, 1 styles, " + strconv.Itoa(len(r.JSON)) + " bytes from https://example.com/"
	if got != want {
		t.Fatalf("Message() = %q; want %q", got, want)
	}
}

func TestSinkSendsTitledNotice(t *testing.T) {
	var title, body string
	sink := &Sink{
		Endpoint: "http://example.com/captures",
		Client: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			title = r.Header.Get("Title")
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
			return okResponse(), nil
		})},
	}

	if err := sink.Deliver(context.Background(), sampleResult(t)); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if title != "domsnap: Example" {
		t.Fatalf("title = %q", title)
	}
	if !strings.HasPrefix(body, "pick <nav> captured") {
		t.Fatalf("body = %q", body)
	}
}
