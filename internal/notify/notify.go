// Package notify posts a short plain-text notice for each capture to an
// ntfy-style endpoint.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/prune"
)

// Send posts message to endpoint. title is sent in the Title header when set.
func Send(ctx context.Context, client *http.Client, endpoint, title, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("notify endpoint is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

// Message summarizes a capture in one line.
func Message(r deliver.Result) string {
	st := prune.Measure(r.Node)
	tag := "?"
	if r.Node != nil {
		tag = r.Node.Tag
	}
	msg := fmt.Sprintf("%s <%s> captured: %d elements, %d styles, %d bytes", r.Source, tag, st.Nodes, st.Styles, len(r.JSON))
	if r.URL != "" {
		msg += " from " + r.URL
	}
	return msg
}

// Sink sends a notice per delivered capture. The capture JSON itself is not
// sent.
type Sink struct {
	Client   *http.Client
	Endpoint string
}

func (s *Sink) Name() string { return "notify" }

func (s *Sink) Deliver(ctx context.Context, r deliver.Result) error {
	title := "domsnap"
	if r.Title != "" {
		title = "domsnap: " + r.Title
	}
	return Send(ctx, s.Client, s.Endpoint, title, Message(r))
}
