package deliver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

// ClipboardWriter writes text to a tab's clipboard.
type ClipboardWriter interface {
	WriteClipboard(ctx context.Context, tabID, text string) error
}

// ClipboardSink copies the JSON into the clipboard of the tab it came from.
type ClipboardSink struct {
	Writer ClipboardWriter
}

func (s *ClipboardSink) Name() string { return "clipboard" }

func (s *ClipboardSink) Deliver(ctx context.Context, r Result) error {
	if r.TabID == "" {
		return fmt.Errorf("capture has no tab")
	}
	return s.Writer.WriteClipboard(ctx, r.TabID, string(r.JSON))
}

// StoreSink persists the capture in a snapshot store.
type StoreSink struct {
	Store *snapshot.Store
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(_ context.Context, r Result) error {
	_, err := s.Store.Save(Meta(r), r.JSON)
	return err
}

// Meta builds the store metadata for a result.
func Meta(r Result) snapshot.CaptureMeta {
	stats := prune.Measure(r.Node)
	tag := ""
	if r.Node != nil {
		tag = r.Node.Tag
	}
	return snapshot.CaptureMeta{
		ID:        r.ID,
		TabID:     r.TabID,
		URL:       r.URL,
		Title:     r.Title,
		Selector:  r.Selector,
		Source:    r.Source,
		Tag:       tag,
		NodeCount: stats.Nodes,
		MaxDepth:  stats.MaxDepth,
		SizeBytes: len(r.JSON),
		CreatedAt: r.CreatedAt,
	}
}

// JournalSink appends one JSON line per capture to a size-rotated file.
type JournalSink struct {
	mu     sync.Mutex
	logger *lumberjack.Logger
}

type journalRecord struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Source    string          `json:"source"`
	TabID     string          `json:"tab_id,omitempty"`
	URL       string          `json:"url,omitempty"`
	Selector  string          `json:"selector,omitempty"`
	Node      json.RawMessage `json:"node"`
}

// NewJournalSink writes to filename, rotating at maxSizeMB.
func NewJournalSink(filename string, maxSizeMB, maxBackups int) *JournalSink {
	return &JournalSink{logger: &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false, // Use UTC
	}}
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Deliver(_ context.Context, r Result) error {
	// Compact the indented JSON so each capture stays on one line.
	var node bytes.Buffer
	if err := json.Compact(&node, r.JSON); err != nil {
		return fmt.Errorf("compact capture: %w", err)
	}
	line, err := json.Marshal(journalRecord{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Source:    r.Source,
		TabID:     r.TabID,
		URL:       r.URL,
		Selector:  r.Selector,
		Node:      node.Bytes(),
	})
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.logger.Write(append(line, '\n'))
	return err
}

func (s *JournalSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logger.Close()
}

// WebhookSink POSTs the JSON to an endpoint.
type WebhookSink struct {
	Client   *http.Client
	Endpoint string
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Deliver(ctx context.Context, r Result) error {
	return post(ctx, s.Client, s.Endpoint, r)
}

func post(ctx context.Context, client *http.Client, endpoint string, r Result) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("webhook endpoint is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(r.JSON))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Capture-Id", r.ID)
	req.Header.Set("X-Capture-Source", r.Source)

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery failed: status=%d", resp.StatusCode)
	}
	return nil
}

// WriterSink writes the JSON followed by a newline.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Name() string { return "writer" }

func (s *WriterSink) Deliver(_ context.Context, r Result) error {
	if _, err := s.W.Write(r.JSON); err != nil {
		return err
	}
	_, err := io.WriteString(s.W, "\n")
	return err
}
