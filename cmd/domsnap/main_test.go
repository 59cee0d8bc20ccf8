package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/config"
	"github.com/dgnsrekt/domsnap/internal/feed"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

const navPage = `<!doctype html>
<html><head><style>.top { display: flex }</style></head>
<body><nav title="Main" class="top"><a href="/" title="Home"> Home </a></nav></body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(navPage), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFileCommandPrintsJSON(t *testing.T) {
	out, err := run(t, "file", writePage(t), "--selector", "nav")
	if err != nil {
		t.Fatalf("file command failed: %v", err)
	}

	var node prune.SerializedNode
	if err := json.Unmarshal([]byte(out), &node); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if node.Tag != "nav" || node.Attributes["title"] != "Main" || node.Styles["display"] != "flex" {
		t.Fatalf("node = %+v", node)
	}
	if _, ok := node.Attributes["class"]; ok {
		t.Fatalf("class attribute kept: %v", node.Attributes)
	}
	if len(node.Children) != 1 {
		t.Fatalf("children = %d; want 1", len(node.Children))
	}
	if text, ok := node.Children[0].Text(); !ok || text != "Home" {
		t.Fatalf("link text = %q, %v; want Home", text, ok)
	}
}

func TestFileCommandTreeAndSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	outFile := filepath.Join(t.TempDir(), "tree.txt")
	if _, err := run(t, "file", writePage(t), "-s", "nav", "--tree", "--out", outFile, "--save", dir); err != nil {
		t.Fatalf("file command failed: %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), `nav title="Main"`) || !strings.Contains(string(data), `"Home"`) {
		t.Fatalf("tree output = %q", data)
	}

	store, err := snapshot.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	metas, err := store.List()
	if err != nil || len(metas) != 1 {
		t.Fatalf("List() = %v, %v; want one capture", metas, err)
	}
	if metas[0].Source != snapshot.SourceFile || metas[0].Selector != "nav" || metas[0].NodeCount != 2 {
		t.Fatalf("meta = %+v", metas[0])
	}
}

func TestFileCommandErrors(t *testing.T) {
	page := writePage(t)
	if _, err := run(t, "file", page); err == nil {
		t.Fatalf("file without --selector succeeded")
	}
	if _, err := run(t, "file", page, "-s", "#missing"); err == nil || !strings.Contains(err.Error(), "no element matches") {
		t.Fatalf("file with unknown selector = %v", err)
	}
	if _, err := run(t, "file", filepath.Join(t.TempDir(), "nope.html"), "-s", "nav"); err == nil {
		t.Fatalf("file with missing path succeeded")
	}
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("version = %q; want %q", out, version)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"info":  slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logFile := filepath.Join(t.TempDir(), "logs", "domsnap.log")
	var console bytes.Buffer
	if err := setupLogger("info", logFile, &console); err != nil {
		t.Fatalf("setupLogger() failed: %v", err)
	}
	slog.Info("capture stored", "id", "x")
	slog.Debug("hidden")

	if !strings.Contains(console.String(), "capture stored") || strings.Contains(console.String(), "hidden") {
		t.Fatalf("console = %q", console.String())
	}
	data, err := os.ReadFile(logFile)
	if err != nil || !strings.Contains(string(data), "capture stored") {
		t.Fatalf("log file = %q, %v", data, err)
	}
}

type fakeClipboard struct{}

func (fakeClipboard) WriteClipboard(context.Context, string, string) error { return nil }

func TestBuildSinks(t *testing.T) {
	cfg := &config.Config{
		Clipboard:        true,
		JournalFile:      filepath.Join(t.TempDir(), "j.jsonl"),
		JournalMaxSizeMB: 1,
		WebhookURL:       "http://127.0.0.1:1/hook",
		NotifyURL:        "http://127.0.0.1:1/ntfy",
	}
	fan, closers := buildSinks(cfg, fakeClipboard{}, feed.NewBroker())
	got := strings.Join(fan.Sinks(), ",")
	if got != "clipboard,journal,webhook,notify,feed" {
		t.Fatalf("Sinks() = %q", got)
	}
	if len(closers) != 1 {
		t.Fatalf("closers = %d; want 1", len(closers))
	}

	fan, closers = buildSinks(&config.Config{}, fakeClipboard{}, nil)
	if len(fan.Sinks()) != 0 || len(closers) != 0 {
		t.Fatalf("empty config sinks = %v, closers = %d", fan.Sinks(), len(closers))
	}
}

type fakeTabs struct {
	tabs []cdpcontrol.TabInfo
	err  error
}

func (f fakeTabs) ListTabs(context.Context) ([]cdpcontrol.TabInfo, error) { return f.tabs, f.err }

func TestResolveTab(t *testing.T) {
	ctx := context.Background()
	if got, err := resolveTab(ctx, fakeTabs{}, " T5 "); err != nil || got != "T5" {
		t.Fatalf("resolveTab(explicit) = %q, %v", got, err)
	}
	if got, err := resolveTab(ctx, fakeTabs{tabs: []cdpcontrol.TabInfo{{TabID: "A"}, {TabID: "B"}}}, ""); err != nil || got != "A" {
		t.Fatalf("resolveTab(first) = %q, %v", got, err)
	}
	if _, err := resolveTab(ctx, fakeTabs{}, ""); err == nil {
		t.Fatalf("resolveTab(no tabs) = nil error")
	}
	boom := errors.New("boom")
	if _, err := resolveTab(ctx, fakeTabs{err: boom}, ""); !errors.Is(err, boom) {
		t.Fatalf("resolveTab(list error) = %v; want %v", err, boom)
	}
}
