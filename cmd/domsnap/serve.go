package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/domsnap/internal/api"
	"github.com/dgnsrekt/domsnap/internal/browser"
	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/config"
	"github.com/dgnsrekt/domsnap/internal/controller"
	"github.com/dgnsrekt/domsnap/internal/deliver"
	"github.com/dgnsrekt/domsnap/internal/feed"
	"github.com/dgnsrekt/domsnap/internal/metrics"
	"github.com/dgnsrekt/domsnap/internal/netutil"
	"github.com/dgnsrekt/domsnap/internal/notify"
	"github.com/dgnsrekt/domsnap/internal/pagecapture"
	"github.com/dgnsrekt/domsnap/internal/picker"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func serveCmd() *cobra.Command {
	var launch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the capture controller HTTP API",
		Long: `Connect to a browser over the Chrome DevTools Protocol and serve the
capture API: selector captures, the element picker, stored captures and
Prometheus metrics. --launch starts a local Chromium with remote debugging
when none is listening.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := setupLogger(cfg.LogLevel, cfg.LogFile, cmd.OutOrStdout()); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, launch)
		},
	}

	cmd.Flags().BoolVar(&launch, "launch", false, "Launch a local browser with remote debugging")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, launch bool) error {
	slog.Info("domsnap config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"pick_timeout_ms", cfg.PickTimeoutMS,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
		"capture_dir", cfg.CaptureDir,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		return err
	}

	if launch {
		l := browser.NewLauncher(browser.Config{
			CDPAddress:  cfg.CDPAddress,
			CDPPort:     cfg.CDPPort,
			StartURL:    cfg.BrowserStartURL,
			ProfileDir:  cfg.BrowserProfileDir,
			BrowserPath: cfg.BrowserPath,
		})
		if err := l.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			return err
		}
		defer l.Stop()
	}

	cdpClient := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, cfg.EvalTimeout(), cfg.PickTimeout())
	if err := cdpClient.Connect(ctx); err != nil {
		slog.Error("failed to connect CDP controller", "cdp_url", cfg.CDPURL(), "error", err)
		return err
	}
	defer func() {
		if err := cdpClient.Close(); err != nil {
			slog.Debug("CDP client close failed", "error", err)
		}
	}()

	snapStore, err := snapshot.NewStore(cfg.CaptureDir)
	if err != nil {
		slog.Error("failed to create capture store", "dir", cfg.CaptureDir, "error", err)
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	broker := feed.NewBroker()
	sinks, closers := buildSinks(cfg, cdpClient, broker)
	sinks.OnFailure = m.DeliveryFailed
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				slog.Debug("sink close failed", "error", err)
			}
		}
	}()

	svc := controller.NewService(cdpClient, snapStore, sinks, m)
	pickers := picker.NewManager(cdpClient, svc.HandlePick, pagecapture.PickerOptions{Color: cfg.PickerColor})
	pickers.OnChange = m.SetPickersActive
	svc.SetPickers(pickers)

	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc, api.Options{
		Metrics: m.Handler(),
		Stream:  feed.SSEHandler(broker),
	})}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("domsnap listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs", "sinks", sinks.Sinks())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("domsnap server failed", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	pickers.Close(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("domsnap shutdown failed", "error", err)
		return err
	}
	slog.Info("domsnap stopped")
	return nil
}

// buildSinks assembles the delivery fanout from config. The returned closers
// must be closed on shutdown.
func buildSinks(cfg *config.Config, clip deliver.ClipboardWriter, broker *feed.Broker) (*deliver.Fanout, []io.Closer) {
	var (
		sinks   []deliver.Sink
		closers []io.Closer
	)
	if cfg.Clipboard && clip != nil {
		sinks = append(sinks, &deliver.ClipboardSink{Writer: clip})
	}
	if cfg.JournalFile != "" {
		j := deliver.NewJournalSink(cfg.JournalFile, cfg.JournalMaxSizeMB, 5)
		sinks = append(sinks, j)
		closers = append(closers, j)
	}
	if cfg.WebhookURL != "" {
		sinks = append(sinks, &deliver.WebhookSink{
			Client:   &http.Client{Timeout: 10 * time.Second},
			Endpoint: cfg.WebhookURL,
		})
	}
	if cfg.NotifyURL != "" {
		sinks = append(sinks, &notify.Sink{
			Client:   &http.Client{Timeout: 10 * time.Second},
			Endpoint: cfg.NotifyURL,
		})
	}
	if broker != nil {
		sinks = append(sinks, &feed.Sink{Broker: broker})
	}
	return deliver.NewFanout(sinks...), closers
}
