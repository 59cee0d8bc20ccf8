package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/controller"
	"github.com/dgnsrekt/domsnap/internal/picker"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error)
	CaptureSelector(ctx context.Context, tabID, selector string, deliver bool) (controller.CaptureResult, error)
	TogglePicker(ctx context.Context, tabID string) (picker.Status, error)
	PickerStatus(ctx context.Context, tabID string) (picker.Status, error)
	ListCaptures(ctx context.Context) ([]snapshot.CaptureMeta, error)
	GetCapture(ctx context.Context, id string) (controller.CaptureResult, error)
	DeleteCapture(ctx context.Context, id string) error
}

type tabIDInput struct {
	TabID string `path:"tab_id" doc:"CDP target id of the page"`
}

// Options carries the optional plain HTTP handlers mounted beside the API.
type Options struct {
	Metrics http.Handler // GET /metrics
	Stream  http.Handler // GET /api/v1/captures/stream
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("domsnap API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}
	if opts.Stream != nil {
		router.Get("/api/v1/captures/stream", opts.Stream.ServeHTTP)
	}

	registerTabHandlers(api, svc)
	registerCaptureHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpcontrol.CodeTabNotFound, cdpcontrol.CodeElementNotFound, cdpcontrol.CodeCaptureNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodePickCancelled:
			return huma.Error409Conflict(coded.Message)
		case cdpcontrol.CodeClipboardDenied:
			return huma.Error403Forbidden(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
