package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/domsnap/internal/cdpcontrol"
	"github.com/dgnsrekt/domsnap/internal/picker"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func registerTabHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type listTabsOutput struct {
		Body struct {
			Tabs []cdpcontrol.TabInfo `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List page tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			if out.Body.Tabs == nil {
				out.Body.Tabs = []cdpcontrol.TabInfo{}
			}
			return out, nil
		})

	type captureOutput struct {
		Body struct {
			ID             string                `json:"id"`
			Capture        snapshot.CaptureMeta  `json:"capture"`
			Node           *prune.SerializedNode `json:"node"`
			DeliveryErrors []string              `json:"delivery_errors,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-selector", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/capture", Summary: "Capture an element", Description: "Serializes the first element matching the selector, stores it, and optionally delivers it to the configured sinks.", Tags: []string{"Captures"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				Selector string `json:"selector" required:"true" doc:"CSS selector of the element to capture" example:"nav"`
				Deliver  bool   `json:"deliver,omitempty" doc:"Also hand the capture to the clipboard, journal and webhook sinks"`
			}
		}) (*captureOutput, error) {
			res, err := svc.CaptureSelector(ctx, input.TabID, input.Body.Selector, input.Body.Deliver)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &captureOutput{}
			out.Body.ID = res.ID
			out.Body.Capture = res.Meta
			out.Body.Node = res.Node
			out.Body.DeliveryErrors = res.DeliveryErrors
			return out, nil
		})

	type pickerOutput struct {
		Body picker.Status
	}
	huma.Register(api, huma.Operation{OperationID: "toggle-picker", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/picker/toggle", Summary: "Toggle the element picker", Description: "Starts the picker overlay on the tab, or removes it when it is already showing. A picked element is stored and delivered.", Tags: []string{"Picker"}},
		func(ctx context.Context, input *tabIDInput) (*pickerOutput, error) {
			st, err := svc.TogglePicker(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &pickerOutput{Body: st}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "get-picker", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}/picker", Summary: "Get picker status", Tags: []string{"Picker"}},
		func(ctx context.Context, input *tabIDInput) (*pickerOutput, error) {
			st, err := svc.PickerStatus(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &pickerOutput{Body: st}, nil
		})
}
