package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/domsnap/internal/prune"
	"github.com/dgnsrekt/domsnap/internal/snapshot"
)

func registerCaptureHandlers(api huma.API, svc Service) {
	type listCapturesOutput struct {
		Body struct {
			Captures []snapshot.CaptureMeta `json:"captures"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-captures", Method: http.MethodGet, Path: "/api/v1/captures", Summary: "List stored captures", Tags: []string{"Captures"}},
		func(ctx context.Context, input *struct{}) (*listCapturesOutput, error) {
			metas, err := svc.ListCaptures(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listCapturesOutput{}
			out.Body.Captures = metas
			if out.Body.Captures == nil {
				out.Body.Captures = []snapshot.CaptureMeta{}
			}
			return out, nil
		})

	type captureIDInput struct {
		CaptureID string `path:"capture_id"`
	}
	type getCaptureOutput struct {
		Body struct {
			Capture snapshot.CaptureMeta  `json:"capture"`
			Node    *prune.SerializedNode `json:"node"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-capture", Method: http.MethodGet, Path: "/api/v1/captures/{capture_id}", Summary: "Get a stored capture", Tags: []string{"Captures"}},
		func(ctx context.Context, input *captureIDInput) (*getCaptureOutput, error) {
			res, err := svc.GetCapture(ctx, input.CaptureID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &getCaptureOutput{}
			out.Body.Capture = res.Meta
			out.Body.Node = res.Node
			return out, nil
		})

	type deleteCaptureOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-capture", Method: http.MethodDelete, Path: "/api/v1/captures/{capture_id}", Summary: "Delete a stored capture", Tags: []string{"Captures"}},
		func(ctx context.Context, input *captureIDInput) (*deleteCaptureOutput, error) {
			if err := svc.DeleteCapture(ctx, input.CaptureID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteCaptureOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})
}
