package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openlumen/pixelnode/internal/services/outputs"
	"github.com/openlumen/pixelnode/internal/services/patterns"
)

// OutputDocumentResponse carries the serialized composite output document.
type OutputDocumentResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// ApplyConfigRequest is a raw document upload. Validation happens in the
// orchestrator, where a rejected document regenerates defaults instead of
// failing the request.
type ApplyConfigRequest struct {
	RawBody []byte
}

// ApplyConfigResponse reports the outcome of a document upload.
type ApplyConfigResponse struct {
	Body struct {
		Accepted   bool `json:"accepted" doc:"Whether the document passed validation as-is"`
		TotalBytes int  `json:"total_bytes" doc:"Frame buffer bytes claimed by the resulting channel set"`
	}
}

// ChannelConfigRequest addresses one output channel's sub-document.
type ChannelConfigRequest struct {
	Channel int `path:"channel" example:"0" doc:"Zero-based output channel id"`
}

// OutputStatusResponse is the orchestrator's live status. The per-channel
// fragments ride under "output", the key lighting consoles poll for.
type OutputStatusResponse struct {
	Body struct {
		State      string `json:"state" doc:"Orchestrator lifecycle state"`
		Paused     bool   `json:"paused"`
		Profile    string `json:"profile" doc:"Active board profile name"`
		BufferSize int    `json:"buffer_size"`
		BufferUsed int    `json:"buffer_used"`
		Output     []any  `json:"output" doc:"Per-channel driver status fragments"`
	}
}

// OutputOptionsResponse lists the selectable protocols per channel.
type OutputOptionsResponse struct {
	Body struct {
		Channels []outputs.ChannelOptions `json:"channels"`
	}
}

// PauseRequest toggles output rendering.
type PauseRequest struct {
	Body struct {
		Paused bool `json:"paused" example:"true" doc:"Freeze rendering while keeping drivers configured"`
	}
}

// PauseResponse echoes the resulting pause state.
type PauseResponse struct {
	Body struct {
		Paused bool `json:"paused"`
	}
}

// TestPatternRequest starts a locally generated test pattern.
type TestPatternRequest struct {
	Body struct {
		Mode     string   `json:"mode" example:"chase" doc:"Pattern mode: off, solid, ramp or chase"`
		Color    [3]uint8 `json:"color,omitempty" doc:"RGB intensity triplet"`
		PeriodMS int      `json:"period_ms,omitempty" minimum:"0" example:"2000" doc:"Pattern cycle length in milliseconds"`
		Easing   string   `json:"easing,omitempty" example:"LINEAR" doc:"Easing curve applied to the pattern cycle"`
	}
}

// TestPatternResponse reports the generator state after the change.
type TestPatternResponse struct {
	Body patterns.Status
}

func (s *Server) registerOutputRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-output-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/output/config",
		Summary:     "Get Output Config",
		Description: "Get the composite output configuration document, including remembered settings for inactive protocols",
		Tags:        []string{"output"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*OutputDocumentResponse, error) {
		data, err := s.outputs.GetConfig()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read output config", err)
		}
		return &OutputDocumentResponse{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "apply-output-config",
		Method:      http.MethodPut,
		Path:        "/api/v1/output/config",
		Summary:     "Apply Output Config",
		Description: "Apply a full output configuration document. A structurally invalid document regenerates defaults; the response reports whether the upload was accepted as-is.",
		Tags:        []string{"output"},
		Errors:      []int{400},
	}, func(ctx context.Context, input *ApplyConfigRequest) (*ApplyConfigResponse, error) {
		accepted, err := s.outputs.SetConfig(input.RawBody)
		if err != nil {
			return nil, huma.Error400BadRequest("Malformed output config", err)
		}
		resp := &ApplyConfigResponse{}
		resp.Body.Accepted = accepted
		resp.Body.TotalBytes = s.outputs.BufferUsed()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-channel-config",
		Method:      http.MethodGet,
		Path:        "/api/v1/output/config/{channel}",
		Summary:     "Get Channel Config",
		Description: "Get the active protocol's settings sub-document for one output channel",
		Tags:        []string{"output"},
		Errors:      []int{404, 500},
	}, func(ctx context.Context, input *ChannelConfigRequest) (*OutputDocumentResponse, error) {
		settings, err := s.outputs.GetPortConfig(input.Channel)
		if err != nil {
			return nil, huma.Error404NotFound("No config for channel", err)
		}
		data, err := json.Marshal(settings)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to encode channel config", err)
		}
		return &OutputDocumentResponse{ContentType: "application/json", Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-output-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/output/status",
		Summary:     "Get Output Status",
		Description: "Get the orchestrator state and each channel's live driver status",
		Tags:        []string{"output"},
	}, func(ctx context.Context, input *struct{}) (*OutputStatusResponse, error) {
		resp := &OutputStatusResponse{}
		resp.Body.State = s.outputs.State().String()
		resp.Body.Paused = s.outputs.IsPaused()
		resp.Body.Profile = s.outputs.ProfileName()
		resp.Body.BufferSize = s.outputs.BufferSize()
		resp.Body.BufferUsed = s.outputs.BufferUsed()
		resp.Body.Output = s.outputs.GetStatus()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-output-options",
		Method:      http.MethodGet,
		Path:        "/api/v1/output/options",
		Summary:     "Get Output Options",
		Description: "List, per channel, the selected protocol and every protocol available for selection",
		Tags:        []string{"output"},
	}, func(ctx context.Context, input *struct{}) (*OutputOptionsResponse, error) {
		resp := &OutputOptionsResponse{}
		resp.Body.Channels = s.outputs.GetOptions()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-output-pause",
		Method:      http.MethodPost,
		Path:        "/api/v1/output/pause",
		Summary:     "Pause Output",
		Description: "Pause or resume rendering. Paused channels keep their drivers and configuration; frames simply stop.",
		Tags:        []string{"output"},
	}, func(ctx context.Context, input *PauseRequest) (*PauseResponse, error) {
		s.outputs.Pause(input.Body.Paused)
		resp := &PauseResponse{}
		resp.Body.Paused = s.outputs.IsPaused()
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "run-test-pattern",
		Method:      http.MethodPost,
		Path:        "/api/v1/output/test",
		Summary:     "Run Test Pattern",
		Description: "Drive a locally generated test pattern into the frame buffer. Mode off stops the pattern and blanks the output.",
		Tags:        []string{"output"},
		Errors:      []int{400},
	}, func(ctx context.Context, input *TestPatternRequest) (*TestPatternResponse, error) {
		req := patterns.Request{
			Mode:   patterns.Mode(input.Body.Mode),
			Color:  input.Body.Color,
			Period: time.Duration(input.Body.PeriodMS) * time.Millisecond,
			Easing: patterns.EasingType(input.Body.Easing),
		}
		if err := s.patterns.Run(req); err != nil {
			return nil, huma.Error400BadRequest("Invalid test pattern", err)
		}
		return &TestPatternResponse{Body: s.patterns.GetStatus()}, nil
	})
}
