package api

import (
	"context"
	"log"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/openlumen/pixelnode/internal/services/input"
	"github.com/openlumen/pixelnode/internal/services/network"
	"github.com/openlumen/pixelnode/internal/services/version"
	"github.com/openlumen/pixelnode/internal/services/wifi"
)

// Settings keys for the device identity fields.
const (
	settingDeviceName     = "device_name"
	settingDeviceLocation = "device_location"
)

// defaultDeviceName is reported until the operator names the node.
const defaultDeviceName = "PixelNode"

// DeviceData is the node's identity and build information.
type DeviceData struct {
	Name     string       `json:"name" doc:"Operator-assigned node name"`
	Location string       `json:"location" doc:"Free-form placement note, e.g. 'garage eaves'"`
	Profile  string       `json:"profile" doc:"Active board profile name"`
	Channels int          `json:"channels" doc:"Number of physical output channels"`
	Version  version.Info `json:"version"`
}

// DeviceResponse wraps the device identity payload.
type DeviceResponse struct {
	Body DeviceData
}

// UpdateDeviceRequest renames or relocates the node. Omitted fields keep
// their stored value.
type UpdateDeviceRequest struct {
	Body struct {
		Name     *string `json:"name,omitempty" maxLength:"64" example:"porch-node" doc:"Operator-assigned node name"`
		Location *string `json:"location,omitempty" maxLength:"128" doc:"Free-form placement note"`
	}
}

// NetworkResponse reports the node's reachable addresses and WiFi state.
type NetworkResponse struct {
	Body struct {
		Interfaces []network.Interface `json:"interfaces"`
		WiFi       *wifi.Status        `json:"wifi,omitempty"`
	}
}

// InputStatusResponse is the external input receiver's live status.
type InputStatusResponse struct {
	Body struct {
		Enabled bool         `json:"enabled"`
		Listen  string       `json:"listen,omitempty" doc:"Bound UDP listen address"`
		Stats   *input.Stats `json:"stats,omitempty"`
	}
}

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/v1/device",
		Summary:     "Get Device",
		Description: "Get the node's identity, board profile and build information",
		Tags:        []string{"device"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*DeviceResponse, error) {
		data, err := s.deviceData(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read device settings", err)
		}
		return &DeviceResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-device",
		Method:      http.MethodPut,
		Path:        "/api/v1/device",
		Summary:     "Update Device",
		Description: "Set the node's name and location. Omitted fields are left unchanged.",
		Tags:        []string{"device"},
		Errors:      []int{500},
	}, func(ctx context.Context, in *UpdateDeviceRequest) (*DeviceResponse, error) {
		if in.Body.Name != nil {
			if _, err := s.settings.Upsert(ctx, settingDeviceName, *in.Body.Name); err != nil {
				return nil, huma.Error500InternalServerError("Failed to save device name", err)
			}
		}
		if in.Body.Location != nil {
			if _, err := s.settings.Upsert(ctx, settingDeviceLocation, *in.Body.Location); err != nil {
				return nil, huma.Error500InternalServerError("Failed to save device location", err)
			}
		}
		data, err := s.deviceData(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read device settings", err)
		}
		return &DeviceResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device-network",
		Method:      http.MethodGet,
		Path:        "/api/v1/device/network",
		Summary:     "Get Network Info",
		Description: "List the node's reachable network interfaces and WiFi connectivity",
		Tags:        []string{"device"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*NetworkResponse, error) {
		interfaces, err := network.ListInterfaces()
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to list network interfaces", err)
		}
		resp := &NetworkResponse{}
		resp.Body.Interfaces = interfaces
		if s.wifi != nil {
			status, err := s.wifi.GetStatus(ctx)
			if err != nil {
				log.Printf("⚠️ WiFi status unavailable: %v", err)
			} else {
				resp.Body.WiFi = status
			}
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-input-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/input/status",
		Summary:     "Get Input Status",
		Description: "Get the external input receiver's packet counters and last seen source",
		Tags:        []string{"input"},
	}, func(ctx context.Context, in *struct{}) (*InputStatusResponse, error) {
		resp := &InputStatusResponse{}
		if s.input == nil {
			return resp, nil
		}
		resp.Body.Enabled = true
		if addr := s.input.Addr(); addr != nil {
			resp.Body.Listen = addr.String()
		}
		stats := s.input.GetStats()
		resp.Body.Stats = &stats
		return resp, nil
	})
}

// deviceData assembles the identity payload from the settings store and the
// orchestrator's static facts.
func (s *Server) deviceData(ctx context.Context) (DeviceData, error) {
	data := DeviceData{
		Profile:  s.outputs.ProfileName(),
		Channels: s.outputs.ChannelCount(),
		Version:  version.Get(),
	}
	var err error
	if data.Name, err = s.settings.ValueOr(ctx, settingDeviceName, defaultDeviceName); err != nil {
		return data, err
	}
	if data.Location, err = s.settings.ValueOr(ctx, settingDeviceLocation, ""); err != nil {
		return data, err
	}
	return data, nil
}
