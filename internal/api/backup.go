package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// BackupData is a portable snapshot of everything an operator configures on
// a node: the settings rows plus the composite output document. Restoring it
// on a replacement board reproduces the node.
type BackupData struct {
	Settings map[string]string `json:"settings"`
	Output   any               `json:"output,omitempty" doc:"Persisted output configuration document"`
}

// BackupResponse wraps the exported snapshot.
type BackupResponse struct {
	Body BackupData
}

// RestoreBackupRequest uploads a snapshot. Both sections are optional.
type RestoreBackupRequest struct {
	Body BackupData
}

// RestoreBackupResponse reports what the restore touched.
type RestoreBackupResponse struct {
	Body struct {
		SettingsRestored int  `json:"settings_restored"`
		OutputAccepted   bool `json:"output_accepted" doc:"Whether the restored output document passed validation as-is"`
	}
}

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "export-backup",
		Method:      http.MethodGet,
		Path:        "/api/v1/backup",
		Summary:     "Export Backup",
		Description: "Export the node's settings and output configuration as one portable document",
		Tags:        []string{"backup"},
		Errors:      []int{500},
	}, func(ctx context.Context, input *struct{}) (*BackupResponse, error) {
		settings, err := s.settings.FindAll(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read settings", err)
		}
		data := BackupData{Settings: make(map[string]string, len(settings))}
		for _, setting := range settings {
			data.Settings[setting.Key] = setting.Value
		}
		if raw, err := s.outputs.GetConfig(); err == nil {
			var doc any
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, huma.Error500InternalServerError("Failed to decode output config", err)
			}
			data.Output = doc
		}
		return &BackupResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "restore-backup",
		Method:      http.MethodPut,
		Path:        "/api/v1/backup",
		Summary:     "Restore Backup",
		Description: "Restore a previously exported snapshot. Settings are upserted row by row; the output document goes through the normal validation path.",
		Tags:        []string{"backup"},
		Errors:      []int{400, 500},
	}, func(ctx context.Context, input *RestoreBackupRequest) (*RestoreBackupResponse, error) {
		resp := &RestoreBackupResponse{}
		for key, value := range input.Body.Settings {
			if _, err := s.settings.Upsert(ctx, key, value); err != nil {
				return nil, huma.Error500InternalServerError("Failed to restore setting "+key, err)
			}
			resp.Body.SettingsRestored++
		}
		if input.Body.Output != nil {
			raw, err := json.Marshal(input.Body.Output)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid output section", err)
			}
			accepted, err := s.outputs.SetConfig(raw)
			if err != nil {
				return nil, huma.Error400BadRequest("Invalid output section", err)
			}
			resp.Body.OutputAccepted = accepted
		}
		return resp, nil
	})
}
