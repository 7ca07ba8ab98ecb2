package api

import "github.com/mattjoyce/lvsctl/internal/protocol"

// TimestampRequest is the JSON body for POST /timestamp.
type TimestampRequest struct {
	TimestampMs *uint64 `json:"timestampMs"`
}

// LoadPresetRequest is the JSON body for POST /presets.
type LoadPresetRequest struct {
	PresetName       string `json:"presetName"`
	StartTimestampMs uint64 `json:"startTimestampMs"`
}

// StartPreviewRequest is the JSON body for POST /preview/start.
// An empty body starts from zero.
type StartPreviewRequest struct {
	FromTimestampMs uint64 `json:"fromTimestampMs"`
}

// CommandResponse is returned when a command was written to the engine.
type CommandResponse struct {
	Status string        `json:"status"`
	Kind   protocol.Kind `json:"kind"`
	Name   string        `json:"name"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	Phase         string `json:"phase"`
	EngineAlive   bool   `json:"engine_alive"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
