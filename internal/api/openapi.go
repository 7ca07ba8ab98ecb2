package api

import "net/http"

// handleOpenAPI handles GET /openapi.json (no auth).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the control routes.
func buildOpenAPIDoc() map[string]any {
	commandResponses := map[string]any{
		"202": map[string]any{"description": "Command written to the engine"},
		"400": map[string]any{"description": "Invalid argument"},
		"401": map[string]any{"description": "Missing or invalid bearer token"},
		"502": map[string]any{"description": "Write to the engine failed"},
		"503": map[string]any{"description": "Engine channel closed"},
	}
	secured := []any{map[string]any{"BearerAuth": []string{}}}

	command := func(id, summary string, body map[string]any) map[string]any {
		op := map[string]any{
			"operationId": id,
			"summary":     summary,
			"tags":        []string{"commands"},
			"responses":   commandResponses,
			"security":    secured,
		}
		if body != nil {
			op["requestBody"] = map[string]any{
				"required": true,
				"content": map[string]any{
					"application/json": map[string]any{"schema": body},
				},
			}
		}
		return op
	}

	uintProp := map[string]any{"type": "integer", "minimum": 0}
	object := func(required []string, props map[string]any) map[string]any {
		return map[string]any{"type": "object", "required": required, "properties": props}
	}

	paths := map[string]any{
		"/healthz": map[string]any{
			"get": map[string]any{
				"operationId": "healthz",
				"summary":     "Engine and client liveness",
				"responses": map[string]any{
					"200": map[string]any{"description": "Running"},
					"503": map[string]any{"description": "Not running"},
				},
			},
		},
		"/state": map[string]any{
			"get": map[string]any{
				"operationId": "getState",
				"summary":     "Snapshot of the client state",
				"parameters": []any{map[string]any{
					"name": "sorted", "in": "query", "schema": map[string]any{"type": "boolean"},
				}},
				"responses": map[string]any{"200": map[string]any{"description": "Client state"}},
				"security":  secured,
			},
		},
		"/stats": map[string]any{
			"get": map[string]any{
				"operationId": "getStats",
				"summary":     "Traffic counters",
				"responses":   map[string]any{"200": map[string]any{"description": "Counters"}},
				"security":    secured,
			},
		},
		"/timestamp": map[string]any{
			"post": command("setTimestamp", "Send the playback position",
				object([]string{"timestampMs"}, map[string]any{"timestampMs": uintProp})),
		},
		"/presets": map[string]any{
			"post": command("loadPreset", "Schedule a preset",
				object([]string{"presetName"}, map[string]any{
					"presetName":       map[string]any{"type": "string", "minLength": 1},
					"startTimestampMs": uintProp,
				})),
		},
		"/presets/{name}": map[string]any{
			"delete": func() map[string]any {
				op := command("deletePreset", "Remove a scheduled preset", nil)
				op["parameters"] = []any{
					map[string]any{"name": "name", "in": "path", "required": true, "schema": map[string]any{"type": "string"}},
					map[string]any{"name": "timestampMs", "in": "query", "required": true, "schema": uintProp},
				}
				return op
			}(),
		},
		"/preview/start": map[string]any{
			"post": command("startPreview", "Start preview playback",
				object([]string{}, map[string]any{"fromTimestampMs": uintProp})),
		},
		"/preview/stop": map[string]any{
			"post": command("stopPreview", "Stop preview playback", nil),
		},
		"/events": map[string]any{
			"get": map[string]any{
				"operationId": "events",
				"summary":     "Server-sent stream of engine notifications",
				"responses": map[string]any{"200": map[string]any{
					"description": "text/event-stream",
				}},
				"security": secured,
			},
		},
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "lvsctl control API",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}
