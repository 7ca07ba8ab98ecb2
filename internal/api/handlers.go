package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/protocol"
)

const maxBodyBytes = 64 << 10

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	phase := s.ctrl.State().Phase
	alive := s.ctrl.EngineAlive()

	resp := HealthzResponse{
		Status:        "ok",
		Phase:         phase.String(),
		EngineAlive:   alive,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}

	status := http.StatusOK
	if phase != client.PhaseRunning || !alive {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

// handleState handles GET /state. ?sorted=true orders the queue by timestamp.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.State()
	if sorted, _ := strconv.ParseBool(r.URL.Query().Get("sorted")); sorted {
		st.PresetQueue = st.SortedQueue()
	}
	respondJSON(w, http.StatusOK, st)
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.ctrl.Stats())
}

// handleSetTimestamp handles POST /timestamp.
func (s *Server) handleSetTimestamp(w http.ResponseWriter, r *http.Request) {
	var req TimestampRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}
	if req.TimestampMs == nil {
		s.writeError(w, http.StatusBadRequest, "timestampMs is required")
		return
	}

	s.respondCommand(w, protocol.KindSetTimestamp, s.ctrl.SetTimestamp(*req.TimestampMs))
}

// handleLoadPreset handles POST /presets.
func (s *Server) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	var req LoadPresetRequest
	if !s.decodeBody(w, r, &req, false) {
		return
	}

	s.respondCommand(w, protocol.KindLoadPreset, s.ctrl.LoadPreset(req.PresetName, req.StartTimestampMs))
}

// handleDeletePreset handles DELETE /presets/{name}?timestampMs=n.
func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid preset name")
		return
	}

	raw := r.URL.Query().Get("timestampMs")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "timestampMs query parameter is required")
		return
	}
	at, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "timestampMs must be a non-negative integer")
		return
	}

	s.respondCommand(w, protocol.KindDeletePreset, s.ctrl.DeletePreset(name, at))
}

// handleStartPreview handles POST /preview/start.
func (s *Server) handleStartPreview(w http.ResponseWriter, r *http.Request) {
	var req StartPreviewRequest
	if !s.decodeBody(w, r, &req, true) {
		return
	}

	s.respondCommand(w, protocol.KindStartPreview, s.ctrl.StartPreview(req.FromTimestampMs))
}

// handleStopPreview handles POST /preview/stop.
func (s *Server) handleStopPreview(w http.ResponseWriter, r *http.Request) {
	s.respondCommand(w, protocol.KindStopPreview, s.ctrl.StopPreview())
}

// decodeBody decodes a JSON body into v. It writes the error response and
// returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return true
		}
		if errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// respondCommand maps a command result onto a status code.
func (s *Server) respondCommand(w http.ResponseWriter, kind protocol.Kind, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, CommandResponse{Status: "sent", Kind: kind, Name: kind.String()})
	case errors.Is(err, client.ErrInvalidArgument):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, client.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, client.ErrWriteFailed):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("command failed", "kind", kind.String(), "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
