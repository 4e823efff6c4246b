// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/worldviewer/internal/layer"
	"github.com/holomush/worldviewer/pkg/errutil"
)

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

type positionRequest struct {
	Index *int `json:"index"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// handleListLayers writes the current layer views in draw order.
func (s *Server) handleListLayers(w http.ResponseWriter, _ *http.Request) {
	c := s.layers.Load()
	if c == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no session open"})
		return
	}
	writeJSON(w, http.StatusOK, c.Views())
}

// handleSetVisibility toggles one layer.
func (s *Server) handleSetVisibility(w http.ResponseWriter, r *http.Request) {
	c := s.layers.Load()
	if c == nil {
		s.metrics.LayerUpdates.WithLabelValues("unavailable").Inc()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no session open"})
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Visible == nil {
		s.metrics.LayerUpdates.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"visible": true|false}`})
		return
	}

	key := r.PathValue("key")
	if err := c.SetVisible(key, *req.Visible); err != nil {
		s.writeLayerError(w, err)
		return
	}
	l, ok := c.Get(key)
	if !ok {
		s.writeLayerError(w, oops.Code("LAYER_NOT_FOUND").With("layer", key).Errorf("layer %s not found", key))
		return
	}

	s.metrics.LayerUpdates.WithLabelValues("ok").Inc()
	slog.Info("layer visibility changed", "layer", key, "visible", *req.Visible)
	writeJSON(w, http.StatusOK, l.View())
}

// handleSetPosition moves one layer to a new draw-order index and writes the
// resulting order.
func (s *Server) handleSetPosition(w http.ResponseWriter, r *http.Request) {
	c := s.layers.Load()
	if c == nil {
		s.metrics.LayerUpdates.WithLabelValues("unavailable").Inc()
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no session open"})
		return
	}

	var req positionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Index == nil {
		s.metrics.LayerUpdates.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: `body must be {"index": <int>}`})
		return
	}

	key := r.PathValue("key")
	if err := c.Move(key, *req.Index); err != nil {
		s.writeLayerError(w, err)
		return
	}

	s.metrics.LayerUpdates.WithLabelValues("ok").Inc()
	slog.Info("layer moved", "layer", key, "index", *req.Index)
	writeJSON(w, http.StatusOK, c.Views())
}

// writeLayerError maps collection error codes to HTTP statuses.
func (s *Server) writeLayerError(w http.ResponseWriter, err error) {
	code := errutil.Code(err)
	switch code {
	case "LAYER_NOT_FOUND":
		s.metrics.LayerUpdates.WithLabelValues("not_found").Inc()
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: code})
	case "LAYER_INDEX_OUT_OF_RANGE":
		s.metrics.LayerUpdates.WithLabelValues("bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: code})
	default:
		s.metrics.LayerUpdates.WithLabelValues("error").Inc()
		errutil.LogError(slog.Default(), "layer update failed", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: code})
	}
}

// SetLayers publishes the collection served by the layer endpoints. A nil
// collection marks the server not ready.
func (s *Server) SetLayers(c *layer.Collection) {
	s.layers.Store(c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}
