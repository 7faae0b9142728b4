package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bsaid97/go-attribute-transfer/config"
	"github.com/bsaid97/go-attribute-transfer/handlers"
	"github.com/bsaid97/go-attribute-transfer/layers"
	"github.com/bsaid97/go-attribute-transfer/transfer"
	"github.com/bsaid97/go-attribute-transfer/utils"
)

const (
	sourceLayerName = "source"
	targetLayerName = "target"
)

type server struct {
	engine  *transfer.Engine
	workers int
	logger  *slog.Logger
}

func newServer(cfg *config.Config, logger *slog.Logger) http.Handler {
	s := &server{
		engine:  transfer.NewEngine(logger, cfg.VertexTolerance),
		workers: cfg.ParseWorkers,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/transfer", s.transferHandler)
	mux.HandleFunc("/check-geometry", s.checkGeometryHandler)
	s.logger.Info("registered all HTTP handlers")
	return mux
}

// transferHandler expects a multipart form with "source" and "target"
// GeoJSON files and the sourceField, targetField and rule values. With
// format=zip the updated target layer is returned instead of the report.
func (s *server) transferHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("panic recovered in transferHandler", "panic", rec)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method, only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	form, err := utils.ReadMultiPartForm(r, sourceLayerName, targetLayerName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sourcePayload, ok := form.File(sourceLayerName)
	if !ok {
		http.Error(w, "ERROR: source layer file is required", http.StatusBadRequest)
		return
	}
	targetPayload, ok := form.File(targetLayerName)
	if !ok {
		http.Error(w, "ERROR: target layer file is required", http.StatusBadRequest)
		return
	}

	source, err := layers.ParseGeoJSON(sourceLayerName, []byte(sourcePayload), layers.ReadOptions{Workers: s.workers, ReadOnly: true})
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}
	target, err := layers.ParseGeoJSON(targetLayerName, []byte(targetPayload), layers.ReadOptions{
		Workers:  s.workers,
		ReadOnly: form.Value("targetReadOnly", "false") == "true",
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}

	result, err := handlers.Transfer(s.engine, layers.NewMemoryHost(source, target), handlers.TransferParams{
		SourceLayer: sourceLayerName,
		SourceField: form.Value("sourceField", ""),
		TargetLayer: targetLayerName,
		TargetField: form.Value("targetField", ""),
		Rule:        form.Value("rule", string(transfer.RuleIntersects)),
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), statusFor(err))
		return
	}

	if form.Value("format", "json") == "zip" {
		zipData, err := layers.Bundle(target, "transferred")
		if err != nil {
			http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusInternalServerError)
			return
		}
		sendZipResponse(w, zipData, "transferred.zip")
		return
	}
	sendJSON(w, handlers.NewReport(result))
}

// checkGeometryHandler reports invalid geometries of a GeoJSON
// FeatureCollection posted as the request body.
func (s *server) checkGeometryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method, only POST allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Error reading request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	layer, err := layers.ParseGeoJSON("layer", body, layers.ReadOptions{Workers: s.workers, ReadOnly: true})
	if err != nil {
		http.Error(w, fmt.Sprintf("ERROR: %v", err), http.StatusBadRequest)
		return
	}
	sendJSON(w, handlers.CheckGeometry(layer))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, transfer.ErrTypeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transfer.ErrNotEditable):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func sendZipResponse(w http.ResponseWriter, zipData []byte, filename string) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(zipData)
}
