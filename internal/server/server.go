package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/lead-impact/internal/config"
	"github.com/iwvelando/lead-impact/internal/impact"
	"github.com/iwvelando/lead-impact/pkg/calculator"
	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/iwvelando/lead-impact/pkg/output"
	"github.com/iwvelando/lead-impact/pkg/validation"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

const (
	sourceAPI    = "api"
	sourceUpload = "upload"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
}

type ctxKey struct{}

// NewHandler constructs the HTTP handler that serves the calculator form and API.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = constants.DefaultVersion
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion}

	mux := http.NewServeMux()

	// Single calculation from the form
	mux.Handle("/api/calculate", h.instrument("calculate", h.handleCalculate))

	// Batch calculation from an uploaded scenario file
	mux.Handle("/api/scenarios", h.instrument("scenarios", h.handleScenarios))

	mux.Handle("/api/version", h.instrument("version", h.handleVersion))

	mux.Handle("/metrics", h.instrument("metrics", promhttp.Handler().ServeHTTP))

	// Static assets (web UI)
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("/", h.instrument("static", http.FileServer(http.FS(sub)).ServeHTTP))

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument tags the request with an ID and records its latency.
func (h *handler) instrument(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(constants.RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(constants.RequestIDHeader, requestID)

		reqLogger := h.logger.With(zap.String("requestId", requestID))
		ctx := context.WithValue(r.Context(), ctxKey{}, reqLogger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))

		requestDuration.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}

func (h *handler) loggerFor(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return h.logger
}

type calculateResponse struct {
	calculator.Result
	Display  output.Display `json:"display"`
	Warnings []string       `json:"warnings,omitempty"`
}

type missingResponse struct {
	Error   string   `json:"error"`
	Title   string   `json:"title"`
	Missing []string `json:"missing"`
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	logger := h.loggerFor(r)

	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var input calculator.Input
	if err := decoder.Decode(&input); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, logger, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		calculationsTotal.WithLabelValues(sourceAPI, outcomeInvalid).Inc()
		h.respondError(w, logger, http.StatusBadRequest, fmt.Sprintf("failed to decode input: %v", err), op)
		return
	}

	outcome, err := impact.Run(logger, config.Scenario{Name: sourceAPI, Active: true, Inputs: input})
	if err != nil {
		calculationsTotal.WithLabelValues(sourceAPI, outcomeInvalid).Inc()
		var boundsErr *validation.BoundsError
		if errors.As(err, &boundsErr) {
			h.respondError(w, logger, http.StatusBadRequest, boundsErr.Error(), op)
			return
		}
		var rangeErr *validation.ResultRangeError
		if errors.As(err, &rangeErr) {
			h.respondError(w, logger, http.StatusBadRequest, rangeErr.Error(), op)
			return
		}
		h.respondError(w, logger, http.StatusInternalServerError, err.Error(), op)
		return
	}

	if !outcome.Complete() {
		recordMissing(sourceAPI, outcome.Missing)
		h.writeJSON(w, logger, http.StatusUnprocessableEntity, missingResponse{
			Error:   output.MissingMessage(outcome.Missing),
			Title:   constants.MissingFieldsTitle,
			Missing: outcome.Missing,
		})
		return
	}

	calculationsTotal.WithLabelValues(sourceAPI, outcomeSuccess).Inc()
	h.writeJSON(w, logger, http.StatusOK, calculateResponse{
		Result:   outcome.Result,
		Display:  output.NewDisplay(outcome.Result),
		Warnings: outcome.Warnings,
	})
}

type scenariosResponse struct {
	Scenarios []output.ScenarioRecord `json:"scenarios"`
	CSV       string                  `json:"csv"`
	Warnings  []string                `json:"warnings,omitempty"`
	Duration  string                  `json:"duration"`
}

func (h *handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleScenarios"
	logger := h.loggerFor(r)

	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, logger, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondError(w, logger, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, logger, http.StatusBadRequest, "missing scenario file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	conf, err := config.LoadConfigurationFromReader(file)
	if err != nil {
		h.respondError(w, logger, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := conf.ValidateConfiguration()

	var records []output.ScenarioRecord
	var completed []impact.Impact
	for _, scenario := range conf.ActiveScenarios() {
		outcome, err := impact.Run(logger, scenario)
		if err != nil {
			calculationsTotal.WithLabelValues(sourceUpload, outcomeInvalid).Inc()
			records = append(records, output.ScenarioRecord{Name: scenario.Name, Error: err.Error()})
			continue
		}
		if outcome.Complete() {
			calculationsTotal.WithLabelValues(sourceUpload, outcomeSuccess).Inc()
		} else {
			recordMissing(sourceUpload, outcome.Missing)
		}
		completed = append(completed, outcome)
		records = append(records, output.Records([]impact.Impact{outcome})...)
	}
	if records == nil {
		records = []output.ScenarioRecord{}
	}

	elapsed := time.Since(start)
	logger.Info("scenarios calculated",
		zap.String("op", op),
		zap.Int("scenarios", len(records)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, logger, http.StatusOK, scenariosResponse{
		Scenarios: records,
		CSV:       output.CsvString(completed),
		Warnings:  warnings,
		Duration:  elapsed.String(),
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, h.loggerFor(r), http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) respondError(w http.ResponseWriter, logger *zap.Logger, status int, msg string, op string) {
	logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, logger, status, map[string]string{"error": msg})
}

// writeJSON encodes payload before sending the header so an encoding
// failure still produces a well-formed error response.
func (h *handler) writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		logger.Error("failed to encode JSON response", zap.Error(err))
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Error("failed to write JSON response", zap.Error(err))
	}
}
