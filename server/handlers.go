package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hannes/pellucid-sanitizer/anonymizer"
	"github.com/hannes/pellucid-sanitizer/metrics"
	"github.com/hannes/pellucid-sanitizer/pii"
	"github.com/hannes/pellucid-sanitizer/pii/detectors"
	"github.com/hannes/pellucid-sanitizer/sanitizer"
	"github.com/hannes/pellucid-sanitizer/store"
	"github.com/hannes/pellucid-sanitizer/validator"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 10 << 20

const remoteInfoTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// optionsRequest carries the per-call switches; omitted fields take the
// server defaults
type optionsRequest struct {
	PrivacyLevel    *string `json:"privacy_level"`
	PreserveContext *bool   `json:"preserve_context"`
}

func (s *Server) options(req optionsRequest) (sanitizer.Options, error) {
	opts := s.defaults
	if req.PrivacyLevel != nil {
		level, err := detectors.ParsePrivacyLevel(*req.PrivacyLevel)
		if err != nil {
			return opts, err
		}
		opts.Level = level
	}
	if req.PreserveContext != nil {
		opts.PreserveContext = *req.PreserveContext
	}
	return opts, nil
}

// writeServiceError maps orchestrator errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sanitizer.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, sanitizer.ErrLocalFailure):
		writeError(w, http.StatusInternalServerError, "local_failure", "sanitization failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":  "ok",
		"service": "pellucid-sanitizer",
		"uptime":  time.Since(s.startTime).String(),
	}
	if r.URL.Query().Get("detail") == "true" {
		components := map[string]string{
			"local_sanitizer": "ok",
			"store":           "ok",
		}
		components["remote_anonymizer"] = "disabled"
		if s.remote != nil {
			ctx, cancel := context.WithTimeout(r.Context(), remoteInfoTimeout)
			defer cancel()
			components["remote_anonymizer"] = "ok"
			if err := s.remote.Health(ctx); err != nil {
				components["remote_anonymizer"] = "unavailable"
			}
		}
		resp["components"] = components
	}
	writeJSON(w, http.StatusOK, resp)
}

type catalogInfo struct {
	EntityTypes []detectors.EntityType            `json:"entity_types"`
	Levels      map[string][]detectors.EntityType `json:"levels"`
	Weights     map[detectors.EntityType]float64  `json:"weights"`
}

type statsResponse struct {
	Catalog     catalogInfo       `json:"catalog"`
	Metrics     metrics.Snapshot  `json:"metrics"`
	Submissions int64             `json:"submissions"`
	Remote      *anonymizer.Stats `json:"remote,omitempty"`
	RemoteError string            `json:"remote_error,omitempty"`
}

func (s *Server) catalogInfo() catalogInfo {
	catalog := s.detector.Catalog()
	info := catalogInfo{
		EntityTypes: catalog.Types(),
		Levels:      make(map[string][]detectors.EntityType),
		Weights:     make(map[detectors.EntityType]float64),
	}
	for _, level := range []detectors.PrivacyLevel{detectors.Standard, detectors.Enhanced, detectors.Maximum} {
		var active []detectors.EntityType
		for _, t := range info.EntityTypes {
			if level.Active(t) {
				active = append(active, t)
			}
		}
		info.Levels[level.String()] = active
	}
	for _, t := range info.EntityTypes {
		info.Weights[t] = catalog.Weight(t)
	}
	return info
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Catalog: s.catalogInfo(),
		Metrics: s.service.Metrics().Snapshot(),
	}
	if n, err := s.store.Count(r.Context()); err == nil {
		resp.Submissions = n
	} else {
		s.logger.Warn().Err(err).Msg("failed to count submissions")
	}
	if s.remote != nil {
		ctx, cancel := context.WithTimeout(r.Context(), remoteInfoTimeout)
		defer cancel()
		stats, err := s.remote.Stats(ctx)
		if err != nil {
			resp.RemoteError = err.Error()
		} else {
			resp.Remote = &stats
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type sanitizeRequest struct {
	Text string `json:"text"`
	optionsRequest
}

type sanitizeResponse struct {
	pii.SanitizationResult
	Degraded bool `json:"degraded"`
	Safe     bool `json:"safe"`
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opts, err := s.options(req.optionsRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.service.Sanitize(r.Context(), req.Text, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sanitizeResponse{
		SanitizationResult: out.SanitizationResult,
		Degraded:           out.Degraded,
		Safe:               validator.IsSafe(out.SanitizationResult),
	})
}

type batchRequest struct {
	Texts []string `json:"texts"`
	optionsRequest
}

type batchItemResponse struct {
	*pii.SanitizationResult
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

type batchResponse struct {
	Results             []batchItemResponse `json:"results"`
	AveragePrivacyScore float64             `json:"average_privacy_score"`
	Degraded            bool                `json:"degraded"`
}

func (s *Server) handleSanitizeBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Texts) > s.maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large",
			fmt.Sprintf("batch of %d texts exceeds the limit of %d", len(req.Texts), s.maxBatchSize))
		return
	}
	opts, err := s.options(req.optionsRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.service.SanitizeBatch(r.Context(), req.Texts, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := batchResponse{
		Results:             make([]batchItemResponse, len(out.Items)),
		AveragePrivacyScore: out.AveragePrivacyScore,
		Degraded:            out.Degraded,
	}
	for i, item := range out.Items {
		if item.Err != nil {
			resp.Results[i] = batchItemResponse{Error: item.Err.Error()}
			continue
		}
		result := item.Result
		resp.Results[i] = batchItemResponse{SanitizationResult: &result, Degraded: item.Degraded}
	}
	writeJSON(w, http.StatusOK, resp)
}

type validateResponse struct {
	Safe    bool     `json:"safe"`
	Reasons []string `json:"reasons"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var result pii.SanitizationResult
	if !decodeJSON(w, r, &result) {
		return
	}
	resp := validateResponse{Safe: true, Reasons: []string{}}
	if err := validator.Check(result); err != nil {
		resp.Safe = false
		var verr *validator.Error
		if errors.As(err, &verr) {
			resp.Reasons = verr.Reasons
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type detectedEntity struct {
	detectors.EntityMatch
	Confidence float64 `json:"confidence"`
}

type detectResponse struct {
	Entities     []detectedEntity `json:"entities"`
	PrivacyLevel string           `json:"privacy_level"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opts, err := s.options(req.optionsRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "text is required")
		return
	}

	catalog := s.detector.Catalog()
	matches := s.detector.Detect(req.Text, opts.Level)
	resp := detectResponse{
		Entities:     make([]detectedEntity, 0, len(matches)),
		PrivacyLevel: opts.Level.String(),
	}
	for _, m := range matches {
		resp.Entities = append(resp.Entities, detectedEntity{EntityMatch: m, Confidence: catalog.Weight(m.Type)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCreateSubmission sanitizes, validates and stores a payload. A result
// that fails validation is re-sanitized once at the next stricter level.
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	opts, err := s.options(req.optionsRequest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.service.Sanitize(r.Context(), req.Text, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	m := s.service.Metrics()
	checkErr := validator.Check(out.SanitizationResult)
	if checkErr != nil {
		m.ValidationFailures.Add(1)
		if stricter, ok := opts.Level.Stricter(); ok {
			m.Escalations.Add(1)
			s.logger.Info().
				Str("from", opts.Level.String()).
				Str("to", stricter.String()).
				Msg("validation failed, escalating privacy level")
			opts.Level = stricter
			out, err = s.service.Sanitize(r.Context(), req.Text, opts)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			if checkErr = validator.Check(out.SanitizationResult); checkErr != nil {
				m.ValidationFailures.Add(1)
			}
		}
	}
	if checkErr != nil {
		resp := errorResponse{Error: "validation_failed", Message: "sanitized text did not pass validation"}
		var verr *validator.Error
		if errors.As(checkErr, &verr) {
			resp.Reasons = verr.Reasons
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	sub := store.NewSubmission(uuid.NewString(), opts.Level.String(), out.SanitizationResult, out.Degraded)
	if err := s.store.Save(r.Context(), sub); err != nil {
		s.logger.Error().Err(err).Str("submission_id", sub.ID).Msg("failed to save submission")
		writeError(w, http.StatusInternalServerError, "internal", "failed to save submission")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}
	sub, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("submission_id", id).Msg("failed to load submission")
		writeError(w, http.StatusInternalServerError, "internal", "failed to load submission")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
