// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers for themes, discussions,
// taxonomy, search and scheduled jobs.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/scheduler"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/service"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/version"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// Services are the domain services the API exposes.
type Services struct {
	Themes      *service.ThemeService
	Discussions *service.DiscussionService
	Taxonomy    *service.TaxonomyService
	Search      *search.Service
	Jobs        *scheduler.Registry
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db      *sql.DB
	queries *store.Queries
	svc     Services
	version version.Info
	logger  *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(db *sql.DB, svc Services, info version.Info, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:      db,
		queries: store.New(db),
		svc:     svc,
		version: info,
		logger:  logger,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// newMeta builds pagination metadata for a page of a result set.
func newMeta(total int64, page, limit int) *Meta {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return &Meta{Total: total, Page: page, Limit: limit, Pages: pages}
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeServiceError maps a service error onto an API error response.
// Unexpected errors are logged and reported as 500 without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *model.ValidationError
	var cerr *model.ClientError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr.Fields)
	case errors.As(err, &cerr):
		WriteBadRequest(w, cerr.Message, nil)
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, capitalizeFirst(err.Error()))
	case errors.Is(err, model.ErrForbidden):
		WriteForbidden(w, capitalizeFirst(err.Error()))
	default:
		h.logger.Error("api request failed",
			"action", action,
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteInternalError(w, "Failed to "+action)
	}
}

// decodeJSON reads a JSON request body into dst. A 400 is written and false
// returned when the body is not valid JSON for dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is empty", nil)
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("Request body must not exceed %d bytes", maxErr.Limit), nil)
		default:
			WriteBadRequest(w, "Invalid JSON body: "+err.Error(), nil)
		}
		return false
	}
	if dec.More() {
		WriteBadRequest(w, "Request body must contain a single JSON value", nil)
		return false
	}
	return true
}

// parseIDParam parses a positive integer URL parameter. A 400 is written
// and false returned when it is not one.
func parseIDParam(w http.ResponseWriter, r *http.Request, param, entityName string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid "+entityName+" ID", nil)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string, verr *model.ValidationError) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		verr.Add(name, "must be a positive integer")
		return 0
	}
	return n
}

// capitalizeFirst returns s with its first letter upper-cased.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status      string   `json:"status"`
	API         string   `json:"api"`
	Version     string   `json:"version,omitempty"`
	GitCommit   string   `json:"gitCommit,omitempty"`
	Search      string   `json:"search,omitempty"`
	RecordTypes []string `json:"recordTypes,omitempty"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:    "ok",
		API:       "v1",
		Version:   h.version.Version,
		GitCommit: h.version.GitCommit,
	}
	if h.svc.Search != nil {
		resp.Search = h.svc.Search.Engine()
		resp.RecordTypes = h.svc.Search.RecordTypes()
	}
	WriteSuccess(w, resp, nil)
}

// AuthInfoResponse describes the API key making the request.
type AuthInfoResponse struct {
	KeyPrefix   string   `json:"keyPrefix"`
	Name        string   `json:"name"`
	UserID      int64    `json:"userID,omitempty"`
	Permissions []string `json:"permissions"`
}

// AuthInfo returns information about the authenticated API key.
func (h *Handler) AuthInfo(w http.ResponseWriter, r *http.Request) {
	apiKey := middleware.GetAPIKey(r)
	if apiKey == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	caller := middleware.GetCaller(r)
	perms := caller.Permissions
	if perms == nil {
		perms = []string{}
	}
	WriteSuccess(w, AuthInfoResponse{
		KeyPrefix:   apiKey.KeyPrefix,
		Name:        apiKey.Name,
		UserID:      caller.UserID,
		Permissions: perms,
	}, nil)
}
