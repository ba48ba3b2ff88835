// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/testutil"
)

type fakeIndex struct {
	count uint64
	err   error
}

func (f fakeIndex) Count() (uint64, error) { return f.count, f.err }

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	return testutil.TestDB(t)
}

func newTestHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()
	return NewHealthHandler(testDB(t), nil, "", "v1.0.0")
}

// withCaller attaches an API key holding perms to the request.
func withCaller(r *http.Request, perms ...string) *http.Request {
	key := store.ApiKey{ID: 1, Name: "probe", Permissions: model.PermissionsToJSON(perms), IsActive: true}
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyAPIKey, key))
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

func TestHealthHandler_Health_Public(t *testing.T) {
	handler := newTestHealthHandler(t)

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil))

	assertStatus(t, w.Code, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}

	resp := decodeMap(t, w)
	if resp["status"] != StatusHealthy {
		t.Errorf("status = %v; want healthy", resp["status"])
	}
	for _, field := range []string{"uptime", "version", "checks", "timestamp", "system"} {
		if _, ok := resp[field]; ok {
			t.Errorf("public response should not contain %s", field)
		}
	}
}

func TestHealthHandler_Health_Authenticated(t *testing.T) {
	handler := newTestHealthHandler(t)

	w := httptest.NewRecorder()
	handler.Health(w, withCaller(httptest.NewRequest(http.MethodGet, "/health", nil), model.PermissionThemesWrite))

	assertStatus(t, w.Code, http.StatusOK)
	var status HealthStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.Version != "v1.0.0" || status.Uptime == "" {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Checks != nil {
		t.Error("non-admin callers should not see individual checks")
	}
}

func TestHealthHandler_Health_Admin(t *testing.T) {
	db := testDB(t)
	handler := NewHealthHandler(db, fakeIndex{count: 42}, "", "v1.0.0")

	tests := []struct {
		name           string
		path           string
		wantSystemInfo bool
	}{
		{"checks without verbose", "/health", false},
		{"checks with verbose", "/health?verbose=true", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Health(w, withCaller(httptest.NewRequest(http.MethodGet, tt.path, nil), model.PermissionAdmin))

			assertStatus(t, w.Code, http.StatusOK)
			var status HealthStatus
			if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			for _, name := range []string{"database", "disk", "search"} {
				if c, ok := status.Checks[name]; !ok || c.Status != StatusHealthy {
					t.Errorf("check %s = %+v", name, c)
				}
			}
			if got := status.Checks["search"].Message; got != "42 documents" {
				t.Errorf("search message = %q", got)
			}
			if (status.System != nil) != tt.wantSystemInfo {
				t.Errorf("system info present = %v, want %v", status.System != nil, tt.wantSystemInfo)
			}
		})
	}
}

func TestHealthHandler_Health_Degraded(t *testing.T) {
	tests := []struct {
		name    string
		handler func(t *testing.T) *HealthHandler
	}{
		{"closed database", func(t *testing.T) *HealthHandler {
			db := testDB(t)
			_ = db.Close()
			return NewHealthHandler(db, nil, "", "v1")
		}},
		{"broken index", func(t *testing.T) *HealthHandler {
			return NewHealthHandler(testDB(t), fakeIndex{err: errors.New("index closed")}, "", "v1")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(t).Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assertStatus(t, w.Code, http.StatusServiceUnavailable)
			if resp := decodeMap(t, w); resp["status"] != StatusDegraded {
				t.Errorf("status = %v; want degraded", resp["status"])
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHealthHandler(t).Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeMap(t, w); resp["status"] != "alive" {
		t.Errorf("status = %v; want alive", resp["status"])
	}
}

func TestHealthHandler_Readiness(t *testing.T) {
	w := httptest.NewRecorder()
	newTestHealthHandler(t).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assertStatus(t, w.Code, http.StatusOK)
	if resp := decodeMap(t, w); resp["status"] != "ready" {
		t.Errorf("status = %v; want ready", resp["status"])
	}
}

func TestHealthHandler_Readiness_NotReady(t *testing.T) {
	db := testDB(t)
	_ = db.Close()
	handler := NewHealthHandler(db, nil, "", "v1")

	w := httptest.NewRecorder()
	handler.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assertStatus(t, w.Code, http.StatusServiceUnavailable)
	resp := decodeMap(t, w)
	if resp["status"] != "not_ready" {
		t.Errorf("status = %v; want not_ready", resp["status"])
	}
	if _, ok := resp["message"]; ok {
		t.Error("anonymous callers should not see error details")
	}

	w = httptest.NewRecorder()
	handler.Readiness(w, withCaller(httptest.NewRequest(http.MethodGet, "/health/ready", nil)))
	if resp := decodeMap(t, w); resp["message"] == nil {
		t.Error("authenticated callers should see error details")
	}
}

func TestHealthHandler_DiskCheck(t *testing.T) {
	handler := NewHealthHandler(testDB(t), nil, filepath.Join(t.TempDir(), "missing"), "v1")
	if c := handler.checkDiskSpace(); c.Status != StatusHealthy {
		t.Errorf("missing themes directory should be healthy, got %+v", c)
	}

	handler = NewHealthHandler(testDB(t), nil, t.TempDir(), "v1")
	c := handler.checkDiskSpace()
	if c.Status == StatusUnhealthy || c.Message == "" {
		t.Errorf("unexpected disk check %+v", c)
	}
}

func TestHealthHandler_StartTime(t *testing.T) {
	before := time.Now()
	handler := newTestHealthHandler(t)
	if handler.StartTime().Before(before) || handler.StartTime().After(time.Now()) {
		t.Errorf("StartTime = %v", handler.StartTime())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.bytes, got, tt.want)
		}
	}
}
