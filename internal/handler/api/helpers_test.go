// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/scheduler"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/service"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/testutil"
	"github.com/olegiv/oforum/internal/theme"
	"github.com/olegiv/oforum/internal/version"
)

var testThemeFS = fstest.MapFS{
	"default/theme.json": {Data: []byte(`{
		"name": "Default",
		"version": "1.0.0",
		"assets": {
			"header": "header.html",
			"styles": "styles.css",
			"variables": "variables.json"
		}
	}`)},
	"default/header.html":    {Data: []byte("<header>default</header>")},
	"default/styles.css":     {Data: []byte("body{color:black}")},
	"default/variables.json": {Data: []byte(`{"global":{"color":"#000","size":14}}`)},
	"dark/theme.json":        {Data: []byte(`{"name":"Dark","assets":{"variables":"variables.json"}}`)},
	"dark/variables.json":    {Data: []byte(`{"global":{"color":"#fff"}}`)},
}

// testServer is the v1 API mounted on a router backed by a fresh database.
type testServer struct {
	db      *sql.DB
	router  http.Handler
	userID  int64
	failJob bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	db := testutil.TestSeededDB(t)
	system, err := store.New(db).GetUserByName(ctx, store.SystemUserName)
	if err != nil {
		t.Fatalf("GetUserByName: %v", err)
	}

	files := theme.NewManager(testThemeFS, "", logger)
	if err := files.LoadThemes(); err != nil {
		t.Fatalf("LoadThemes: %v", err)
	}

	ts := &testServer{db: db, userID: system.ID}

	jobs := scheduler.NewRegistry(db, cron.New(), logger)
	if err := jobs.Register(ctx, scheduler.Job{
		Name:     "noop",
		Schedule: "0 3 * * *",
		Run: func(context.Context) error {
			if ts.failJob {
				return errors.New("boom")
			}
			return nil
		},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	h := NewHandler(db, Services{
		Themes:      service.NewThemeService(db, files, testutil.TestCache(t), logger),
		Discussions: service.NewDiscussionService(db, nil, logger),
		Taxonomy:    service.NewTaxonomyService(db, logger),
		Search:      search.NewService(search.NewSQLEngine(db), logger, search.NewDiscussionType(db)),
		Jobs:        jobs,
	}, version.Info{Version: "v1.2.3", GitCommit: "abc1234"}, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		h.Routes(r, RouteOptions{})
	})
	ts.router = r
	return ts
}

// key creates an active API key bound to the system user.
func (ts *testServer) key(t *testing.T, permissions ...string) string {
	t.Helper()

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	now := store.Now()
	if _, err := store.New(ts.db).CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:        "test key",
		KeyHash:     model.HashAPIKey(rawKey),
		KeyPrefix:   prefix,
		Permissions: model.PermissionsToJSON(permissions),
		UserID:      sql.NullInt64{Int64: ts.userID, Valid: true},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return rawKey
}

// do sends a request through the router. body, when not nil, is encoded
// as JSON unless it is already a string.
func (ts *testServer) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, w.Code, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("expected code %q, got %q", expectedCode, resp.Error.Code)
	}
	return resp
}

// decodeData unmarshals the data member of a success response into dst and
// returns the meta member.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) *Meta {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
		Meta *Meta           `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if dst != nil {
		if err := json.Unmarshal(resp.Data, dst); err != nil {
			t.Fatalf("failed to unmarshal data: %v (%s)", err, resp.Data)
		}
	}
	return resp.Meta
}
