package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/analysis"
	"github.com/sells-group/variance-cli/internal/config"
	"github.com/sells-group/variance-cli/internal/forecast"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/narrative"
	"github.com/sells-group/variance-cli/internal/runner"
	"github.com/sells-group/variance-cli/internal/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Analysis:  analysis.DefaultConfig(),
		Narrative: narrative.DefaultConfig(),
		Forecast:  forecast.DefaultConfig(),
	}
	cfg.Analysis.MaterialityAbs = 100
	cfg.Analysis.MaterialityPct = 0.1
	cfg.Narrative.UseLLM = false
	cfg.Forecast.UseLLM = false
	return cfg
}

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	r, err := runner.New(testConfig(), nil)
	require.NoError(t, err)

	return newRouter(r, st), st
}

func multipartCSV(t *testing.T, filename, body string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyzeUpload(t *testing.T) {
	t.Parallel()
	router, st := newTestRouter(t)

	csv := "department,account,budget,actual\nOps,rent,1000,1300\nIT,cloud,500,480\n"
	body, contentType := multipartCSV(t, "q1.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "q1.csv", run.Source)
	assert.Equal(t, 2, run.RowCount)
	require.NotNil(t, run.Summary)
	assert.Equal(t, narrative.ModeRuleBased, run.Explanation.Mode)

	// Persisted.
	saved, err := st.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, "q1.csv", saved.Source)
}

func TestAnalyzeUploadMissingFile(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewBufferString("not multipart"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeUploadBadSchema(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	body, contentType := multipartCSV(t, "bad.csv", "department,budget\nOps,1000\n")
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing required columns")
}

func TestListRunsEndpoint(t *testing.T) {
	t.Parallel()
	router, st := newTestRouter(t)
	ctx := context.Background()

	r, err := runner.New(testConfig(), nil)
	require.NoError(t, err)
	for _, source := range []string{"a.csv", "b.csv"} {
		run, runErr := r.AnalyzeTable(ctx, source, analysis.Table{
			Columns: []string{"department", "account", "budget", "actual"},
			Rows: []analysis.Row{
				{"department": "Ops", "account": "rent", "budget": 100.0, "actual": 150.0},
			},
		})
		require.NoError(t, runErr)
		require.NoError(t, st.SaveRun(ctx, run))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Runs  []model.Run `json:"runs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	// Source filter narrows to one.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?source=a.csv", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "a.csv", resp.Runs[0].Source)
}

func TestGetRunEndpointNotFound(t *testing.T) {
	t.Parallel()
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/no-such-id", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "run not found")
}
