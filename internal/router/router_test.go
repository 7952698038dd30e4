package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerylCAtieno/airline-extractor/internal/config"
	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/export"
	"github.com/BerylCAtieno/airline-extractor/internal/handlers"
	"github.com/BerylCAtieno/airline-extractor/internal/metrics"
	"github.com/BerylCAtieno/airline-extractor/internal/models"
	"github.com/BerylCAtieno/airline-extractor/internal/services"
	"github.com/BerylCAtieno/airline-extractor/internal/storage"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

type memRepo struct {
	mu   sync.Mutex
	runs map[string]*models.Extraction
}

func (r *memRepo) Create(_ context.Context, run *models.Extraction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*models.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id], nil
}

func (r *memRepo) List(context.Context, string, int) ([]*models.Extraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Extraction, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	return out, nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStorage) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := utils.NewNopLogger()
	cfg := &config.Config{MaxFileSize: 1 << 20, MaxFiles: 5, PreviewLimit: 200, ExtractWorkers: 2}
	eng := engine.New(nil, logger)
	m := metrics.New()
	svc := services.NewService(eng,
		&memRepo{runs: map[string]*models.Extraction{}},
		&memStorage{objects: map[string][]byte{}},
		m, cfg, logger)

	srv := httptest.NewServer(NewRouter(Dependencies{
		Service: svc,
		Engine:  eng,
		Metrics: m,
		Limits:  handlers.Limits{MaxFileSize: cfg.MaxFileSize, MaxFiles: cfg.MaxFiles},
		Logger:  logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

const golReport = "PNR;Bilhete;Data;Tarifa à Vista;Tarifa a Crédito;Taxa à Vista;Taxa a Crédito;Comissão;Incentivo;Valor Líquido\n" +
	"Vendas\n" +
	"ABC123;1234567890;05/01/2024;1.000,00;0,00;50,00;0,00;-60,00;0,00;990,00\n"

func upload(t *testing.T, url, airline, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("airline", airline))
	fw, err := mw.CreateFormFile("files", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestRouter_ExtractionRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv.URL+"/api/v1/extractions", "G3", "gol.txt", golReport)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID        string   `json:"id"`
		Columns   []string `json:"columns"`
		Rows      [][]any  `json:"rows"`
		TotalRows int      `json:"total_rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 1, created.TotalRows)
	require.Len(t, created.Rows, 1)

	got, err := http.Get(srv.URL + "/api/v1/extractions/" + created.ID)
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	file, err := http.Get(srv.URL + "/api/v1/extractions/" + created.ID + "/export")
	require.NoError(t, err)
	defer file.Body.Close()
	require.Equal(t, http.StatusOK, file.StatusCode)
	assert.Equal(t, export.ContentType, file.Header.Get("Content-Type"))

	var data bytes.Buffer
	_, err = data.ReadFrom(file.Body)
	require.NoError(t, err)
	tbl, err := export.ReadWorkbook(data.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, created.Columns, tbl.Columns())
}

func TestRouter_Endpoints(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/api/v1/health", status: http.StatusOK, body: `"status":"healthy"`},
		{path: "/api/v1/airlines", status: http.StatusOK, body: `"code":"AD"`},
		{path: "/api/v1/extractions/unknown", status: http.StatusNotFound, body: "Extraction not found"},
		{path: "/api/v1/extractions", status: http.StatusOK, body: "[]"},
		{path: "/metrics", status: http.StatusOK, body: "airline_extractor_http_requests_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body bytes.Buffer
			_, err = body.ReadFrom(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.True(t, strings.Contains(body.String(), tt.body), "body %q lacks %q", body.String(), tt.body)
		})
	}
}

func TestRouter_UnknownAirline(t *testing.T) {
	srv := newTestServer(t)

	resp := upload(t, srv.URL+"/api/v1/extractions", "ZZ", "x.txt", "a")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
