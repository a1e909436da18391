package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/content-collections/internal/api"
	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/mocks"
	"github.com/content-collections/internal/models"
	"github.com/content-collections/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testRouter struct {
	router     *gin.Engine
	importSvc  *mocks.MockImportService
	exportSvc  *mocks.MockExportService
	jobSvc     *mocks.MockJobService
	uploadRoot string
}

func setupTestRouter(t *testing.T) *testRouter {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mockImport := mocks.NewMockImportService()
	mockExport := mocks.NewMockExportService()
	mockJob := mocks.NewMockJobService()

	services := &service.Services{
		Check:    &mocks.MockCheckService{},
		Validate: service.NewValidateService(service.Deps{}, zerolog.Nop()),
		Import:   mockImport,
		Export:   mockExport,
		Job:      mockJob,
	}

	uploadRoot := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Import: config.ImportConfig{
			BatchSize:     1000,
			MaxUploadSize: 1024 * 1024,
			UploadDir:     uploadRoot,
		},
	}

	return &testRouter{
		router:     api.NewRouter(services, cfg, zerolog.Nop()),
		importSvc:  mockImport,
		exportSvc:  mockExport,
		jobSvc:     mockJob,
		uploadRoot: uploadRoot,
	}
}

func (tr *testRouter) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	tr.router.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, fields map[string]string, filename, data string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if filename != "" {
		part, _ := writer.CreateFormFile("file", filename)
		part.Write([]byte(data))
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/v1/imports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthEndpoint(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "content-collections" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestHealthEndpoint_DependencyChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	services := &service.Services{
		Check:    &mocks.MockCheckService{},
		Validate: service.NewValidateService(service.Deps{}, zerolog.Nop()),
		Import:   mocks.NewMockImportService(),
		Export:   mocks.NewMockExportService(),
		Job:      mocks.NewMockJobService(),
	}
	cfg := &config.Config{}

	router := api.NewRouter(services, cfg, zerolog.Nop(),
		api.WithHealthCheck("database", func(ctx context.Context) error { return errors.New("connection refused") }),
		api.WithHealthCheck("cache", func(ctx context.Context) error { return nil }),
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}

	var response struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "unhealthy" {
		t.Errorf("Expected status 'unhealthy', got %q", response.Status)
	}
	if response.Dependencies["database"] != "connection refused" {
		t.Errorf("Expected database error, got %q", response.Dependencies["database"])
	}
	if response.Dependencies["cache"] != "ok" {
		t.Errorf("Expected cache ok, got %q", response.Dependencies["cache"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected Prometheus exposition format")
	}
}

func TestStatsEndpoint(t *testing.T) {
	tr := setupTestRouter(t)
	tr.exportSvc.Counts[models.KindBlog] = 12
	tr.exportSvc.Counts[models.KindDocs] = 30

	w := tr.do(httptest.NewRequest("GET", "/v1/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Entries map[string]int `json:"entries"`
		Total   int            `json:"total"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)

	if response.Entries["blog"] != 12 || response.Entries["pages"] != 0 || response.Total != 42 {
		t.Errorf("unexpected stats %+v", response)
	}
}

func TestListSchemas(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("GET", "/v1/collections", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Collections []models.CollectionSpec `json:"collections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if len(response.Collections) != 3 {
		t.Fatalf("Expected 3 collections, got %d", len(response.Collections))
	}

	w = tr.do(httptest.NewRequest("GET", "/v1/collections/docs", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for docs schema, got %d", w.Code)
	}
	w = tr.do(httptest.NewRequest("GET", "/v1/collections/newsletter", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown schema, got %d", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	tr := setupTestRouter(t)

	tests := []struct {
		name           string
		kind           string
		body           string
		expectedStatus int
		expectedField  string
	}{
		{
			name:           "valid blog",
			kind:           "blog",
			body:           `{"title":"T","description":"d","created_at":"2024-01-01","image":{"src":"/a.png","alt":"A"}}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "blog missing alt",
			kind:           "blog",
			body:           `{"title":"T","description":"d","created_at":"2024-01-01","image":{"src":"/a.png"}}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "image.alt",
		},
		{
			name:           "blog unparsable date",
			kind:           "blog",
			body:           `{"title":"T","description":"d","created_at":"someday","image":{"src":"/a.png","alt":"A"}}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedField:  "created_at",
		},
		{
			name:           "pages accept anything",
			kind:           "pages",
			body:           `{"whatever":[1,2,3]}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "kind is case insensitive",
			kind:           "Docs",
			body:           `{"title":"Intro"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown collection",
			kind:           "newsletter",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "array body",
			kind:           "pages",
			body:           `[1,2]`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty body",
			kind:           "pages",
			body:           ``,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/collections/"+tt.kind+"/validate", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := tr.do(req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK && tt.expectedStatus != http.StatusUnprocessableEntity {
				return
			}

			var res service.ValidationResult
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatal(err)
			}
			if tt.expectedField == "" {
				if !res.Valid || res.Record == nil {
					t.Errorf("expected valid record, got %+v", res)
				}
				return
			}
			if res.Valid || len(res.Errors) == 0 || res.Errors[0].Field != tt.expectedField {
				t.Errorf("expected failure on %s, got %+v", tt.expectedField, res)
			}
		})
	}
}

func TestGetImportStatus(t *testing.T) {
	tr := setupTestRouter(t)

	tr.jobSvc.Jobs["test-job-123"] = &models.JobResponse{
		Job: models.Job{
			ID:              "test-job-123",
			Type:            models.JobTypeImport,
			Format:          models.SourceFormatNDJSON,
			Status:          models.JobStatusCompleted,
			TotalRecords:    1000,
			SuccessfulCount: 950,
			FailedCount:     50,
			DurationMs:      5000,
			RowsPerSec:      200.0,
			CreatedAt:       time.Now(),
		},
		ErrorCount: 50,
	}

	w := tr.do(httptest.NewRequest("GET", "/v1/imports/test-job-123", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response models.JobResponse
	json.Unmarshal(w.Body.Bytes(), &response)

	if response.Job.ID != "test-job-123" {
		t.Errorf("Expected job ID 'test-job-123', got '%s'", response.Job.ID)
	}
	if response.Job.Status != models.JobStatusCompleted {
		t.Errorf("Expected status completed, got %s", response.Job.Status)
	}
	if response.Job.TotalRecords != 1000 {
		t.Errorf("Expected 1000 total records, got %d", response.Job.TotalRecords)
	}
}

func TestGetImportStatus_NotFound(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("GET", "/v1/imports/nonexistent", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetImportErrors(t *testing.T) {
	tr := setupTestRouter(t)
	tr.jobSvc.Errors["job-1"] = []models.ValidationError{
		{Line: 3, Document: "blog/a.md", Field: "image.alt", Code: "missing_required_field", Message: "missing required field"},
		{Line: 7, Document: "blog/b.md", Field: "created_at", Code: "unparsable_date", Message: "unparsable date", Value: "soon"},
	}

	w := tr.do(httptest.NewRequest("GET", "/v1/imports/job-1/errors", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		ErrorCount int                      `json:"error_count"`
		Errors     []models.ValidationError `json:"errors"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response.ErrorCount != 2 || response.Errors[1].Document != "blog/b.md" {
		t.Errorf("unexpected response %+v", response)
	}
}

func TestGetImportErrors_CSV(t *testing.T) {
	tr := setupTestRouter(t)
	tr.jobSvc.Errors["job-1"] = []models.ValidationError{
		{Line: 7, Document: "blog/b.md", Field: "created_at", Code: "unparsable_date", Message: "unparsable date", Value: "soon"},
	}

	w := tr.do(httptest.NewRequest("GET", "/v1/imports/job-1/errors?format=csv", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %q", w.Body.String())
	}
	if lines[0] != "line,document,field,code,message,value" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "7,blog/b.md,created_at,unparsable_date,unparsable date,soon" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestGetImportErrors_EmptyErrors(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("GET", "/v1/imports/job-without-errors/errors", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["error_count"].(float64) != 0 {
		t.Errorf("Expected 0 errors, got %v", response["error_count"])
	}
}

func TestCreateImport(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(multipartUpload(t, map[string]string{"collection": "Blog"}, "hello.md", "---\ntitle: Hi\n---\n"))
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d. Body: %s", w.Code, w.Body.String())
	}

	if len(tr.importSvc.CreatedJobs) != 1 {
		t.Fatalf("Expected 1 created job, got %d", len(tr.importSvc.CreatedJobs))
	}
	job := tr.importSvc.CreatedJobs[0]
	if job.Collection != "blog" || job.Format != models.SourceFormatMarkdown {
		t.Errorf("unexpected job %+v", job)
	}

	saved := tr.importSvc.FilePaths[0]
	if filepath.Base(saved) != "hello.md" {
		t.Errorf("upload should keep its file name, got %s", saved)
	}
	if !strings.HasPrefix(saved, tr.uploadRoot) {
		t.Errorf("upload should be stored under the upload dir, got %s", saved)
	}
	if data, err := os.ReadFile(saved); err != nil || !strings.Contains(string(data), "title: Hi") {
		t.Errorf("upload content not saved: %v", err)
	}
}

func TestImportValidation(t *testing.T) {
	tr := setupTestRouter(t)

	tests := []struct {
		name           string
		fields         map[string]string
		filename       string
		data           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "missing file",
			fields:         map[string]string{"collection": "blog"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "file upload is required",
		},
		{
			name:           "csv file",
			filename:       "entries.csv",
			data:           "a,b\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "file must be .ndjson",
		},
		{
			name:           "markdown without collection",
			filename:       "post.md",
			data:           "---\n---\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "collection is required",
		},
		{
			name:           "unknown collection",
			fields:         map[string]string{"collection": "newsletter"},
			filename:       "post.md",
			data:           "---\n---\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "collection must be one of",
		},
		{
			name:           "file too large",
			filename:       "big.ndjson",
			data:           strings.Repeat("x", 2*1024*1024),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "file too large",
		},
		{
			name:           "ndjson without collection",
			filename:       "entries.ndjson",
			data:           "{}\n",
			expectedStatus: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tr.do(multipartUpload(t, tt.fields, tt.filename, tt.data))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedError != "" && !bytes.Contains(w.Body.Bytes(), []byte(tt.expectedError)) {
				t.Errorf("Expected error '%s' in response, got: %s", tt.expectedError, w.Body.String())
			}
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	tr := setupTestRouter(t)
	tr.jobSvc.Jobs["existing-job"] = &models.JobResponse{
		Job: models.Job{
			ID:             "existing-job",
			Status:         models.JobStatusCompleted,
			IdempotencyKey: "same-key",
		},
	}

	req := multipartUpload(t, nil, "entries.ndjson", "{}\n")
	req.Header.Set("Idempotency-Key", "same-key")
	w := tr.do(req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for existing job, got %d", w.Code)
	}
	var job models.Job
	json.Unmarshal(w.Body.Bytes(), &job)
	if job.ID != "existing-job" {
		t.Errorf("Expected existing job, got %s", job.ID)
	}
	if len(tr.importSvc.CreatedJobs) != 0 {
		t.Error("No new job should be created for a known idempotency key")
	}
}

func TestCORSHeaders(t *testing.T) {
	tr := setupTestRouter(t)

	w := tr.do(httptest.NewRequest("OPTIONS", "/v1/imports", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for OPTIONS, got %d", w.Code)
	}
	if allowOrigin := w.Header().Get("Access-Control-Allow-Origin"); allowOrigin != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin '*', got '%s'", allowOrigin)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Expected Access-Control-Allow-Methods header")
	}
}

func TestExportStream(t *testing.T) {
	tr := setupTestRouter(t)
	tr.exportSvc.StreamFunc = func(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, err := w.Write([]byte(`{"kind":"` + string(kind) + `"}` + "\n"))
		return err
	}

	w := tr.do(httptest.NewRequest("GET", "/v1/exports?collection=Docs", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "{\"kind\":\"docs\"}\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if len(tr.exportSvc.Streamed) != 1 || tr.exportSvc.Streamed[0] != models.KindDocs {
		t.Errorf("unexpected streamed collections %v", tr.exportSvc.Streamed)
	}
}

func TestExportStream_ValidationErrors(t *testing.T) {
	tr := setupTestRouter(t)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedError  string
	}{
		{"missing collection", "", http.StatusBadRequest, "collection parameter is required"},
		{"unknown collection", "?collection=users", http.StatusBadRequest, "collection must be one of"},
		{"unknown format", "?collection=blog&format=xml", http.StatusBadRequest, "format must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tr.do(httptest.NewRequest("GET", "/v1/exports"+tt.query, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tt.expectedError)) {
				t.Errorf("Expected error '%s' in response, got: %s", tt.expectedError, w.Body.String())
			}
		})
	}
}

func TestExportStream_FailureBeforeWrite(t *testing.T) {
	tr := setupTestRouter(t)
	tr.exportSvc.StreamFunc = func(ctx context.Context, w http.ResponseWriter, kind models.Kind, format string) error {
		return errors.New("database unavailable")
	}

	w := tr.do(httptest.NewRequest("GET", "/v1/exports?collection=blog&format=json", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
}
