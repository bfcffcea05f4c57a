//go:build contract

// Package contract provides contract tests that validate API responses against the OpenAPI spec.
package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/blogpost/blogpost/internal/handler"
	"github.com/blogpost/blogpost/internal/metrics"
	"github.com/blogpost/blogpost/internal/middleware"
	"github.com/blogpost/blogpost/internal/repository"
	"github.com/blogpost/blogpost/internal/service"
)

type contractEnv struct {
	baseURL string
	client  *http.Client
	spec    *openapi3.T
	router  routers.Router
}

// newContractEnv targets API_BASE_URL when set, otherwise an in-process
// server on the memory store.
func newContractEnv(t *testing.T) *contractEnv {
	t.Helper()

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		store := repository.NewMemoryStore()
		recorder := metrics.NewInMemory()
		srv := httptest.NewServer(handler.NewRouter(handler.RouterConfig{
			Posts:       service.NewPostService(store, service.Options{Metrics: recorder}),
			Health:      handler.NewHealthHandler("memory", store, nil),
			Metrics:     recorder,
			CORS:        middleware.DefaultCORSConfig(),
			MaxBodySize: 1 << 20,
		}))
		t.Cleanup(srv.Close)
		baseURL = srv.URL
	}

	specPath := os.Getenv("OPENAPI_SPEC_PATH")
	if specPath == "" {
		wd, _ := os.Getwd()
		specPath = filepath.Join(wd, "..", "..", "docs", "api", "openapi.yaml")
	}

	spec, router := loadSpec(t, specPath, baseURL)

	return &contractEnv{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		spec:    spec,
		router:  router,
	}
}

// loadSpec loads and validates the OpenAPI spec, routing it at baseURL.
func loadSpec(t *testing.T, path, baseURL string) (*openapi3.T, routers.Router) {
	t.Helper()

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	spec, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load OpenAPI spec from %s: %v", path, err)
	}

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	spec.Servers = openapi3.Servers{{URL: baseURL}}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		t.Fatalf("Failed to create router from spec: %v", err)
	}

	return spec, router
}

// call sends a request, validates request and response against the spec
// and returns the response status and body.
func (e *contractEnv) call(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequest(method, e.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	route, pathParams, err := e.router.FindRoute(req)
	if err != nil {
		t.Fatalf("Could not find route %s %s in spec: %v", method, path, err)
	}

	requestInput := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}
	if body != nil {
		if err := openapi3filter.ValidateRequest(context.Background(), requestInput); err != nil {
			t.Fatalf("Request does not match spec: %v", err)
		}
		// ValidateRequest consumed the body
		req.Body = io.NopCloser(bytes.NewReader(raw))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Skipf("Server not available: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: requestInput,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(respBody)),
	})
	if err != nil {
		t.Errorf("Response to %s %s does not match spec: %v\nBody: %s", method, path, err, respBody)
	}

	if resp.StatusCode >= 400 {
		validateErrorResponse(t, resp.Header, respBody)
	}

	return resp.StatusCode, respBody
}

// TestOpenAPISpecValid ensures the OpenAPI spec is valid and documents every route.
func TestOpenAPISpecValid(t *testing.T) {
	env := newContractEnv(t)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics", "/posts", "/posts/{id}"} {
		if env.spec.Paths.Find(path) == nil {
			t.Errorf("Expected path %s not found in spec", path)
		}
	}
}

func TestPostEndpointsMatchSpec(t *testing.T) {
	env := newContractEnv(t)

	status, body := env.call(t, http.MethodPost, "/posts", map[string]any{
		"author":  map[string]string{"firstName": "Jane", "lastName": "Doe"},
		"title":   "Hello",
		"content": "World",
	})
	if status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", status, body)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		t.Fatalf("create: no id in %s", body)
	}

	if status, _ := env.call(t, http.MethodGet, "/posts", nil); status != http.StatusOK {
		t.Errorf("list: expected 200, got %d", status)
	}
	if status, _ := env.call(t, http.MethodGet, "/posts/"+created.ID, nil); status != http.StatusOK {
		t.Errorf("get: expected 200, got %d", status)
	}
	if status, _ := env.call(t, http.MethodPut, "/posts/"+created.ID, map[string]string{"title": "Updated"}); status != http.StatusNoContent {
		t.Errorf("update: expected 204, got %d", status)
	}
	if status, _ := env.call(t, http.MethodDelete, "/posts/"+created.ID, nil); status != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", status)
	}
	if status, _ := env.call(t, http.MethodGet, "/posts/"+created.ID, nil); status != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", status)
	}
}

func TestErrorResponsesMatchSpec(t *testing.T) {
	env := newContractEnv(t)

	// Schema-valid body the service still rejects
	status, _ := env.call(t, http.MethodPut, "/posts/some-id", map[string]string{"id": "other-id", "title": "x"})
	if status != http.StatusBadRequest {
		t.Errorf("id mismatch: expected 400, got %d", status)
	}

	status, _ = env.call(t, http.MethodDelete, "/posts/nonexistent-id-12345", nil)
	if status != http.StatusNotFound {
		t.Errorf("delete unknown: expected 404, got %d", status)
	}
}

func TestOpsEndpointsMatchSpec(t *testing.T) {
	env := newContractEnv(t)

	for _, path := range []string{"/", "/healthz", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			status, _ := env.call(t, http.MethodGet, path, nil)
			if status == http.StatusNotFound {
				t.Errorf("Endpoint %s returned 404 - not implemented", path)
			}
		})
	}
}

// validateErrorResponse checks that error responses have required fields.
func validateErrorResponse(t *testing.T, header http.Header, body []byte) {
	t.Helper()

	contentType := header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		t.Errorf("Error response Content-Type should be application/json, got: %s", contentType)
		return
	}

	var errorResp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}

	if err := json.Unmarshal(body, &errorResp); err != nil {
		t.Errorf("Failed to parse error response as JSON: %v\nBody: %s", err, string(body))
		return
	}

	if errorResp.Error == "" {
		t.Errorf("Error response missing 'error' field. Body: %s", string(body))
	}
	if errorResp.Code == "" {
		t.Errorf("Error response missing 'code' field. Body: %s", string(body))
	}
}
