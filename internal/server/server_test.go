package server

import (
	"bytes"
	"encoding/json"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/iwvelando/lead-impact/pkg/constants"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const baselineJSON = `{
  "totalLeads": 100,
  "customerValue": 500,
  "currentResponseRate": 20,
  "currentClosingRate": 10,
  "aiResponseRate": 80
}`

func TestHandleCalculateSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performCalculate(t, handler, baselineJSON)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON content type, got %q", ct)
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.ImprovedConversionRate != 16 {
		t.Errorf("expected improved conversion rate 16, got %v", resp.ImprovedConversionRate)
	}
	if resp.AdditionalRevenue != 3000 {
		t.Errorf("expected additional revenue 3000, got %v", resp.AdditionalRevenue)
	}
	if resp.RevenueAtRisk != 3000 {
		t.Errorf("expected revenue at risk 3000, got %v", resp.RevenueAtRisk)
	}
	if resp.Display.ImprovedConversionRate != "16.0%" {
		t.Errorf("expected display rate 16.0%%, got %q", resp.Display.ImprovedConversionRate)
	}
	if resp.Display.AdditionalRevenue != "$3,000.00" {
		t.Errorf("expected display revenue $3,000.00, got %q", resp.Display.AdditionalRevenue)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", resp.Warnings)
	}
}

func TestHandleCalculateNegativeRateWarning(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performCalculate(t, handler, `{"totalLeads":100,"customerValue":500,"currentResponseRate":100,"currentClosingRate":0,"aiResponseRate":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp calculateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ImprovedConversionRate != -10 {
		t.Fatalf("expected improved conversion rate -10, got %v", resp.ImprovedConversionRate)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", resp.Warnings)
	}
}

func TestHandleCalculateMissingInputs(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	before := testutil.ToFloat64(missingFieldsTotal.WithLabelValues(constants.LabelCustomerValue))

	rr := performCalculate(t, handler, `{"totalLeads": 0, "customerValue": null, "currentClosingRate": 10}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp missingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	expected := "Please fill in the following fields: Average Customer Value, Current Lead Response Rate, AI's Response Rate"
	if resp.Error != expected {
		t.Fatalf("expected %q, got %q", expected, resp.Error)
	}
	if resp.Title != constants.MissingFieldsTitle {
		t.Fatalf("expected title %q, got %q", constants.MissingFieldsTitle, resp.Title)
	}
	if len(resp.Missing) != 3 {
		t.Fatalf("expected three missing fields, got %v", resp.Missing)
	}

	after := testutil.ToFloat64(missingFieldsTotal.WithLabelValues(constants.LabelCustomerValue))
	if after-before != 1 {
		t.Fatalf("expected missing field counter to increase by 1, got %v", after-before)
	}
}

func TestHandleCalculateOutOfRange(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performCalculate(t, handler, `{"totalLeads":200000,"customerValue":500,"currentResponseRate":20,"currentClosingRate":10,"aiResponseRate":180}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.HasPrefix(resp["error"], "input out of range") {
		t.Fatalf("expected range error, got %q", resp["error"])
	}
	if !strings.Contains(resp["error"], constants.LabelTotalLeads) || !strings.Contains(resp["error"], constants.LabelAIResponseRate) {
		t.Fatalf("expected both violations to be reported, got %q", resp["error"])
	}
}

func TestHandleCalculateOverflow(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performCalculate(t, handler, `{"totalLeads":100000,"customerValue":1e305,"currentResponseRate":20,"currentClosingRate":50,"aiResponseRate":80}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.HasPrefix(resp["error"], "result out of range") {
		t.Fatalf("expected overflow error, got %q", resp["error"])
	}
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	h := &handler{logger: zap.NewNop()}
	rr := httptest.NewRecorder()

	h.writeJSON(rr, zap.NewNop(), http.StatusOK, map[string]float64{"value": math.NaN()})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected a JSON error body, got %q: %v", rr.Body.String(), err)
	}
	if resp["error"] == "" {
		t.Fatal("expected error message in response")
	}
}

func TestHandleCalculateBadRequest(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	tests := []struct {
		name string
		body string
	}{
		{name: "Malformed JSON", body: `{"totalLeads": `},
		{name: "Unknown field", body: `{"totalLeads": 100, "budget": 5}`},
		{name: "Text value", body: `{"totalLeads": "lots"}`},
		{name: "Empty body", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := performCalculate(t, handler, tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if !strings.HasPrefix(resp["error"], "failed to decode input") {
				t.Fatalf("expected decode error, got %q", resp["error"])
			}
		})
	}
}

func TestHandleCalculateMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/calculate", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleCalculateTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 32, "test")

	rr := performCalculate(t, handler, baselineJSON)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "request exceeds limit") {
		t.Fatalf("expected request limit error message, got %q", resp["error"])
	}
}

func TestHandleScenariosSuccess(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	configPath := filepath.Join("..", "..", "test", "test_config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read test config: %v", err)
	}

	rr := performUpload(t, handler, string(data), "test_config.yaml")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scenariosResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// The inactive scenario is skipped.
	if len(resp.Scenarios) != 2 {
		t.Fatalf("expected 2 scenarios in response, got %d", len(resp.Scenarios))
	}
	if resp.Scenarios[0].Name != "baseline" || resp.Scenarios[0].Result == nil {
		t.Fatalf("expected baseline result first, got %+v", resp.Scenarios[0])
	}
	saturated := resp.Scenarios[1]
	if saturated.Result == nil || saturated.Result.ImprovedConversionRate != 100 {
		t.Fatalf("expected saturated conversion rate capped at 100, got %+v", saturated.Result)
	}
	if !strings.Contains(resp.CSV, "baseline,16.0,3000.00") {
		t.Fatalf("expected CSV row for baseline, got %q", resp.CSV)
	}
	if resp.Duration == "" {
		t.Fatal("expected duration in response")
	}
}

func TestHandleScenariosReportsProblems(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	configYAML := `
scenarios:
  - name: partial
    active: true
    inputs:
      totalLeads: 100
  - name: oversized
    active: true
    inputs:
      totalLeads: 100
      customerValue: 500
      currentResponseRate: 20
      currentClosingRate: 10
      aiResponseRate: 120
`

	rr := performUpload(t, handler, configYAML, "config.yaml")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp scenariosResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(resp.Scenarios) != 2 {
		t.Fatalf("expected 2 scenarios in response, got %d", len(resp.Scenarios))
	}
	if len(resp.Scenarios[0].Missing) != 4 {
		t.Fatalf("expected 4 missing fields for partial, got %v", resp.Scenarios[0].Missing)
	}
	if !strings.Contains(resp.Scenarios[1].Error, "input out of range") {
		t.Fatalf("expected range error for oversized, got %q", resp.Scenarios[1].Error)
	}
	if len(resp.Warnings) == 0 {
		t.Fatal("expected configuration warnings")
	}
}

func TestHandleScenariosMissingFile(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp["error"] != "missing scenario file" {
		t.Fatalf("expected missing file error, got %q", resp["error"])
	}
}

func TestHandleScenariosInvalidYAML(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	rr := performUpload(t, handler, "scenarios: [", "config.yaml")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "error reading config data") {
		t.Fatalf("expected parse error message, got %q", resp["error"])
	}
}

func TestHandleScenariosUploadTooLarge(t *testing.T) {
	handler := NewHandler(zap.NewNop(), 64, "test")

	rr := performUpload(t, handler, strings.Repeat("a", 128), "config.yaml")

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if !strings.Contains(resp["error"], "upload exceeds limit") {
		t.Fatalf("expected upload limit error message, got %q", resp["error"])
	}
}

func TestHandleScenariosMethodNotAllowed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/scenarios", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleVersion(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		expected string
	}{
		{name: "Configured", version: " 2.1.0 ", expected: "2.1.0"},
		{name: "Default", version: "", expected: constants.DefaultVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, tt.version)

			req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rr.Code)
			}

			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["version"] != tt.expected {
				t.Fatalf("expected version %q, got %q", tt.expected, resp["version"])
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	generated := rr.Header().Get(constants.RequestIDHeader)
	if _, err := uuid.Parse(generated); err != nil {
		t.Fatalf("expected generated request ID to be a UUID, got %q", generated)
	}

	incoming := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(constants.RequestIDHeader, incoming)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(constants.RequestIDHeader); got != incoming {
		t.Fatalf("expected incoming request ID %q to be echoed, got %q", incoming, got)
	}

	for _, path := range []string{"/", "/styles.css", "/metrics"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if _, err := uuid.Parse(rr.Header().Get(constants.RequestIDHeader)); err != nil {
			t.Fatalf("expected request ID header on %s, got %q", path, rr.Header().Get(constants.RequestIDHeader))
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/version", nil)
	req.Header.Set(constants.RequestIDHeader, "not-a-uuid")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(constants.RequestIDHeader); got == "not-a-uuid" {
		t.Fatal("expected invalid request ID to be replaced")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	before := testutil.ToFloat64(calculationsTotal.WithLabelValues(sourceAPI, outcomeSuccess))
	if rr := performCalculate(t, handler, baselineJSON); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	after := testutil.ToFloat64(calculationsTotal.WithLabelValues(sourceAPI, outcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected success counter to increase by 1, got %v", after-before)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for metrics, got %d", rr.Code)
	}
	for _, name := range []string{
		"lead_impact_calculator_calculations_total",
		"lead_impact_http_request_duration_seconds",
	} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Errorf("expected metrics output to contain %s", name)
		}
	}
}

func TestStaticAssetsServed(t *testing.T) {
	handler := NewHandler(zap.NewNop(), constants.DefaultMaxUploadSizeBytes, "test")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for index, got %d", rr.Code)
	}

	if !strings.Contains(rr.Body.String(), "Speed-to-Lead AI Calculator") {
		t.Fatalf("expected HTML body to contain title, got %q", rr.Body.String())
	}

	cssReq := httptest.NewRequest(http.MethodGet, "/styles.css", nil)
	cssRR := httptest.NewRecorder()
	handler.ServeHTTP(cssRR, cssReq)

	if cssRR.Code != http.StatusOK {
		t.Fatalf("expected status 200 for css, got %d", cssRR.Code)
	}
	if !strings.Contains(cssRR.Body.String(), ":root") {
		t.Fatalf("expected CSS body to contain styles, got %q", cssRR.Body.String())
	}

	jsReq := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	jsRR := httptest.NewRecorder()
	handler.ServeHTTP(jsRR, jsReq)

	if jsRR.Code != http.StatusOK {
		t.Fatalf("expected status 200 for js, got %d", jsRR.Code)
	}
	if !strings.Contains(jsRR.Body.String(), "/api/calculate") {
		t.Fatal("expected script to call the calculate endpoint")
	}
}

func performCalculate(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}

func performUpload(t *testing.T, handler http.Handler, content, filename string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write form data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/scenarios", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	return rr
}
