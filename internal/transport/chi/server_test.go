package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/candidate"
	"github.com/kailas-cloud/corpintel/internal/domain/document"
	"github.com/kailas-cloud/corpintel/internal/domain/evidence"
	"github.com/kailas-cloud/corpintel/internal/domain/response"
	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
	"github.com/kailas-cloud/corpintel/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/corpintel/internal/usecase/health"
	"github.com/kailas-cloud/corpintel/internal/usecase/ingest"
)

// --- Mocks ---

type mockAnalyzer struct {
	lastReq analysis.Request
	err     error
}

func (m *mockAnalyzer) Analyze(_ context.Context, _ *analysis.Session, req analysis.Request) (*analysis.Result, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	rule, _ := scenario.Get(scenario.Withdrawal)
	resp := response.New(&rule.Schema, response.TierStrict)
	resp.Summary = "撤否主要因收入确认问题"
	return &analysis.Result{
		Response:  resp,
		Decision:  evidence.Decision{Type: evidence.SearchNone, Reasons: []string{}},
		Entity:    req.Entity,
		Scenario:  &analysis.ScenarioInfo{ID: rule.ID, DisplayName: rule.DisplayName, Framework: rule.Framework},
		Timestamp: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}, nil
}

func (m *mockAnalyzer) Gather(_ context.Context, req analysis.Request) (*analysis.Evidence, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	rule, _ := scenario.Get(scenario.Withdrawal)
	local := candidate.Fused{
		Candidate: candidate.Candidate{
			Content: "欣强电子终止审核",
			Metadata: document.Metadata{
				Tags:     map[string]string{"company_name": "欣强电子"},
				Numerics: map[string]float64{"timestamp": 1700000000},
			},
			Similarity: 0.8,
			Strategy:   candidate.StrategySemantic,
		},
		Blended: 0.86,
		Score:   0.96,
	}
	return &analysis.Evidence{
		Query:    req.Query,
		Entity:   "欣强电子",
		Rule:     rule,
		Local:    []candidate.Fused{local},
		Decision: evidence.Decision{Type: evidence.SearchUserDisabled, Reasons: []string{"用户禁用搜索"}},
	}, nil
}

type mockIngestor struct{ got []ingest.Record }

func (m *mockIngestor) Ingest(_ context.Context, records []ingest.Record) ingest.Report {
	m.got = records
	rep := ingest.Report{}
	for _, r := range records {
		rep.Added++
		rep.Results = append(rep.Results, ingest.Result{ID: r.ID, Status: ingest.StatusOK})
	}
	return rep
}

type mockCorpus struct {
	count    int
	err      error
	cleared  bool
	clearErr error
}

func (m *mockCorpus) Count(context.Context) (int, error) { return m.count, m.err }

func (m *mockCorpus) Clear(context.Context) error {
	m.cleared = true
	return m.clearErr
}

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	analyzer *mockAnalyzer
	ingestor *mockIngestor
	corpus   *mockCorpus
	health   *mockHealth
	handler  http.Handler
}

func newFixture(apiKeys ...string) *fixture {
	f := &fixture{
		analyzer: &mockAnalyzer{},
		ingestor: &mockIngestor{},
		corpus:   &mockCorpus{count: 42},
		health: &mockHealth{report: healthuc.Report{
			Status:    healthuc.Healthy,
			Checks:    map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
			Documents: 42,
		}},
	}
	f.handler = NewServer(f.analyzer, f.ingestor, f.corpus, f.health, apiKeys, zap.NewNop()).Routes()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

// --- Tests ---

func TestAnalyze(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/analyze", `{"query": "欣强电子撤否原因", "entity": "欣强电子", "scenario": "withdrawal", "search": "never"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if f.analyzer.lastReq.Preference != evidence.PreferenceNever || f.analyzer.lastReq.Entity != "欣强电子" {
		t.Errorf("request not mapped: %+v", f.analyzer.lastReq)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	body := decodeBody(t, rr)
	for _, key := range []string{
		"summary", "key_findings", "parse_tier", "withdrawal_analysis",
		"source_statistics", "scenario_info", "search_decision", "analysis_timestamp", "processing_time",
	} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if body["processing_time"] != 1.5 {
		t.Errorf("processing_time = %v", body["processing_time"])
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"malformed body", `{"query":`, nil, http.StatusBadRequest, codeBadRequest},
		{"bad preference", `{"query": "q", "search": "sometimes"}`, nil, http.StatusBadRequest, codeValidationFailed},
		{"empty query", `{"query": ""}`, fmt.Errorf("query: %w", domain.ErrInvalidInput), http.StatusBadRequest, codeValidationFailed},
		{"internal", `{"query": "q"}`, errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.analyzer.err = tt.err
			rr := f.do("POST", "/v1/analyze", tt.body)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if errResp.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", errResp.Code, tt.wantErr)
			}
			if tt.wantCode == http.StatusInternalServerError && errResp.Message != "internal error" {
				t.Errorf("internal details leaked: %q", errResp.Message)
			}
		})
	}
}

func TestRetrieve(t *testing.T) {
	f := newFixture()
	rr := f.do("POST", "/v1/retrieve", `{"query": "欣强电子撤否原因", "search": "never"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp RetrieveResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Scenario == nil || *resp.Scenario != scenario.Withdrawal {
		t.Errorf("scenario = %v", resp.Scenario)
	}
	if len(resp.Local) != 1 || len(resp.External) != 0 {
		t.Fatalf("local=%d external=%d", len(resp.Local), len(resp.External))
	}
	p := resp.Local[0]
	if p.Similarity != 0.86 || p.Strategy != "semantic" {
		t.Errorf("passage = %+v", p)
	}
	if p.Metadata["company_name"] != "欣强电子" || p.Metadata["timestamp"] != float64(1700000000) {
		t.Errorf("metadata = %v", p.Metadata)
	}
	if resp.SearchDecision.Type != evidence.SearchUserDisabled {
		t.Errorf("decision = %+v", resp.SearchDecision)
	}
}

func TestListScenarios(t *testing.T) {
	rr := newFixture().do("GET", "/v1/scenarios", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Items []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 3 || resp.Items[0].ID != "withdrawal" || resp.Items[2].DisplayName != "上下游企业分析" {
		t.Errorf("items = %+v", resp.Items)
	}
}

func TestDocuments(t *testing.T) {
	f := newFixture()

	rr := f.do("POST", "/v1/documents", `{"documents": [{"id": "d1", "content": "正文", "metadata": {"source": "招股说明书"}}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("add status = %d", rr.Code)
	}
	if len(f.ingestor.got) != 1 || f.ingestor.got[0].Metadata["source"] != "招股说明书" {
		t.Errorf("ingested = %+v", f.ingestor.got)
	}
	if body := decodeBody(t, rr); body["added"] != float64(1) {
		t.Errorf("report = %v", body)
	}

	rr = f.do("POST", "/v1/documents", `{"documents": []}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty batch status = %d", rr.Code)
	}
	many := `{"documents": [` + strings.TrimSuffix(strings.Repeat(`{"content": "x"},`, maxDocumentsPerRequest+1), ",") + `]}`
	if rr = f.do("POST", "/v1/documents", many); rr.Code != http.StatusBadRequest {
		t.Errorf("oversized batch status = %d", rr.Code)
	}

	rr = f.do("GET", "/v1/documents/count", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("count status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["count"] != float64(42) {
		t.Errorf("count = %v", body)
	}

	rr = f.do("DELETE", "/v1/documents", "")
	if rr.Code != http.StatusNoContent || !f.corpus.cleared {
		t.Errorf("clear status = %d, cleared = %v", rr.Code, f.corpus.cleared)
	}

	f.corpus.err = domain.NewCollaboratorError("corpus", errors.New("connection refused"))
	if rr = f.do("GET", "/v1/documents/count", ""); rr.Code != http.StatusBadGateway {
		t.Errorf("count failure status = %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture("secret")

	rr := f.do("GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthy status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["status"] != "ok" || body["documents"] != float64(42) {
		t.Errorf("body = %v", body)
	}

	f.health.report.Status = healthuc.Degraded
	if rr = f.do("GET", "/health", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d", rr.Code)
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	f := newFixture("secret")

	if rr := f.do("GET", "/v1/scenarios", ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", rr.Code)
	}

	req := httptest.NewRequest("GET", "/v1/scenarios", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	if rr := newFixture().do("GET", "/v1/collections", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}
