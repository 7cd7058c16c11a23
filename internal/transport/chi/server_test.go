package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/careersync/careersync/internal/domain"
	"github.com/careersync/careersync/internal/store"
	healthuc "github.com/careersync/careersync/internal/usecase/health"
	matchuc "github.com/careersync/careersync/internal/usecase/match"
)

// --- Mocks ---

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

type stubQuerier struct {
	hits []store.Hit
	err  error
}

func (s *stubQuerier) Query(_ context.Context, _ []float32, _ int) ([]store.Hit, error) {
	return s.hits, s.err
}

type stubExplainer struct{}

func (stubExplainer) Explain(_ context.Context, _ []float32, title, _, _ string) (string, error) {
	return title + " fits you.", nil
}

func nurseHit() store.Hit {
	return store.Hit{
		ID:    "0",
		Score: 0.9,
		Meta: map[string]string{
			store.MetaTitle:       "Nurse",
			store.MetaDescription: "Cares for patients",
			store.MetaSkills:      "empathy biology",
		},
	}
}

func newTestRouter(embed domain.Embedder, querier matchuc.Querier, ready bool) http.Handler {
	matcher := matchuc.New(embed, querier, stubExplainer{})
	health := healthuc.New(nil, nil, 1)
	health.SetReady(ready)

	srv := NewServer(matcher, health, "", zap.NewNop())
	r := chi.NewRouter()
	srv.Register(r)
	return r
}

func postMatch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/match-careers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestMatchCareers_Success(t *testing.T) {
	h := newTestRouter(
		&stubEmbedder{vec: []float32{1, 0}},
		&stubQuerier{hits: []store.Hit{nurseHit()}},
		true,
	)

	rec := postMatch(t, h, `{"interests": "helping people"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Matches []struct {
			JobTitle        string  `json:"job_title"`
			Description     string  `json:"description"`
			Skills          string  `json:"skills"`
			SimilarityScore float64 `json:"similarity_score"`
			MatchPercentage float64 `json:"match_percentage"`
			Reasoning       string  `json:"reasoning"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(resp.Matches))
	}
	m := resp.Matches[0]
	if m.JobTitle != "Nurse" || m.Skills != "empathy biology" {
		t.Errorf("unexpected match: %+v", m)
	}
	if m.SimilarityScore != 0.9 || m.MatchPercentage != 90 {
		t.Errorf("unexpected scores: %v / %v", m.SimilarityScore, m.MatchPercentage)
	}
	if m.Reasoning != "Nurse fits you." {
		t.Errorf("unexpected reasoning: %q", m.Reasoning)
	}
}

func TestMatchCareers_BadJSON(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, true)

	rec := postMatch(t, h, `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestMatchCareers_EmptyInput(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, true)

	rec := postMatch(t, h, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	assertErrorBody(t, rec)
}

func TestMatchCareers_NotReady(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, false)

	rec := postMatch(t, h, `{"interests": "x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestMatchCareers_ProviderError(t *testing.T) {
	h := newTestRouter(
		&stubEmbedder{err: fmt.Errorf("api down: %w", domain.ErrEmbeddingProviderError)},
		&stubQuerier{},
		true,
	)

	rec := postMatch(t, h, `{"interests": "x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestMatchCareers_StoreError(t *testing.T) {
	h := newTestRouter(
		&stubEmbedder{vec: []float32{1}},
		&stubQuerier{err: fmt.Errorf("search: %w", domain.ErrUpstreamUnavailable)},
		true,
	)

	rec := postMatch(t, h, `{"interests": "x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestMatchCareers_UnknownError(t *testing.T) {
	h := newTestRouter(
		&stubEmbedder{err: fmt.Errorf("something odd")},
		&stubQuerier{},
		true,
	)

	rec := postMatch(t, h, `{"interests": "x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	assertErrorBody(t, rec)
}

func TestHealth_ReadyOK(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, true)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status  string `json:"status"`
		Careers int    `json:"careers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Careers != 1 {
		t.Errorf("expected 1 career, got %d", resp.Careers)
	}
}

func TestHealth_Loading503(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "loading" {
		t.Errorf("expected status loading, got %q", resp.Status)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	h := newTestRouter(&stubEmbedder{vec: []float32{1}}, &stubQuerier{}, true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected prometheus output")
	}
}

func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if resp["error"] == "" {
		t.Errorf("expected error message, got %v", resp)
	}
}
