package trunk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRefresher counts refreshes and feeds a fixed pass through the engine
type stubRefresher struct {
	engine  *Engine
	outputs []BrainOutput
	calls   int
}

func (s *stubRefresher) Rescore() (*TrunkOutput, error) {
	s.calls++
	return s.engine.ProcessBrainOutputs(s.outputs), nil
}

func newTestHandler(t *testing.T) (*Handler, *Engine, *stubRefresher) {
	t.Helper()

	engine := newTestEngine(t, "a", "b")
	engine.SetFundSRIMap(map[string]int{"FR001": 3, "FR002": 5})

	refresher := &stubRefresher{
		engine: engine,
		outputs: []BrainOutput{
			brainOutput("a",
				ScoreEntry{FundID: "FR001", Score: 80, Confidence: 0.9},
				ScoreEntry{FundID: "FR002", Score: 60, Confidence: 0.8},
			),
			brainOutput("b",
				ScoreEntry{FundID: "FR001", Score: 75, Confidence: 0.85},
				ScoreEntry{FundID: "FR002", Score: 55, Confidence: 0.7},
			),
		},
	}

	return NewHandler(engine, refresher, zerolog.Nop()), engine, refresher
}

func testRouter(handler *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/api/trunk/ranking", handler.HandleGetRanking)
	r.Get("/api/trunk/funds-for-allocation", handler.HandleFundsForAllocation)
	r.Get("/api/trunk/stats", handler.HandleStats)
	r.Get("/api/trunk/composite/{fund_id}", handler.HandleGetComposite)
	r.Get("/api/trunk/contradictions", handler.HandleGetContradictions)
	r.Get("/api/trunk/brains", handler.HandleListBrains)
	r.Post("/api/trunk/brains/{brain_id}/activate", handler.HandleActivateBrain)
	r.Post("/api/trunk/brains/{brain_id}/deactivate", handler.HandleDeactivateBrain)
	r.Get("/api/trunk/weights", handler.HandleGetWeights)
	r.Post("/api/trunk/weights", handler.HandleUpdateWeights)
	return r
}

func TestHandleGetRanking(t *testing.T) {
	handler, _, refresher := newTestHandler(t)
	router := testRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/trunk/ranking", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, refresher.calls, "cold cache triggers one refresh")

	var ranking []RankingEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	require.Len(t, ranking, 2)
	assert.Equal(t, "FR001", ranking[0].FundID)
	assert.Equal(t, 1, ranking[0].Rank)

	// Second request serves the cached pass
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/ranking", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, refresher.calls)
}

func TestHandleGetRanking_Validation(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	for _, url := range []string{
		"/api/trunk/ranking?top_n=0",
		"/api/trunk/ranking?top_n=abc",
		"/api/trunk/ranking?min_score=101",
		"/api/trunk/ranking?min_score=-5",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestHandleGetRanking_MinScoreFilter(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/ranking?min_score=70", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var ranking []RankingEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, "FR001", ranking[0].FundID)
}

func TestHandleFundsForAllocation(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/trunk/funds-for-allocation?sri_target=5&tolerance=0.5", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int            `json:"count"`
		Funds []RankingEntry `json:"funds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "FR002", body.Funds[0].FundID)
}

func TestHandleFundsForAllocation_Validation(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	for _, url := range []string{
		"/api/trunk/funds-for-allocation?sri_target=0",
		"/api/trunk/funds-for-allocation?sri_target=8",
		"/api/trunk/funds-for-allocation?tolerance=-1",
		"/api/trunk/funds-for-allocation?tolerance=3.5",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestHandleGetComposite(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/composite/FR001", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var composite FundComposite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &composite))
	assert.Equal(t, "FR001", composite.FundID)
	assert.Equal(t, 3, composite.SRI)
	assert.Len(t, composite.ScoresByBrain, 2)
}

func TestHandleGetComposite_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/composite/XX000", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListBrains(t *testing.T) {
	handler, engine, _ := newTestHandler(t)
	router := testRouter(handler)
	require.NoError(t, engine.DeactivateBrain("b"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/brains", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var all []BrainRegistration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/brains?active_only=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var active []BrainRegistration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].BrainID)
}

func TestHandleUpdateWeights(t *testing.T) {
	handler, engine, _ := newTestHandler(t)
	router := testRouter(handler)

	body := `{"weights": {"a": 0.8, "b": 0.2}, "reason": "tuning"}`
	req := httptest.NewRequest(http.MethodPost, "/api/trunk/weights", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.8, engine.Weights().Get()["a"], 0.0001)

	// Weight changes drop the cached pass
	assert.Nil(t, engine.LastOutput())
}

func TestHandleUpdateWeights_Invalid(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"weights": `},
		{"empty weights", `{"weights": {}}`},
		{"zero sum", `{"weights": {"a": 0, "b": 0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/trunk/weights", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleBrainActivation(t *testing.T) {
	handler, engine, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/trunk/brains/b/deactivate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	reg, ok := engine.Registry().Get("b")
	require.True(t, ok)
	assert.False(t, reg.IsActive)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/trunk/brains/b/activate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	reg, _ = engine.Registry().Get("b")
	assert.True(t, reg.IsActive)
}

func TestHandleBrainActivation_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/trunk/brains/ghost/activate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats(t *testing.T) {
	handler, _, _ := newTestHandler(t)
	router := testRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trunk/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(2), stats["total_funds"])
	assert.NotEmpty(t, stats["pass_id"])
}
