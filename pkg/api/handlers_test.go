package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/db"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mondayMorningModel is one one-hour Monday morning shift needing two of three workers.
// The cheapest roster (EMP_002 + EMP_003) costs 22.
const mondayMorningModel = `{
	"horizon": {"dayIds": ["Mon"]},
	"shifts": [{"name": "Morning", "start": "09:00", "end": "10:00"}],
	"workers": [
		{"id": "EMP_001", "wage": 15, "maxHours": 8},
		{"id": "EMP_002", "wage": 10, "maxHours": 8},
		{"id": "EMP_003", "wage": 12, "maxHours": 8}
	],
	"requirements": [{"shift": "Morning", "minHeadcount": 2}]
}`

type mockSink struct {
	outcomes []*services.Outcome
	err      error
}

func (m *mockSink) Report(ctx context.Context, outcome *services.Outcome) error {
	m.outcomes = append(m.outcomes, outcome)
	return m.err
}

type mockRunStore struct {
	runs  []db.PlanningRun
	slots map[string][]db.AssignedSlot
	err   error
}

func (m *mockRunStore) GetRuns(ctx context.Context) ([]db.PlanningRun, error) {
	return m.runs, m.err
}

func (m *mockRunStore) GetRunSlots(ctx context.Context, runID string) ([]db.AssignedSlot, error) {
	return m.slots[runID], m.err
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(ctx context.Context) error {
	return m.err
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	s := NewServer(Options{Logger: zap.NewNop()})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	s = NewServer(Options{Health: &mockHealth{err: errors.New("connection refused")}})
	rec = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", decode(t, rec)["error"])
}

func TestSchedule_SolvesWithoutProposal(t *testing.T) {
	sink := &mockSink{}
	s := NewServer(Options{Sinks: []services.ReportingSink{sink}, Logger: zap.NewNop()})

	rec := do(t, s, http.MethodPost, "/api/schedule", `{"model": `+mondayMorningModel+`}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Outcome struct {
			State    string           `json:"state"`
			Source   string           `json:"source"`
			Proven   bool             `json:"proven"`
			Schedule map[string][]any `json:"schedule"`
			Metrics  struct {
				TotalCost float64 `json:"totalCost"`
			} `json:"metrics"`
		} `json:"outcome"`
		ReportError string `json:"reportError"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "solver_accepted", resp.Outcome.State)
	assert.Equal(t, "solver", resp.Outcome.Source)
	assert.True(t, resp.Outcome.Proven)
	assert.InDelta(t, 22.0, resp.Outcome.Metrics.TotalCost, 1e-9)
	assert.Empty(t, resp.Outcome.Schedule["EMP_001"])
	assert.Len(t, resp.Outcome.Schedule["EMP_002"], 1)
	assert.Empty(t, resp.ReportError)
	assert.Len(t, sink.outcomes, 1)
}

func TestSchedule_AcceptsValidProposal(t *testing.T) {
	s := NewServer(Options{})

	tests := []struct {
		name     string
		proposal string
	}{
		{name: "text with marker", proposal: `"{\"EMP_001\": [\"Mon_Morning\"], \"EMP_002\": [\"Mon_Morning\"]} FINAL_SCHEDULE"`},
		{name: "object", proposal: `{"EMP_001": [{"day": "Mon", "shift": "Morning"}], "EMP_002": ["Mon_Morning"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/schedule", `{"model": `+mondayMorningModel+`, "proposal": `+tt.proposal+`}`)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			outcome := decode(t, rec)["outcome"].(map[string]any)
			assert.Equal(t, "accepted", outcome["state"])
			assert.Equal(t, "proposal", outcome["source"])
			assert.Equal(t, false, outcome["proven"])
		})
	}
}

func TestSchedule_InfeasibleIsNotAnError(t *testing.T) {
	s := NewServer(Options{})
	model := strings.Replace(mondayMorningModel, `"minHeadcount": 2`, `"minHeadcount": 4`, 1)

	rec := do(t, s, http.MethodPost, "/api/schedule", `{"model": `+model+`}`)

	require.Equal(t, http.StatusOK, rec.Code)
	outcome := decode(t, rec)["outcome"].(map[string]any)
	assert.Equal(t, "scheduling_failure", outcome["state"])
	assert.NotEmpty(t, outcome["conflicts"])
	assert.NotEmpty(t, outcome["hints"])
}

func TestSchedule_SinkErrorReported(t *testing.T) {
	sink := &mockSink{err: errors.New("disk full")}
	s := NewServer(Options{Sinks: []services.ReportingSink{sink}})

	rec := do(t, s, http.MethodPost, "/api/schedule", `{"model": `+mondayMorningModel+`}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["reportError"], "disk full")
	assert.Equal(t, "solver_accepted", body["outcome"].(map[string]any)["state"])
}

func TestSchedule_BadRequests(t *testing.T) {
	s := NewServer(Options{})

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "missing model", body: `{}`},
		{name: "invalid model", body: `{"model": {"horizon": {"dayIds": ["Mon"]}, "shifts": [], "workers": []}}`},
		{name: "bad escape in proposal", body: `{"model": ` + mondayMorningModel + `, "proposal": "\x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/schedule", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestValidate(t *testing.T) {
	s := NewServer(Options{})

	rec := do(t, s, http.MethodPost, "/api/validate",
		`{"model": `+mondayMorningModel+`, "schedule": {"EMP_002": ["Mon_Morning"], "EMP_003": ["Mon_Morning"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["valid"])
	assert.InDelta(t, 22.0, body["metrics"].(map[string]any)["totalCost"], 1e-9)

	rec = do(t, s, http.MethodPost, "/api/validate",
		`{"model": `+mondayMorningModel+`, "schedule": {"EMP_002": ["Mon_Morning"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["valid"])
	violations := body["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "Mon/Morning", violations[0].(map[string]any)["entity"])

	rec = do(t, s, http.MethodPost, "/api/validate",
		`{"model": `+mondayMorningModel+`, "schedule": {"EMP_009": ["Mon_Morning"]}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/validate", `{"model": `+mondayMorningModel+`}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	store := &mockRunStore{
		runs: []db.PlanningRun{
			{ID: "run-1", CreatedAt: created, State: "solver_accepted", Source: "solver"},
			{ID: "run-2", CreatedAt: created.Add(time.Hour), State: "scheduling_failure"},
		},
		slots: map[string][]db.AssignedSlot{
			"run-1": {{RunID: "run-1", WorkerID: "EMP_002", DayID: "Mon", Shift: "Morning", Minutes: 60}},
		},
	}
	s := NewServer(Options{Runs: store})

	rec := do(t, s, http.MethodGet, "/api/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode(t, rec)["runs"].([]any)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].(map[string]any)["id"])

	rec = do(t, s, http.MethodGet, "/api/runs?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/runs/run-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.Equal(t, []any{"EMP_002"}, detail["workers"])

	rec = do(t, s, http.MethodGet, "/api/runs/run-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store.err = errors.New("connection reset")
	rec = do(t, s, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRuns_NotRegisteredWithoutStore(t *testing.T) {
	s := NewServer(Options{})
	rec := do(t, s, http.MethodGet, "/api/runs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRawText(t *testing.T) {
	text, err := rawText(nil)
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = rawText([]byte(" null "))
	require.NoError(t, err)
	assert.Empty(t, text)

	text, err = rawText([]byte(`"FINAL_SCHEDULE"`))
	require.NoError(t, err)
	assert.Equal(t, "FINAL_SCHEDULE", text)

	text, err = rawText([]byte(` {"a": []} `))
	require.NoError(t, err)
	assert.Equal(t, `{"a": []}`, text)
}
