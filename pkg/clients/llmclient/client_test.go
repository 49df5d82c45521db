package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/internal/config"
	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

func promptModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(model.Input{
		Horizon: model.HorizonInput{DayIDs: []string{"Mon", "Tue"}},
		Shifts: []model.ShiftInput{
			{Name: "Morning", Start: "06:00", End: "14:00"},
			{Name: "Evening", Start: "14:00", End: "22:00"},
		},
		Workers: []model.WorkerInput{
			{ID: "EMP_001", Role: model.RoleManager, Wage: 20, MaxHours: 16, Skills: []string{"first_aid"}, PreferredShifts: []string{"Morning"}},
			{ID: "EMP_002", Wage: 10, MaxHours: 40, Availability: map[string]string{"Mon": "12:00-22:00", "Tue": "off"}},
		},
		Requirements: []model.RequirementInput{
			{Day: "Mon", Shift: "Morning", MinHeadcount: 1, RoleMinimums: map[string]int{model.RoleManager: 1}},
		},
		Policy: model.PolicyInput{MinRestMinutes: 600, MaxTotalHours: 30},
	})
	require.NoError(t, err)
	return m
}

// chatServer answers chat completions with a fixed reply and captures the last request
type chatServer struct {
	reply   string
	status  int
	request openai.ChatCompletionRequest
	auth    string
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
		http.NotFound(w, r)
		return
	}
	s.auth = r.Header.Get("Authorization")
	json.NewDecoder(r.Body).Decode(&s.request)

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "model not loaded", "type": "server_error"}})
		return
	}
	json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:     "chatcmpl-1",
		Object: "chat.completion",
		Model:  s.request.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{CompletionTokens: 12},
	})
}

func newTestClient(t *testing.T, srv *chatServer) *Client {
	t.Helper()
	t.Setenv(APIKeyEnv, "")
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	client, err := NewClient(&config.LLMConfig{
		BaseURL:     httpSrv.URL + "/v1",
		Model:       "llama3",
		Temperature: 0.2,
		MaxTokens:   512,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_Propose(t *testing.T) {
	srv := &chatServer{reply: `{"EMP_001": ["Mon_Morning"], "EMP_002": []}` + "\n" + proposal.FinalMarker}
	client := newTestClient(t, srv)
	m := promptModel(t)

	text, err := client.Propose(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, srv.reply, text)
	assert.Equal(t, "Bearer "+placeholderKey, srv.auth)
	assert.Equal(t, "llama3", srv.request.Model)
	assert.Equal(t, 512, srv.request.MaxCompletionTokens)
	require.Len(t, srv.request.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, srv.request.Messages[0].Role)
	assert.Equal(t, BuildPrompt(m), srv.request.Messages[1].Content)

	// The reply is usable as a proposal
	a, err := proposal.Resolve(m, text)
	require.NoError(t, err)
	assert.True(t, a.Has(0, 0, 0))
}

func TestClient_ProposeServerError(t *testing.T) {
	client := newTestClient(t, &chatServer{status: http.StatusInternalServerError})

	_, err := client.Propose(context.Background(), promptModel(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestNewClient_Errors(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	_, err := NewClient(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(&config.LLMConfig{BaseURL: "http://localhost:11434/v1"}, zap.NewNop())
	assert.Error(t, err)

	// Hosted endpoints need a key
	_, err = NewClient(&config.LLMConfig{Model: "gpt-4o-mini"}, zap.NewNop())
	assert.ErrorContains(t, err, APIKeyEnv)

	t.Setenv(APIKeyEnv, "sk-test")
	_, err = NewClient(&config.LLMConfig{Model: "gpt-4o-mini"}, zap.NewNop())
	assert.NoError(t, err)
}

func TestBuildPrompt(t *testing.T) {
	m := promptModel(t)

	prompt := BuildPrompt(m)

	assert.Contains(t, prompt, "Days: Mon, Tue")
	assert.Contains(t, prompt, "- Morning: 06:00-14:00 (480 minutes, category Morning)")
	assert.Contains(t, prompt, "- EMP_001 role=manager wage=20.00/h hours=0.0-16.0 skills=first_aid prefers=Morning")
	assert.Contains(t, prompt, "EMP_002 role=staff")
	assert.Contains(t, prompt, "available=Mon 12:00-22:00\n")
	assert.Contains(t, prompt, "- Mon_Morning: at least 1 workers, 1 manager")
	assert.Contains(t, prompt, "At least 600 minutes rest")
	assert.Contains(t, prompt, "must not exceed 30.0")
	assert.Contains(t, prompt, `{"EMP_001": ["Mon_Morning"]}`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(prompt), proposal.FinalMarker+"."))

	assert.Equal(t, prompt, BuildPrompt(m))
}
