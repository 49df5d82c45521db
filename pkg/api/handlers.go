package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jakechorley/shift-planner/pkg/core/model"
	"github.com/jakechorley/shift-planner/pkg/core/services"
	"github.com/jakechorley/shift-planner/pkg/proposal"
)

const defaultRunLimit = 20

// ScheduleRequest asks for a schedule. Proposal is optional and may be a JSON
// string (proposal text) or a schedule object in either export form.
type ScheduleRequest struct {
	Model    *model.Input    `json:"model"`
	Proposal json.RawMessage `json:"proposal,omitempty"`
}

// ScheduleResponse carries the outcome of a planning run. ReportError is set when
// a reporting sink failed; the outcome itself is still complete.
type ScheduleResponse struct {
	Outcome     *services.Outcome `json:"outcome"`
	ReportError string            `json:"reportError,omitempty"`
}

// ValidateRequest asks for a supplied schedule to be checked against a model
type ValidateRequest struct {
	Model    *model.Input    `json:"model"`
	Schedule json.RawMessage `json:"schedule"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.opts.Health != nil {
		if err := s.opts.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Model == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	m, err := services.BuildModel(req.Model, s.opts.Overrides, s.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source := s.opts.Source
	text, err := rawText(req.Proposal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal: " + err.Error()})
		return
	}
	if text != "" {
		source = proposal.Text(text)
	}

	outcome, err := services.PlanSchedule(c.Request.Context(), m, source, s.opts.Sinks, s.logger, s.opts.Plan)
	if outcome == nil || errors.Is(err, services.ErrValidatorDiverged) {
		s.logger.Error("Planning run failed", zap.Error(err))
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := ScheduleResponse{Outcome: outcome}
	if err != nil {
		resp.ReportError = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Model == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model is required"})
		return
	}

	text, err := rawText(req.Schedule)
	if err != nil || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schedule is required"})
		return
	}

	m, err := services.BuildModel(req.Model, s.opts.Overrides, s.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := services.ValidateSchedule(m, text, s.logger)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative number"})
			return
		}
		limit = parsed
	}

	runs, err := services.ListRuns(c.Request.Context(), s.opts.Runs, s.logger, limit)
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	detail, err := services.GetRun(c.Request.Context(), s.opts.Runs, s.logger, c.Param("id"))
	if errors.Is(err, services.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

// rawText turns a JSON string into its contents and any other JSON value into its text
func rawText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	return string(trimmed), nil
}
