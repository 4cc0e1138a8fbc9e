package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/database"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
)

const endpointVideo = "/events/video"

func (s *Server) handleHealthz(c *gin.Context) {
	dbStatus, dbErr := database.Health(c.Request.Context(), s.db)
	cacheErr := s.cache.Ping(c.Request.Context())

	status := http.StatusOK
	overall := "ok"
	if dbErr != nil || cacheErr != nil {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
		"cache":    cacheErr == nil,
	})
}

func (s *Server) handleAuthToken(c *gin.Context) {
	var req struct {
		TenantID string `json:"tenant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.TenantID == "" {
		respondError(c, services.NewValidationError("tenant_id", "required"))
		return
	}
	const ttl = 24 * time.Hour
	token, err := issueToken(s.cfg.JWTSecret, req.TenantID, ttl)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(ttl.Seconds())})
}

func (s *Server) handleTenantSync(c *gin.Context) {
	var req services.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return
	}
	if err := s.tenants.Sync(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateThread(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	var req services.CreateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return
	}
	thread, err := s.threads.Create(c.Request.Context(), tenant, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// runPayload is the request body shared by the wait and async run routes.
type runPayload struct {
	AssistantID string           `json:"assistant_id,omitempty"`
	Messages    []models.Message `json:"messages"`
}

func (s *Server) runRequest(c *gin.Context) (services.RunRequest, bool) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return services.RunRequest{}, false
	}
	var payload runPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return services.RunRequest{}, false
	}
	return services.RunRequest{
		TenantID:    tenant,
		ThreadID:    c.Param("thread_id"),
		AssistantID: payload.AssistantID,
		Messages:    payload.Messages,
	}, true
}

func (s *Server) handleRunWait(c *gin.Context) {
	req, ok := s.runRequest(c)
	if !ok {
		return
	}
	result, err := s.runs.Execute(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse(result))
}

func (s *Server) handleRunAsync(c *gin.Context) {
	req, ok := s.runRequest(c)
	if !ok {
		return
	}
	run, err := s.runs.ExecuteAsync(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": run.Status})
}

func (s *Server) handleRunStatus(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	run, err := s.runs.GetRun(c.Request.Context(), tenant, c.Param("run_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if run.ThreadID != c.Param("thread_id") {
		respondError(c, services.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleMemoryInsert(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	var req struct {
		Items []models.InsertMemoryItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return
	}
	results, err := s.memories.BulkInsert(c.Request.Context(), tenant, req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleMemoryDelete(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	var req struct {
		MemoryID string `json:"memory_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return
	}
	if err := s.memories.Delete(c.Request.Context(), tenant, req.MemoryID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMemoryAppend(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	var req struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, services.NewValidationError("body", err.Error()))
		return
	}
	n, err := s.memories.AppendMessages(c.Request.Context(), tenant, c.Param("thread_id"), req.Messages)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buffered": n})
}

func (s *Server) handleCreateVideo(c *gin.Context) {
	tenant := tenantID(c)
	if tenant == "" {
		respondError(c, services.NewValidationError("X-Tenant-ID", "required"))
		return
	}
	var req struct {
		ThreadID string `json:"thread_id,omitempty"`
		Prompt   string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		respondError(c, services.NewValidationError("prompt", "required"))
		return
	}

	session := &models.VideoSession{
		ID:        uuid.NewString(),
		TenantID:  tenant,
		ThreadID:  req.ThreadID,
		Prompt:    req.Prompt,
		Status:    models.VideoQueued,
		CreatedAt: time.Now(),
	}
	if err := s.cache.SetMsgpack(c.Request.Context(), cache.VideoSessionKey(session.ID),
		session, cache.VideoSessionTTL); err != nil {
		respondError(c, err)
		return
	}
	s.enqueueVideoCallback(c, session)
	c.JSON(http.StatusAccepted, session)
}

// handleGetAudio serves a synthesized speech artifact from the cache. The
// URL comes back in a run's multimodal outputs.
func (s *Server) handleGetAudio(c *gin.Context) {
	data, ok, err := s.cache.GetBytes(c.Request.Context(), cache.AudioKey(c.Param("audio_id")))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		respondError(c, services.ErrNotFound)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", data)
}

// enqueueVideoCallback notifies the upstream system that a video session was
// accepted. Delivery is durable; a failed enqueue only loses the notice.
func (s *Server) enqueueVideoCallback(c *gin.Context, session *models.VideoSession) {
	payload, err := json.Marshal(models.CallbackJobPayload{
		Endpoint: endpointVideo,
		Envelope: models.CallbackEnvelope{
			ThreadID:  session.ThreadID,
			EventID:   "video",
			EventTime: time.Now().UnixMilli(),
			EventContent: models.CallbackEventContent{
				RunID:  session.ID,
				Status: "completed",
				Data:   &models.CallbackData{Output: session.ID},
			},
		},
	})
	if err != nil {
		slog.Warn("Failed to encode video callback", "session_id", session.ID, "error", err)
		return
	}
	_, err = s.jobs.Enqueue(c.Request.Context(), &models.Job{
		Kind:        models.JobCallback,
		TenantID:    session.TenantID,
		ThreadID:    session.ThreadID,
		Payload:     payload,
		RunAt:       time.Now(),
		MaxAttempts: 3,
	})
	if err != nil {
		slog.Warn("Failed to enqueue video callback", "session_id", session.ID, "error", err)
	}
}

// runResponse shapes the synchronous run result for the wire.
func runResponse(res *services.RunResult) gin.H {
	st := res.State
	return gin.H{
		"run_id":             res.Run.ID,
		"status":             res.Run.Status,
		"output":             st.Output,
		"business_outputs":   st.BusinessOutputs,
		"actions":            st.Actions,
		"active_agents":      st.ActiveAgents,
		"multimodal_outputs": st.MultimodalOutputs,
		"input_tokens":       st.InputTokens,
		"output_tokens":      st.OutputTokens,
		"total_tokens":       st.TotalTokens,
		"finished_at":        st.FinishedAt,
	}
}
