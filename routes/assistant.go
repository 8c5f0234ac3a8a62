package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"caregiver-compass/internal/assistant"
	"caregiver-compass/internal/ingest"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/queue"
	"caregiver-compass/internal/stats"
	"caregiver-compass/models"
	"caregiver-compass/utils"
)

// Deps carries the wired components the HTTP surface exposes.
type Deps struct {
	Assistant   *assistant.Assistant
	Reporter    *stats.Reporter
	QueueClient *asynq.Client // nil disables the ingestion endpoints
}

// SetupAssistantRoutes registers the public assistant API and the
// operational endpoints.
func SetupAssistantRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Main entry point: every outcome is a well-formed Answer, so the
	// handler always responds 200 and callers read Answer.ErrorCode.
	api.POST("/assistant", func(c *gin.Context) {
		var query models.Query
		if err := c.ShouldBindJSON(&query); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		answer := deps.Assistant.AnswerQuery(c.Request.Context(), query)
		c.JSON(http.StatusOK, answer)
	})

	api.GET("/collections", func(c *gin.Context) {
		snap, err := deps.Reporter.Snapshot(c.Request.Context())
		if err != nil {
			utils.RespondWithServiceUnavailable(c, "store_unavailable", "Knowledge base is unreachable")
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	if deps.QueueClient != nil {
		setupIngestionRoutes(api, deps.QueueClient)
	}
}

// setupIngestionRoutes exposes async knowledge base maintenance. Work is
// enqueued, not executed inline: ingestion of a large PDF must not tie up
// an HTTP worker.
func setupIngestionRoutes(api *gin.RouterGroup, client *asynq.Client) {
	admin := api.Group("/admin")

	admin.POST("/ingest", func(c *gin.Context) {
		var spec ingest.SourceSpec
		if err := c.ShouldBindJSON(&spec); err != nil {
			utils.RespondWithBadRequest(c, "Invalid source spec", nil)
			return
		}
		if spec.Path == "" || spec.SourceName == "" || spec.Collection == "" {
			utils.RespondWithBadRequest(c, "path, source_name and collection are required", nil)
			return
		}

		task, err := queue.NewIngestSourceTask(spec)
		if err != nil {
			utils.RespondWithInternalError(c, "Could not create ingestion task", nil)
			return
		}

		info, err := client.Enqueue(task)
		if err != nil {
			logger.Error("Failed to enqueue ingestion task", "error", err)
			utils.RespondWithServiceUnavailable(c, "queue_unavailable", "Ingestion queue is unreachable")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"task_id":    info.ID,
			"queue":      info.Queue,
			"collection": spec.Collection,
		})
	})

	admin.POST("/reset/:collection", func(c *gin.Context) {
		task, err := queue.NewResetCollectionTask(c.Param("collection"))
		if err != nil {
			utils.RespondWithInternalError(c, "Could not create reset task", nil)
			return
		}

		info, err := client.Enqueue(task)
		if err != nil {
			logger.Error("Failed to enqueue reset task", "error", err)
			utils.RespondWithServiceUnavailable(c, "queue_unavailable", "Ingestion queue is unreachable")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
	})
}
