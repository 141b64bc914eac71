// Package v1 implements the REST surface named in the spec: starting
// workflow/chat runs from a template, polling a task's result, and reading
// back chat history.
package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskloom/internal/db/repositories"
	"taskloom/internal/runtime"
	"taskloom/internal/workflows"
)

// Handlers holds every collaborator the REST surface delegates to.
type Handlers struct {
	Loader      *workflows.Loader
	Dispatcher  *runtime.Dispatcher
	TaskStore   *repositories.TaskRecordRepository
	ChatHistory *repositories.ChatHistoryRepository
}

func NewHandlers(loader *workflows.Loader, dispatcher *runtime.Dispatcher, taskStore *repositories.TaskRecordRepository, chatHistory *repositories.ChatHistoryRepository) *Handlers {
	return &Handlers{Loader: loader, Dispatcher: dispatcher, TaskStore: taskStore, ChatHistory: chatHistory}
}

// Health reports API liveness only: it does not submit a task or otherwise
// check the queue backend.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"api": "ok"})
}

type workflowRequest struct {
	Input map[string]interface{} `json:"input"`
	// Outputs carries already-known step outputs, keyed by step name, for a
	// caller resuming a run — those steps are never resubmitted.
	Outputs map[string]interface{} `json:"outputs,omitempty"`
}

type workflowResponse struct {
	WorkflowID string                 `json:"workflow_id"`
	Tasks      []workflows.TaskRecord `json:"tasks"`
}

// StartWorkflow handles POST /api/workflow/:template.
func (h *Handlers) StartWorkflow(c *gin.Context) {
	h.startFromTemplate(c)
}

// StartChat handles POST /api/chat/:template. It is semantically identical
// to StartWorkflow — both load a template by name and dispatch it — kept as
// a distinct route because the original system exposes them as distinct
// surfaces for its two calling applications.
func (h *Handlers) StartChat(c *gin.Context) {
	h.startFromTemplate(c)
}

func (h *Handlers) startFromTemplate(c *gin.Context) {
	template := c.Param("template")

	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}
	if req.Input == nil {
		req.Input = map[string]interface{}{}
	}

	tf, err := h.Loader.LoadByName(template)
	if err != nil {
		if errors.Is(err, workflows.ErrTemplateNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_template", "details": "template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": err.Error()})
		return
	}

	workflowID, _ := req.Input["workflow_id"].(string)
	if workflowID == "" {
		workflowID = "default_workflow"
	}
	req.Input["workflow_id"] = workflowID

	tasks, err := h.Dispatcher.Dispatch(c.Request.Context(), workflowID, tf.Template, req.Input, req.Outputs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, workflowResponse{WorkflowID: workflowID, Tasks: tasks})
}

// GetWorkflowStatus handles GET /api/workflow/:workflowId/status. This stays
// a placeholder, as it was in the original system: task ids are tracked per
// task, not aggregated per workflow, so a full rollup would need a
// workflow_id -> []task_id index this system does not maintain.
func (h *Handlers) GetWorkflowStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workflow_id": c.Param("workflowId"),
		"message":     "workflow status endpoint - task ids are tracked individually",
		"status":      "active",
	})
}

// GetResult handles GET /api/results/:taskId.
func (h *Handlers) GetResult(c *gin.Context) {
	taskID := c.Param("taskId")

	rec, err := h.TaskStore.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "details": err.Error()})
		return
	}

	switch rec.Status {
	case "SUCCESS":
		c.JSON(http.StatusOK, gin.H{"task_id": taskID, "result": rec.Result})
	case "FAILURE":
		c.JSON(http.StatusInternalServerError, gin.H{"task_id": taskID, "error": rec.Error})
	default:
		c.JSON(http.StatusAccepted, gin.H{"task_id": taskID, "state": rec.Status})
	}
}

// GetChatHistory handles GET /api/chat-history.
func (h *Handlers) GetChatHistory(c *gin.Context) {
	projectID := c.Query("project_id")
	sessionID := c.Query("session_id")
	clientID := c.Query("client_id")
	if projectID == "" || sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": "project_id and session_id are required"})
		return
	}
	if clientID == "" {
		clientID = projectID
	}

	messages, err := h.ChatHistory.GetMessages(c.Request.Context(), clientID, projectID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false, "error": "internal_error", "details": err.Error(),
			"chat_history": []repositories.ChatMessage{},
			"metadata": gin.H{"total_messages": 0, "client_id": clientID, "project_id": projectID, "session_id": sessionID},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"chat_history": messages,
		"metadata": gin.H{
			"total_messages": len(messages),
			"client_id":      clientID,
			"project_id":     projectID,
			"session_id":     sessionID,
		},
	})
}
