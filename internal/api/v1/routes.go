package v1

import "github.com/gin-gonic/gin"

// RegisterWorkflowRoutes wires the workflow dispatch and status endpoints.
func RegisterWorkflowRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/workflow/:template", h.StartWorkflow)
	rg.GET("/workflow/:workflowId/status", h.GetWorkflowStatus)
	rg.GET("/results/:taskId", h.GetResult)
}

// RegisterChatRoutes wires the chat dispatch and history endpoints.
func RegisterChatRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/chat/:template", h.StartChat)
	rg.GET("/chat-history", h.GetChatHistory)
}
