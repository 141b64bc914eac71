package v1

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskloom/internal/db"
	"taskloom/internal/db/repositories"
	"taskloom/internal/runtime"
	"taskloom/internal/workflows"
)

type memEngine struct{}

func (m *memEngine) Submit(ctx context.Context, queue, taskID string, task json.RawMessage) error {
	return nil
}
func (m *memEngine) SetResult(ctx context.Context, taskID string, result json.RawMessage, taskErr error) error {
	return nil
}
func (m *memEngine) Result(ctx context.Context, taskID string) (runtime.TaskState, error) {
	return runtime.TaskState{}, nil
}
func (m *memEngine) Subscribe(queue string, handler func(msg *nats.Msg)) error { return nil }
func (m *memEngine) Close()                                                   {}

func setupHandlers(t *testing.T) *Handlers {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templatesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(templatesDir, "digest.yml"), []byte(`
steps:
  - step: summarize
    pipeline_key: summarize-doc
    inputs: [client_id]
`), 0644))
	loader := workflows.NewLoader(templatesDir)

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(conn))
	repos := repositories.New(conn)

	dispatcher := runtime.NewDispatcher(&memEngine{}, repos.TaskRecords)

	return NewHandlers(loader, dispatcher, repos.TaskRecords, repos.ChatHistory)
}

func newTestRouter(h *Handlers) *gin.Engine {
	engine := gin.New()
	engine.GET("/health", h.Health)
	api := engine.Group("/api")
	RegisterWorkflowRoutes(api, h)
	RegisterChatRoutes(api, h)
	return engine
}

func TestHealth(t *testing.T) {
	h := setupHandlers(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartWorkflow_UnknownTemplate(t *testing.T) {
	h := setupHandlers(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/does-not-exist", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStartWorkflow_DispatchesTemplate(t *testing.T) {
	h := setupHandlers(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/workflow/digest", strings.NewReader(`{"input":{"client_id":"acme"}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp workflowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "summarize", resp.Tasks[0].StepName)
}

func TestGetResult_NotFound(t *testing.T) {
	h := setupHandlers(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/results/missing-task", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChatHistory_RequiresProjectAndSession(t *testing.T) {
	h := setupHandlers(t)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/chat-history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatHistory_ReturnsStoredMessages(t *testing.T) {
	h := setupHandlers(t)
	require.NoError(t, h.ChatHistory.StoreMessage(context.Background(), repositories.ChatMessage{
		ClientID: "acme", ProjectID: "p1", SessionID: "s1", Role: "user", Content: "hi",
	}))

	router := newTestRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/api/chat-history?project_id=p1&session_id=s1&client_id=acme", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"hi\"")
}
