package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"taskloom/internal/config"
	"taskloom/internal/logging"
)

// Endpoint is a single webhook destination with optional HTTP Basic Auth,
// matching one entry of the environment-selected `available_webhooks` profile.
type Endpoint = config.WebhookEndpoint

// SuccessPayload is the envelope sent when a step completes successfully.
// Preprocessing-style workflows (workflow ids containing "preprocessing")
// omit ResultText/References, matching the original notifier's heuristic.
type SuccessPayload struct {
	WorkflowID string      `json:"workflow_id"`
	TaskID     string      `json:"task_id"`
	Status     string      `json:"status"`
	Action     string      `json:"action,omitempty"`
	ResultText interface{} `json:"result_text"`
	References interface{} `json:"references"`
	ClientID   string      `json:"client_id,omitempty"`
	ProjectID  string      `json:"project_id,omitempty"`
	SessionID  string      `json:"session_id,omitempty"`
	InputText  interface{} `json:"input_text,omitempty"`
	Version    string      `json:"version,omitempty"`
}

// FailurePayload is the envelope sent when a step fails terminally.
type FailurePayload struct {
	WorkflowID string      `json:"workflow_id"`
	TaskID     string      `json:"task_id"`
	Status     string      `json:"status"`
	Action     string      `json:"action,omitempty"`
	Result     string      `json:"result"`
	ResultText string      `json:"result_text"`
	ClientID   string      `json:"client_id,omitempty"`
	ProjectID  string      `json:"project_id,omitempty"`
	SessionID  string      `json:"session_id,omitempty"`
	InputText  interface{} `json:"input_text,omitempty"`
}

// Notifier delivers step results to every endpoint configured for the
// current environment. A failure on one endpoint never prevents delivery to
// the next one, and never fails the task that triggered the notification.
type Notifier struct {
	endpoints []Endpoint
	timeout   time.Duration
	client    *http.Client
	audit     *AuditService
}

// NewNotifier builds a Notifier for the endpoints configured under the
// environment named by cfg.Environment ("local", "develop", "production").
func NewNotifier(cfg *config.Config, audit *AuditService) *Notifier {
	timeout := 30 * time.Second
	endpoints := cfg.Webhooks.EndpointsFor(cfg.Environment)

	return &Notifier{
		endpoints: endpoints,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
		audit:     audit,
	}
}

// NotifySuccess delivers payload to every configured endpoint if it is
// JSON-serializable; a non-serializable payload is logged and dropped.
func (n *Notifier) NotifySuccess(ctx context.Context, workflowID, taskID string, payload SuccessPayload) {
	payload.WorkflowID = workflowID
	payload.TaskID = taskID
	payload.Status = "SUCCESS"

	if isPreprocessing(workflowID) {
		// The outer fields hide the embedded ones of the same JSON name and
		// are omitted while nil, so neither key is sent.
		n.deliver(ctx, workflowID, taskID, struct {
			SuccessPayload
			ResultText interface{} `json:"result_text,omitempty"`
			References interface{} `json:"references,omitempty"`
		}{SuccessPayload: payload})
		return
	}

	n.deliver(ctx, workflowID, taskID, payload)
}

// NotifyFailure delivers a failure envelope to every configured endpoint.
func (n *Notifier) NotifyFailure(ctx context.Context, workflowID, taskID string, payload FailurePayload) {
	payload.WorkflowID = workflowID
	payload.TaskID = taskID
	payload.Status = "FAILURE"

	n.deliver(ctx, workflowID, taskID, payload)
}

func (n *Notifier) deliver(ctx context.Context, workflowID, taskID string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error("notifications: payload not JSON-serializable, dropping notification: %v", err)
		return
	}

	for _, ep := range n.endpoints {
		if ep.URL == "" {
			continue
		}
		n.send(ctx, ep, workflowID, taskID, body)
	}
}

func (n *Notifier) send(ctx context.Context, ep Endpoint, workflowID, taskID string, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		logging.Error("notifications: building request for %s: %v", ep.URL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.Username != "" || ep.Password != "" {
		req.SetBasicAuth(ep.Username, ep.Password)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		logging.Error("notifications: delivery to %s failed: %v", ep.URL, err)
		if n.audit != nil {
			_ = n.audit.LogDelivery(ctx, ep.URL, taskID, workflowID, "failure", 0, err.Error())
		}
		return
	}
	defer resp.Body.Close()

	status := "success"
	var errMsg string
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		status = "failure"
		errMsg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		logging.Error("notifications: %s returned %d", ep.URL, resp.StatusCode)
	}
	if n.audit != nil {
		_ = n.audit.LogDelivery(ctx, ep.URL, taskID, workflowID, status, resp.StatusCode, errMsg)
	}
}

func isPreprocessing(workflowID string) bool {
	return strings.Contains(strings.ToLower(workflowID), "preprocessing")
}
