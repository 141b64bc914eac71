package repositories

import (
	"context"
	"database/sql"
)

// WebhookDelivery is one recorded attempt to notify an endpoint.
type WebhookDelivery struct {
	URL        string
	TaskID     string
	WorkflowID string
	Status     string // "success" or "failure"
	StatusCode int
	Error      string
}

type WebhookDeliveryRepository struct {
	conn *sql.DB
}

func (r *WebhookDeliveryRepository) Record(ctx context.Context, d WebhookDelivery) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (url, task_id, workflow_id, status, status_code, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.URL, d.TaskID, d.WorkflowID, d.Status, d.StatusCode, d.Error)
	return err
}
