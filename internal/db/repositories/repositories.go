// Package repositories provides per-entity data access on top of internal/db,
// mirroring the repository-per-entity layout the rest of the codebase uses.
package repositories

import "database/sql"

// Repositories bundles the repositories sharing a single connection.
type Repositories struct {
	TaskRecords      *TaskRecordRepository
	WebhookDeliveries *WebhookDeliveryRepository
	ChatHistory      *ChatHistoryRepository
}

// New builds all repositories against conn.
func New(conn *sql.DB) *Repositories {
	return &Repositories{
		TaskRecords:       &TaskRecordRepository{conn: conn},
		WebhookDeliveries: &WebhookDeliveryRepository{conn: conn},
		ChatHistory:       &ChatHistoryRepository{conn: conn},
	}
}
