package notifications

import (
	"context"

	"taskloom/internal/db/repositories"
)

// AuditService records every webhook delivery attempt for observability.
// It never gates delivery or task status — a failing audit write is logged
// and otherwise ignored by its caller.
type AuditService struct {
	deliveries *repositories.WebhookDeliveryRepository
}

func NewAuditService(deliveries *repositories.WebhookDeliveryRepository) *AuditService {
	return &AuditService{deliveries: deliveries}
}

func (a *AuditService) LogDelivery(ctx context.Context, url, taskID, workflowID, status string, statusCode int, errMsg string) error {
	if a == nil || a.deliveries == nil {
		return nil
	}
	return a.deliveries.Record(ctx, repositories.WebhookDelivery{
		URL:        url,
		TaskID:     taskID,
		WorkflowID: workflowID,
		Status:     status,
		StatusCode: statusCode,
		Error:      errMsg,
	})
}
