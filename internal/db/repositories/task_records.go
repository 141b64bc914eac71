package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// ErrTaskRecordNotFound is returned when a task id has no recorded row.
var ErrTaskRecordNotFound = errors.New("task record not found")

// TaskRecord mirrors the status of a single dispatched task, independent of
// whether the queue backend that ran it is still reachable.
type TaskRecord struct {
	TaskID      string
	WorkflowID  string
	StepName    string
	PipelineKey string
	Queue       string
	Status      string // PENDING, SUCCESS, FAILURE
	Result      json.RawMessage
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskRecordRepository struct {
	conn *sql.DB
}

func (r *TaskRecordRepository) Create(ctx context.Context, rec TaskRecord) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO task_records (task_id, workflow_id, step_name, pipeline_key, queue, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET status=excluded.status, updated_at=CURRENT_TIMESTAMP
	`, rec.TaskID, rec.WorkflowID, rec.StepName, rec.PipelineKey, rec.Queue, rec.Status)
	return err
}

func (r *TaskRecordRepository) MarkSuccess(ctx context.Context, taskID string, result json.RawMessage) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE task_records SET status='SUCCESS', result_json=?, updated_at=CURRENT_TIMESTAMP WHERE task_id=?
	`, string(result), taskID)
	return err
}

func (r *TaskRecordRepository) MarkFailure(ctx context.Context, taskID string, errMsg string) error {
	_, err := r.conn.ExecContext(ctx, `
		UPDATE task_records SET status='FAILURE', error=?, updated_at=CURRENT_TIMESTAMP WHERE task_id=?
	`, errMsg, taskID)
	return err
}

func (r *TaskRecordRepository) Get(ctx context.Context, taskID string) (*TaskRecord, error) {
	row := r.conn.QueryRowContext(ctx, `
		SELECT task_id, workflow_id, step_name, pipeline_key, queue, status, result_json, error, created_at, updated_at
		FROM task_records WHERE task_id=?
	`, taskID)

	var rec TaskRecord
	var result, errMsg sql.NullString
	if err := row.Scan(&rec.TaskID, &rec.WorkflowID, &rec.StepName, &rec.PipelineKey, &rec.Queue,
		&rec.Status, &result, &errMsg, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskRecordNotFound
		}
		return nil, err
	}
	if result.Valid {
		rec.Result = json.RawMessage(result.String)
	}
	rec.Error = errMsg.String
	return &rec, nil
}
