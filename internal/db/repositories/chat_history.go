package repositories

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// ChatMessage is one turn of a chat session, keyed by client/project/session
// the same way the original chat-history store keys messages.
type ChatMessage struct {
	MessageID string
	ClientID  string
	ProjectID string
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

type ChatHistoryRepository struct {
	conn *sql.DB
}

// StoreMessage persists a chat message, deriving a deterministic message id
// from its identifying fields and CreatedAt, so a retry that passes the same
// CreatedAt is not stored twice. When CreatedAt is unset it is filled with the
// current time, so each such call yields a new id.
func (r *ChatHistoryRepository) StoreMessage(ctx context.Context, m ChatMessage) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.MessageID == "" {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%s:%s:%s",
			m.ClientID, m.ProjectID, m.SessionID, m.Role, m.Content, m.CreatedAt.Format(time.RFC3339Nano))))
		m.MessageID = hex.EncodeToString(sum[:])
	}

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO chat_history (message_id, client_id, project_id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, m.MessageID, m.ClientID, m.ProjectID, m.SessionID, m.Role, m.Content, m.CreatedAt)
	return err
}

// GetMessages returns every message for a session, oldest first.
func (r *ChatHistoryRepository) GetMessages(ctx context.Context, clientID, projectID, sessionID string) ([]ChatMessage, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT message_id, client_id, project_id, session_id, role, content, created_at
		FROM chat_history
		WHERE client_id=? AND project_id=? AND session_id=?
		ORDER BY created_at ASC
	`, clientID, projectID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.MessageID, &m.ClientID, &m.ProjectID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
