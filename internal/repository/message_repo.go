package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"edubot-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	m.ID = uuid.New()
	query := `INSERT INTO messages (id, conversation_id, content, is_user, class_level, subject)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING timestamp`

	return r.pool.QueryRow(ctx, query,
		m.ID, m.ConversationID, m.Content, m.IsUser, m.ClassLevel, m.Subject,
	).Scan(&m.Timestamp)
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error) {
	query := `SELECT id, conversation_id, content, is_user, timestamp, class_level, subject
		FROM messages WHERE conversation_id = $1 ORDER BY timestamp ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		m := &models.Message{}
		err := rows.Scan(&m.ID, &m.ConversationID, &m.Content, &m.IsUser,
			&m.Timestamp, &m.ClassLevel, &m.Subject)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
