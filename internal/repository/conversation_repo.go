package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"edubot-backend/internal/models"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	c.ID = uuid.New()
	query := `INSERT INTO conversations (id, user_id) VALUES ($1, $2)
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, c.ID, c.UserID).Scan(&c.CreatedAt, &c.UpdatedAt)
}

// GetOwned fetches a conversation only if it belongs to userID. A
// conversation owned by someone else scans as pgx.ErrNoRows, so callers
// cannot tell foreign conversations apart from missing ones.
func (r *ConversationRepo) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	c := &models.Conversation{}
	query := `SELECT id, user_id, created_at, updated_at FROM conversations
		WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	query := `SELECT id, user_id, created_at, updated_at FROM conversations
		WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]*models.Conversation, 0)
	for rows.Next() {
		c := &models.Conversation{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}

	return conversations, rows.Err()
}

// Touch refreshes updated_at so the conversation sorts to the top of the
// listing after a new message.
func (r *ConversationRepo) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE conversations SET updated_at = NOW() WHERE id = $1", id)
	return err
}

// DeleteOwned removes the conversation and all of its messages in one
// transaction: children first, then the parent row. Returns pgx.ErrNoRows
// when the conversation does not exist or belongs to another user.
func (r *ConversationRepo) DeleteOwned(ctx context.Context, id, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM messages m USING conversations c
		 WHERE m.conversation_id = c.id AND c.id = $1 AND c.user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	tag, err := tx.Exec(ctx,
		"DELETE FROM conversations WHERE id = $1 AND user_id = $2", id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return tx.Commit(ctx)
}
