package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"edubot-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CreateWithProfile inserts the user and its profile in one transaction,
// so registration can never leave a user without a profile.
func (r *UserRepo) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	user.ID = uuid.New()
	profile.UserID = user.ID

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		user.ID, user.Username, user.Email, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO profiles (user_id, phone, class_level, avatar)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		profile.UserID, profile.Phone, profile.ClassLevel, profile.Avatar,
	).Scan(&profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`

	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	query := `SELECT user_id, phone, class_level, avatar, created_at FROM profiles WHERE user_id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Phone, &p.ClassLevel, &p.Avatar, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// EmailInUse reports whether another user already registered this email.
func (r *UserRepo) EmailInUse(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)",
		email, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepo) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET email = $1 WHERE id = $2", email, userID)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE profiles SET phone = $1, class_level = $2, avatar = $3 WHERE user_id = $4",
		p.Phone, p.ClassLevel, p.Avatar, p.UserID,
	)
	return err
}
