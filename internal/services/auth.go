package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"edubot-backend/internal/middleware"
	"edubot-backend/internal/models"
)

type userStore interface {
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	EmailInUse(ctx context.Context, email string, excludeID uuid.UUID) (bool, error)
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string) error
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

type AuthService struct {
	users userStore
	redis *redis.Client
	jwt   *middleware.JWTAuth
}

func NewAuthService(users userStore, redisClient *redis.Client, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{
		users: users,
		redis: redisClient,
		jwt:   jwt,
	}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, *models.Profile, *models.AuthTokens, error) {
	fieldErrors := make(map[string]string)

	if req.Username == "" {
		fieldErrors["username"] = "Nom d'utilisateur requis"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Mot de passe requis"
	} else if len(req.Password) < 6 {
		fieldErrors["password"] = "Le mot de passe doit contenir au moins 6 caractères"
	}

	if len(fieldErrors) > 0 {
		return nil, nil, nil, &ValidationError{Fields: fieldErrors}
	}

	// Check uniqueness
	_, err := s.users.GetByUsername(ctx, req.Username)
	if err == nil {
		return nil, nil, nil, &ValidationError{Fields: map[string]string{
			"username": "Ce nom d'utilisateur existe déjà",
		}}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil, err
	}

	if req.Email != "" {
		taken, err := s.users.EmailInUse(ctx, req.Email, uuid.Nil)
		if err != nil {
			return nil, nil, nil, err
		}
		if taken {
			return nil, nil, nil, &ValidationError{Fields: map[string]string{
				"email": "Cet email existe déjà",
			}}
		}
	}

	// Hash password (bcrypt cost 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        optional(req.Email),
		PasswordHash: string(hash),
	}
	profile := &models.Profile{
		Phone:      optional(req.Phone),
		ClassLevel: optional(req.ClassLevel),
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, nil, nil, err
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, nil, err
	}

	return user, profile, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.Profile, *models.AuthTokens, error) {
	if req.Username == "" || req.Password == "" {
		return nil, nil, nil, &ValidationError{Fields: map[string]string{
			"credentials": "Nom d'utilisateur et mot de passe requis",
		}}
	}

	// A missing user and a wrong password produce the same message so the
	// response never reveals which usernames exist.
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, &UnauthorizedError{Message: "Nom d'utilisateur ou mot de passe incorrect"}
		}
		return nil, nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, nil, &UnauthorizedError{Message: "Nom d'utilisateur ou mot de passe incorrect"}
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil, err
		}
		profile = nil
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, nil, err
	}

	return user, profile, tokens, nil
}

// Logout revokes the refresh token. Once removed from the store it can no
// longer mint access tokens.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return &ValidationError{Fields: map[string]string{
			"refresh_token": "Refresh token requis",
		}}
	}

	deleted, err := s.redis.Del(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return &ValidationError{Fields: map[string]string{
			"refresh_token": "Refresh token invalide",
		}}
	}
	return nil
}

// RefreshToken exchanges a valid refresh token for a fresh token pair.
// The old token is rotated out.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, &UnauthorizedError{Message: "Refresh token invalide ou expiré. Veuillez vous reconnecter."}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in refresh token: %w", err)
	}

	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, *models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
		profile = nil
	}

	return user, profile, nil
}

// UpdateProfile overwrites the provided fields. Empty values are ignored,
// not cleared: a client can only replace a field with a new value, never
// blank it. This mirrors the historical behavior of the API.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (*models.User, *models.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if req.Email != "" && (user.Email == nil || req.Email != *user.Email) {
		taken, err := s.users.EmailInUse(ctx, req.Email, userID)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return nil, nil, &ValidationError{Fields: map[string]string{
				"email": "Cet email est déjà utilisé",
			}}
		}
		if err := s.users.UpdateEmail(ctx, userID, req.Email); err != nil {
			return nil, nil, err
		}
		user.Email = &req.Email
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	if req.Phone != "" {
		profile.Phone = &req.Phone
	}
	if req.ClassLevel != "" {
		profile.ClassLevel = &req.ClassLevel
	}
	if req.Avatar != "" {
		profile.Avatar = &req.Avatar
	}

	if err := s.users.UpdateProfile(ctx, profile); err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}

	// Store refresh token in Redis (7 days)
	err = s.redis.Set(ctx, "refresh:"+refreshToken, user.ID.String(), 7*24*time.Hour).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		Access:  accessToken,
		Refresh: refreshToken,
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }
