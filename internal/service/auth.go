package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/auth"
	"github.com/vuxmai/catalog-admin/internal/config"
	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/repository"
)

type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

type LoginParams struct {
	Email    string
	Password string
}

type LoginResult struct {
	Admin       model.Admin
	AccessToken string
}

type ResetPasswordParams struct {
	Token    string
	Password string
}

// TokenDenylist records revoked access-token IDs until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (model.Admin, error)
	Login(ctx context.Context, params LoginParams) (LoginResult, error)
	Logout(ctx context.Context, token string) error
	// ForgotPassword issues a reset token for the account, or nothing when
	// the email is unknown. It never reveals whether the account exists.
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, params ResetPasswordParams) error
}

type authService struct {
	logger    *slog.Logger
	cfg       config.Auth
	adminRepo repository.AdminRepository
	jwt       *auth.JWTManager
	denylist  TokenDenylist
}

func NewAuthService(
	logger *slog.Logger,
	cfg config.Auth,
	adminRepo repository.AdminRepository,
	jwtManager *auth.JWTManager,
	denylist TokenDenylist,
) AuthService {
	return &authService{
		logger:    logger.With(slog.String("service", "auth")),
		cfg:       cfg,
		adminRepo: adminRepo,
		jwt:       jwtManager,
		denylist:  denylist,
	}
}

func (s *authService) Register(ctx context.Context, params RegisterParams) (model.Admin, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Admin{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return model.Admin{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	admin := model.Admin{
		ID:           id,
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if isUniqueViolation(err) {
			return model.Admin{}, apperr.ErrAdminEmailTaken.WrapParent(err)
		}
		return model.Admin{}, fmt.Errorf("create admin: %w", err)
	}

	return admin, nil
}

func (s *authService) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, apperr.ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("get admin by email: %w", err)
	}

	if !auth.CheckPassword(admin.PasswordHash, params.Password) {
		return LoginResult{}, apperr.ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateAccessToken(admin.ID, admin.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return LoginResult{Admin: admin, AccessToken: token}, nil
}

// Logout revokes the presented token for its remaining lifetime.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return apperr.ErrInvalidToken.WrapParent(err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return "", nil
		}
		return "", fmt.Errorf("get admin by email: %w", err)
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)

	if err := s.adminRepo.SetResetToken(ctx, admin.ID, token, expiresAt); err != nil {
		return "", fmt.Errorf("set reset token: %w", err)
	}

	return token, nil
}

func (s *authService) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	admin, err := s.adminRepo.GetByResetToken(ctx, params.Token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrInvalidResetToken
		}
		return fmt.Errorf("get admin by reset token: %w", err)
	}

	if admin.ResetTokenExpiresAt == nil || time.Now().After(*admin.ResetTokenExpiresAt) {
		return apperr.ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.adminRepo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}
