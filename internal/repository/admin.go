package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
)

const adminColumns = `
	id, name, email, password_hash,
	reset_token, reset_token_expires_at,
	created_at, updated_at`

// AdminRepository persists admin accounts. Single-row lookups return
// pgx.ErrNoRows when the row is absent.
type AdminRepository interface {
	WithDB(db db.DB) AdminRepository
	Create(ctx context.Context, admin model.Admin) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Admin, error)
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
	GetByResetToken(ctx context.Context, token string) (model.Admin, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type adminRepository struct {
	db db.DB
}

func NewAdminRepository(db db.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r adminRepository) WithDB(db db.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r adminRepository) Create(ctx context.Context, admin model.Admin) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO admins (id, name, email, password_hash, created_at, updated_at)
		VALUES (@id, @name, @email, @password_hash, @created_at, @updated_at);
	`, pgx.NamedArgs{
		"id":            admin.ID,
		"name":          admin.Name,
		"email":         admin.Email,
		"password_hash": admin.PasswordHash,
		"created_at":    admin.CreatedAt,
		"updated_at":    admin.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	return nil
}

func (r adminRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Admin, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1;`, id)
	return scanAdmin(row)
}

func (r adminRepository) GetByEmail(ctx context.Context, email string) (model.Admin, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1;`, email)
	return scanAdmin(row)
}

func (r adminRepository) GetByResetToken(ctx context.Context, token string) (model.Admin, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE reset_token = $1;`, token)
	return scanAdmin(row)
}

func (r adminRepository) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE admins
		SET reset_token = $2, reset_token_expires_at = $3, updated_at = now()
		WHERE id = $1;
	`, id, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r adminRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE admins
		SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		WHERE id = $1;
	`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func scanAdmin(row pgx.Row) (model.Admin, error) {
	var a model.Admin
	if err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash,
		&a.ResetToken, &a.ResetTokenExpiresAt,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return model.Admin{}, err
	}

	return a, nil
}
