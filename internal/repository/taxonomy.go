package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vuxmai/catalog-admin/internal/storage/db"
)

// TaxonomyRepository answers existence checks for the foreign keys a
// product references. The workflow verifies both before any side effect.
type TaxonomyRepository interface {
	WithDB(db db.DB) TaxonomyRepository
	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)
	ColorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type taxonomyRepository struct {
	db db.DB
}

func NewTaxonomyRepository(db db.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r taxonomyRepository) WithDB(db db.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r taxonomyRepository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "categories", id)
}

func (r taxonomyRepository) ColorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, "colors", id)
}

func (r taxonomyRepository) exists(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1);`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s exists: %w", table, err)
	}

	return exists, nil
}
