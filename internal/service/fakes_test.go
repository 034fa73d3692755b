package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/repository"
	"github.com/vuxmai/catalog-admin/internal/storage/cache"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
)

// fakeDB satisfies db.DB for services that only use WithTx. The raw query
// methods are never reached because the repositories are faked too.
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (fakeDB) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (fakeDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return nil
}

func (f fakeDB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	return txFunc(f)
}

type fakeProductRepo struct {
	products map[uuid.UUID]model.Product

	// forceCreateErr, when set, is returned by Create regardless of state.
	// It simulates the storage-level unique index firing on a slug the
	// allocator probed as free.
	forceCreateErr error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[uuid.UUID]model.Product{}}
}

func (r *fakeProductRepo) WithDB(db.DB) repository.ProductRepository { return r }

func (r *fakeProductRepo) Create(_ context.Context, product model.Product) error {
	if r.forceCreateErr != nil {
		return r.forceCreateErr
	}
	for _, p := range r.products {
		if p.Slug == product.Slug {
			return &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}
		}
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id uuid.UUID) (model.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return model.Product{}, pgx.ErrNoRows
	}
	return product, nil
}

func (r *fakeProductRepo) GetBySlug(_ context.Context, slug string) (model.Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Product{}, pgx.ErrNoRows
}

func (r *fakeProductRepo) ListAll(context.Context) ([]model.Product, error) {
	products := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, p)
	}
	return products, nil
}

func (r *fakeProductRepo) ListByGroup(_ context.Context, groupID int64) ([]model.Product, error) {
	products := make([]model.Product, 0)
	for _, p := range r.products {
		if p.ProductGroupID != nil && *p.ProductGroupID == groupID {
			products = append(products, p)
		}
	}
	return products, nil
}

func (r *fakeProductRepo) ExistsBySlug(_ context.Context, slug string) (bool, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) Update(_ context.Context, product model.Product) error {
	if _, ok := r.products[product.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) UpdatePrice(_ context.Context, id uuid.UUID, price decimal.Decimal) error {
	return r.mutate(id, func(p *model.Product) { p.Price = price })
}

func (r *fakeProductRepo) UpdateStock(_ context.Context, id uuid.UUID, stock int) error {
	return r.mutate(id, func(p *model.Product) { p.Stock = stock })
}

func (r *fakeProductRepo) UpdateGroup(_ context.Context, id uuid.UUID, groupID *int64) error {
	return r.mutate(id, func(p *model.Product) { p.ProductGroupID = groupID })
}

func (r *fakeProductRepo) UpdateStatus(_ context.Context, id uuid.UUID, status bool) error {
	return r.mutate(id, func(p *model.Product) { p.Status = status })
}

func (r *fakeProductRepo) mutate(id uuid.UUID, fn func(*model.Product)) error {
	product, ok := r.products[id]
	if !ok {
		return pgx.ErrNoRows
	}
	fn(&product)
	r.products[id] = product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.products, id)
	return nil
}

type fakeTaxonomyRepo struct {
	categories map[uuid.UUID]bool
	colors     map[uuid.UUID]bool
}

func newFakeTaxonomyRepo(categoryID, colorID uuid.UUID) *fakeTaxonomyRepo {
	return &fakeTaxonomyRepo{
		categories: map[uuid.UUID]bool{categoryID: true},
		colors:     map[uuid.UUID]bool{colorID: true},
	}
}

func (r *fakeTaxonomyRepo) WithDB(db.DB) repository.TaxonomyRepository { return r }

func (r *fakeTaxonomyRepo) CategoryExists(_ context.Context, id uuid.UUID) (bool, error) {
	return r.categories[id], nil
}

func (r *fakeTaxonomyRepo) ColorExists(_ context.Context, id uuid.UUID) (bool, error) {
	return r.colors[id], nil
}

type fakeOutboxRepo struct {
	msgs []repository.CreateOutboxMsgParams
}

func (r *fakeOutboxRepo) WithDB(db.DB) repository.OutboxMsgRepository { return r }

func (r *fakeOutboxRepo) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	r.msgs = append(r.msgs, params)
	return nil
}

func (r *fakeOutboxRepo) ListUnprocessedOutboxMsgs(context.Context, repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) BulkUpdateOutboxMsgs(context.Context, repository.BulkUpdateOutboxMsgsParams) error {
	return nil
}

type fakeBlobStore struct {
	blobs   map[string][]byte
	puts    []string
	deletes []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Put(_ context.Context, disk, path string, data []byte) (string, error) {
	s.blobs[disk+"/"+path] = data
	s.puts = append(s.puts, path)
	return path, nil
}

func (s *fakeBlobStore) Delete(_ context.Context, disk, path string) error {
	delete(s.blobs, disk+"/"+path)
	s.deletes = append(s.deletes, path)
	return nil
}

type fakeProductCache struct {
	byID          map[uuid.UUID]model.Product
	sets          int
	invalidations int
}

func newFakeProductCache() *fakeProductCache {
	return &fakeProductCache{byID: map[uuid.UUID]model.Product{}}
}

func (c *fakeProductCache) GetByID(_ context.Context, id uuid.UUID) (model.Product, error) {
	product, ok := c.byID[id]
	if !ok {
		return model.Product{}, cache.ErrMiss
	}
	return product, nil
}

func (c *fakeProductCache) GetBySlug(_ context.Context, slug string) (model.Product, error) {
	for _, p := range c.byID {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Product{}, cache.ErrMiss
}

func (c *fakeProductCache) Set(_ context.Context, product model.Product) error {
	c.byID[product.ID] = product
	c.sets++
	return nil
}

func (c *fakeProductCache) Invalidate(_ context.Context, id uuid.UUID, _ string) error {
	delete(c.byID, id)
	c.invalidations++
	return nil
}

type fakeAdminRepo struct {
	admins map[uuid.UUID]model.Admin
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: map[uuid.UUID]model.Admin{}}
}

func (r *fakeAdminRepo) WithDB(db.DB) repository.AdminRepository { return r }

func (r *fakeAdminRepo) Create(_ context.Context, admin model.Admin) error {
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "admins_email_key"}
		}
	}
	r.admins[admin.ID] = admin
	return nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id uuid.UUID) (model.Admin, error) {
	admin, ok := r.admins[id]
	if !ok {
		return model.Admin{}, pgx.ErrNoRows
	}
	return admin, nil
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (model.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Admin{}, pgx.ErrNoRows
}

func (r *fakeAdminRepo) GetByResetToken(_ context.Context, token string) (model.Admin, error) {
	for _, a := range r.admins {
		if a.ResetToken != nil && *a.ResetToken == token {
			return a, nil
		}
	}
	return model.Admin{}, pgx.ErrNoRows
}

func (r *fakeAdminRepo) SetResetToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	admin, ok := r.admins[id]
	if !ok {
		return pgx.ErrNoRows
	}
	admin.ResetToken = &token
	admin.ResetTokenExpiresAt = &expiresAt
	r.admins[id] = admin
	return nil
}

func (r *fakeAdminRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	admin, ok := r.admins[id]
	if !ok {
		return pgx.ErrNoRows
	}
	admin.PasswordHash = passwordHash
	admin.ResetToken = nil
	admin.ResetTokenExpiresAt = nil
	r.admins[id] = admin
	return nil
}

type fakeDenylist struct {
	revoked map[string]time.Duration
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{revoked: map[string]time.Duration{}}
}

func (d *fakeDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl > 0 {
		d.revoked[tokenID] = ttl
	}
	return nil
}

func (d *fakeDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := d.revoked[tokenID]
	return ok, nil
}
