package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/event"
	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/repository"
	"github.com/vuxmai/catalog-admin/internal/storage/blob"
	"github.com/vuxmai/catalog-admin/internal/storage/cache"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
	"github.com/vuxmai/catalog-admin/pkg/outbox"
	"github.com/vuxmai/catalog-admin/pkg/ptr"
)

// publicDisk is the blob store namespace product images live on.
const publicDisk = "public"

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// ProductFields are the scalar fields of a product. Updates are full
// replace: every field is resubmitted on every update call.
type ProductFields struct {
	Name            string
	Description     string
	LongDescription *string
	Status          bool
	Stock           int
	Price           decimal.Decimal
	Weight          decimal.Decimal
	CategoryID      uuid.UUID
	ColorID         uuid.UUID
	Size            *string
	SeoKeywords     *string
	ProductGroupID  *int64
}

// ImageUpload is one uploaded image bound to a slot (1..5).
type ImageUpload struct {
	Slot     int
	Filename string
	Data     []byte
}

type CreateProductParams struct {
	ProductFields
	Images []ImageUpload
}

type UpdateProductParams struct {
	ProductFields
	Images []ImageUpload
}

// ProductCache is the read cache consumed by the product service. Cache
// failures are treated as misses, never as operation failures.
type ProductCache interface {
	GetByID(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetBySlug(ctx context.Context, slug string) (model.Product, error)
	Set(ctx context.Context, product model.Product) error
	Invalidate(ctx context.Context, id uuid.UUID, slug string) error
}

type ProductService interface {
	Create(ctx context.Context, params CreateProductParams) (model.Product, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error

	GetByID(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetBySlug(ctx context.Context, slug string) (model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	ListByGroup(ctx context.Context, groupID int64) ([]model.Product, error)

	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (model.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) (model.Product, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, groupID *int64) (model.Product, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status bool) (model.Product, error)
}

type productService struct {
	logger        *slog.Logger
	db            db.DB
	productRepo   repository.ProductRepository
	taxonomyRepo  repository.TaxonomyRepository
	outboxMsgRepo repository.OutboxMsgRepository
	blobs         blob.Store
	cache         ProductCache
	slugs         SlugAllocator
}

func NewProductService(
	logger *slog.Logger,
	db db.DB,
	productRepo repository.ProductRepository,
	taxonomyRepo repository.TaxonomyRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	blobs blob.Store,
	productCache ProductCache,
	slugs SlugAllocator,
) ProductService {
	return &productService{
		logger:        logger.With(slog.String("service", "product")),
		db:            db,
		productRepo:   productRepo,
		taxonomyRepo:  taxonomyRepo,
		outboxMsgRepo: outboxMsgRepo,
		blobs:         blobs,
		cache:         productCache,
		slugs:         slugs,
	}
}

// Create allocates a slug, stores the uploaded images, and persists the row
// together with its outbox event. Foreign-key references are verified
// before any blob is written so a validation failure has no side effects.
// Blobs written before a failed insert are not compensated; the insert
// failure itself is surfaced (a slug unique violation as a conflict).
func (s *productService) Create(ctx context.Context, params CreateProductParams) (model.Product, error) {
	if err := s.checkRefs(ctx, params.ProductFields); err != nil {
		return model.Product{}, err
	}

	if !hasSlot(params.Images, 1) {
		return model.Product{}, apperr.ErrImageRequired
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	slug, err := s.slugs.Allocate(ctx, params.Name)
	if err != nil {
		return model.Product{}, fmt.Errorf("allocate slug: %w", err)
	}

	now := time.Now()
	product := model.Product{
		ID:        id,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyFields(&product, params.ProductFields)

	for _, upload := range params.Images {
		path, err := s.blobs.Put(ctx, publicDisk, imagePath(slug, upload), upload.Data)
		if err != nil {
			return model.Product{}, fmt.Errorf("store image %d: %w", upload.Slot, err)
		}
		product.SetImage(upload.Slot, &path)
	}

	if err := s.writeWithEvent(ctx, event.TopicProductCreated, product.ID, createdEvent(product), func(db db.DB) error {
		return s.productRepo.WithDB(db).Create(ctx, product)
	}); err != nil {
		if isUniqueViolation(err) {
			return model.Product{}, apperr.ErrSlugTaken.WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("persist product: %w", err)
	}

	return product, nil
}

// Update replaces every scalar field and any image slot that has a new
// upload; slots without one keep their stored value. The slug is never
// recomputed. A displaced blob is deleted only after the row update
// commits, so a failed update never leaves the row pointing at nothing.
func (s *productService) Update(ctx context.Context, id uuid.UUID, params UpdateProductParams) (model.Product, error) {
	existing, err := s.mustGet(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	if err := s.checkRefs(ctx, params.ProductFields); err != nil {
		return model.Product{}, err
	}

	updated := existing
	applyFields(&updated, params.ProductFields)
	updated.UpdatedAt = time.Now()

	var displaced []string
	for _, upload := range params.Images {
		newPath, err := s.blobs.Put(ctx, publicDisk, imagePath(existing.Slug, upload), upload.Data)
		if err != nil {
			return model.Product{}, fmt.Errorf("store image %d: %w", upload.Slot, err)
		}

		if old := existing.Image(upload.Slot); old != nil && *old != newPath {
			displaced = append(displaced, *old)
		}
		updated.SetImage(upload.Slot, &newPath)
	}

	if err := s.writeWithEvent(ctx, event.TopicProductUpdated, updated.ID, updatedEvent(updated), func(db db.DB) error {
		return s.productRepo.WithDB(db).Update(ctx, updated)
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.ErrProductNotFound.WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("persist product update: %w", err)
	}

	for _, path := range displaced {
		if err := s.blobs.Delete(ctx, publicDisk, path); err != nil {
			s.logger.WarnContext(ctx, "error deleting displaced image blob",
				slog.String("path", path), slog.Any("error", err))
		}
	}

	s.invalidate(ctx, updated.ID, updated.Slug)

	return updated, nil
}

// Delete removes each populated image blob best-effort, then deletes the
// row. One slot failing does not stop the others or the row deletion.
func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}

	for slot := 1; slot <= model.ImageSlots; slot++ {
		path := existing.Image(slot)
		if path == nil {
			continue
		}
		if err := s.blobs.Delete(ctx, publicDisk, *path); err != nil {
			s.logger.WarnContext(ctx, "error deleting image blob",
				slog.String("path", *path), slog.Any("error", err))
		}
	}

	if err := s.writeWithEvent(ctx, event.TopicProductDeleted, existing.ID, deletedEvent(existing), func(db db.DB) error {
		return s.productRepo.WithDB(db).Delete(ctx, id)
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.ErrProductNotFound.WrapParent(err)
		}
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidate(ctx, existing.ID, existing.Slug)

	return nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (model.Product, error) {
	if product, err := s.cache.GetByID(ctx, id); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "product cache read failed", slog.Any("error", err))
	}

	product, err := s.mustGet(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	s.fill(ctx, product)

	return product, nil
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (model.Product, error) {
	if product, err := s.cache.GetBySlug(ctx, slug); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WarnContext(ctx, "product cache read failed", slog.Any("error", err))
	}

	product, err := s.productRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.ErrProductNotFound.WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("get product by slug: %w", err)
	}

	s.fill(ctx, product)

	return product, nil
}

func (s *productService) ListAll(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *productService) ListByGroup(ctx context.Context, groupID int64) ([]model.Product, error) {
	products, err := s.productRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list products by group: %w", err)
	}
	return products, nil
}

func (s *productService) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (model.Product, error) {
	return s.narrowUpdate(ctx, id, func(db db.DB) error {
		return s.productRepo.WithDB(db).UpdatePrice(ctx, id, price)
	})
}

func (s *productService) UpdateStock(ctx context.Context, id uuid.UUID, stock int) (model.Product, error) {
	return s.narrowUpdate(ctx, id, func(db db.DB) error {
		return s.productRepo.WithDB(db).UpdateStock(ctx, id, stock)
	})
}

func (s *productService) UpdateGroup(ctx context.Context, id uuid.UUID, groupID *int64) (model.Product, error) {
	return s.narrowUpdate(ctx, id, func(db db.DB) error {
		return s.productRepo.WithDB(db).UpdateGroup(ctx, id, groupID)
	})
}

func (s *productService) UpdateStatus(ctx context.Context, id uuid.UUID, status bool) (model.Product, error) {
	return s.narrowUpdate(ctx, id, func(db db.DB) error {
		return s.productRepo.WithDB(db).UpdateStatus(ctx, id, status)
	})
}

// narrowUpdate applies a single-column mutation, re-reads the row, and
// writes the product.updated outbox event in the same transaction.
func (s *productService) narrowUpdate(ctx context.Context, id uuid.UUID, apply func(db db.DB) error) (model.Product, error) {
	var product model.Product

	if err := s.db.WithTx(ctx, func(db db.DB) error {
		if err := apply(db); err != nil {
			return err
		}

		var err error
		if product, err = s.productRepo.WithDB(db).GetByID(ctx, id); err != nil {
			return fmt.Errorf("reload product: %w", err)
		}

		return s.createOutboxMsg(ctx, db, event.TopicProductUpdated, product.ID, updatedEvent(product))
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.ErrProductNotFound.WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	s.invalidate(ctx, product.ID, product.Slug)

	return product, nil
}

// writeWithEvent runs the row write and the outbox insert in one transaction.
func (s *productService) writeWithEvent(ctx context.Context, topic string, productID uuid.UUID, ev any, write func(db db.DB) error) error {
	return s.db.WithTx(ctx, func(db db.DB) error {
		if err := write(db); err != nil {
			return err
		}
		return s.createOutboxMsg(ctx, db, topic, productID, ev)
	})
}

func (s *productService) createOutboxMsg(ctx context.Context, db db.DB, topic string, productID uuid.UUID, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Partitioning by product id keeps the per-product event order.
	if err := s.outboxMsgRepo.WithDB(db).CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      payload,
		PartitionKey: ptr.New(productID.String()),
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

func (s *productService) mustGet(ctx context.Context, id uuid.UUID) (model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, apperr.ErrProductNotFound.WrapParent(err)
		}
		return model.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// checkRefs verifies the category and color references exist. It runs
// before any blob or row write so a bad reference has no side effects.
func (s *productService) checkRefs(ctx context.Context, fields ProductFields) error {
	ok, err := s.taxonomyRepo.CategoryExists(ctx, fields.CategoryID)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		return apperr.ErrCategoryNotFound
	}

	ok, err = s.taxonomyRepo.ColorExists(ctx, fields.ColorID)
	if err != nil {
		return fmt.Errorf("check color: %w", err)
	}
	if !ok {
		return apperr.ErrColorNotFound
	}

	return nil
}

func (s *productService) fill(ctx context.Context, product model.Product) {
	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.WarnContext(ctx, "product cache write failed", slog.Any("error", err))
	}
}

func (s *productService) invalidate(ctx context.Context, id uuid.UUID, slug string) {
	if err := s.cache.Invalidate(ctx, id, slug); err != nil {
		s.logger.WarnContext(ctx, "product cache invalidation failed", slog.Any("error", err))
	}
}

func applyFields(product *model.Product, fields ProductFields) {
	product.Name = fields.Name
	product.Description = fields.Description
	product.LongDescription = fields.LongDescription
	product.Status = fields.Status
	product.Stock = fields.Stock
	product.Price = fields.Price
	product.Weight = fields.Weight
	product.CategoryID = fields.CategoryID
	product.ColorID = fields.ColorID
	product.Size = fields.Size
	product.SeoKeywords = fields.SeoKeywords
	product.ProductGroupID = fields.ProductGroupID
}

// imagePath builds the deterministic blob path for a slot:
// products/{slug}-{slot}{ext}. Replacing an image with the same extension
// overwrites in place; a different extension displaces the old blob.
func imagePath(slug string, upload ImageUpload) string {
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	return fmt.Sprintf("products/%s-%d%s", slug, upload.Slot, ext)
}

func hasSlot(uploads []ImageUpload, slot int) bool {
	for _, u := range uploads {
		if u.Slot == slot {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func createdEvent(p model.Product) event.ProductCreatedEvent {
	return event.ProductCreatedEvent{
		ProductID: p.ID.String(),
		Name:      p.Name,
		Slug:      p.Slug,
		Price:     p.Price.String(),
		Stock:     p.Stock,
		Status:    p.Status,
	}
}

func updatedEvent(p model.Product) event.ProductUpdatedEvent {
	return event.ProductUpdatedEvent{
		ProductID: p.ID.String(),
		Name:      p.Name,
		Slug:      p.Slug,
		Price:     p.Price.String(),
		Stock:     p.Stock,
		Status:    p.Status,
	}
}

func deletedEvent(p model.Product) event.ProductDeletedEvent {
	return event.ProductDeletedEvent{
		ProductID: p.ID.String(),
		Slug:      p.Slug,
	}
}
