package service_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuxmai/catalog-admin/internal/apperr"
	"github.com/vuxmai/catalog-admin/internal/event"
	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/service"
	"github.com/vuxmai/catalog-admin/pkg/ptr"
	"github.com/vuxmai/catalog-admin/pkg/zerror"
)

type productFixture struct {
	svc      service.ProductService
	products *fakeProductRepo
	taxonomy *fakeTaxonomyRepo
	outbox   *fakeOutboxRepo
	blobs    *fakeBlobStore
	cache    *fakeProductCache

	categoryID uuid.UUID
	colorID    uuid.UUID
}

func newProductFixture(t *testing.T) *productFixture {
	t.Helper()

	f := &productFixture{
		products:   newFakeProductRepo(),
		outbox:     &fakeOutboxRepo{},
		blobs:      newFakeBlobStore(),
		cache:      newFakeProductCache(),
		categoryID: uuid.New(),
		colorID:    uuid.New(),
	}
	f.taxonomy = newFakeTaxonomyRepo(f.categoryID, f.colorID)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = service.NewProductService(
		logger,
		fakeDB{},
		f.products,
		f.taxonomy,
		f.outbox,
		f.blobs,
		f.cache,
		service.NewSlugAllocator(f.products),
	)

	return f
}

func (f *productFixture) fields(name string) service.ProductFields {
	return service.ProductFields{
		Name:        name,
		Description: "a product",
		Status:      true,
		Stock:       10,
		Price:       decimal.RequireFromString("19.99"),
		Weight:      decimal.RequireFromString("0.5"),
		CategoryID:  f.categoryID,
		ColorID:     f.colorID,
	}
}

func (f *productFixture) create(t *testing.T, name string, images ...service.ImageUpload) model.Product {
	t.Helper()

	product, err := f.svc.Create(context.Background(), service.CreateProductParams{
		ProductFields: f.fields(name),
		Images:        images,
	})
	require.NoError(t, err)
	return product
}

func upload(slot int, filename string) service.ImageUpload {
	return service.ImageUpload{Slot: slot, Filename: filename, Data: []byte("image-bytes")}
}

// requireZErrorCode asserts err carries the same code as want. Predefined
// errors returned through WrapParent compare by code, not identity.
func requireZErrorCode(t *testing.T, err error, want zerror.ZError) {
	t.Helper()

	var zErr zerror.ZError
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, want.Code(), zErr.Code())
	assert.Equal(t, want.Status(), zErr.Status())
}

func TestProductServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the image and writes the created event", func(t *testing.T) {
		f := newProductFixture(t)

		product := f.create(t, "Red Shoe", upload(1, "shoe.PNG"))

		assert.Equal(t, "red-shoe", product.Slug)
		require.NotNil(t, product.Image1)
		assert.Equal(t, "products/red-shoe-1.png", *product.Image1)
		assert.Nil(t, product.Image2)
		assert.Nil(t, product.Image5)

		assert.Equal(t, []string{"products/red-shoe-1.png"}, f.blobs.puts)

		stored, err := f.products.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.Slug, stored.Slug)

		require.Len(t, f.outbox.msgs, 1)
		msg := f.outbox.msgs[0]
		assert.Equal(t, event.TopicProductCreated, msg.Topic)
		require.NotNil(t, msg.PartitionKey)
		assert.Equal(t, product.ID.String(), *msg.PartitionKey)

		var ev event.ProductCreatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, product.ID.String(), ev.ProductID)
		assert.Equal(t, "red-shoe", ev.Slug)
	})

	t.Run("second product with the same name gets a suffixed slug", func(t *testing.T) {
		f := newProductFixture(t)

		first := f.create(t, "Red Shoe", upload(1, "a.png"))
		second := f.create(t, "Red Shoe", upload(1, "b.png"))

		assert.Equal(t, "red-shoe", first.Slug)
		assert.Equal(t, "red-shoe-1", second.Slug)
		assert.Contains(t, f.blobs.puts, "products/red-shoe-1-1.png")
	})

	t.Run("missing image1 is rejected before any write", func(t *testing.T) {
		f := newProductFixture(t)

		_, err := f.svc.Create(ctx, service.CreateProductParams{
			ProductFields: f.fields("Red Shoe"),
			Images:        []service.ImageUpload{upload(2, "b.png")},
		})

		assert.ErrorIs(t, err, apperr.ErrImageRequired)
		assert.Empty(t, f.blobs.puts)
		assert.Empty(t, f.products.products)
		assert.Empty(t, f.outbox.msgs)
	})

	t.Run("unknown category has no side effects", func(t *testing.T) {
		f := newProductFixture(t)

		fields := f.fields("Red Shoe")
		fields.CategoryID = uuid.New()

		_, err := f.svc.Create(ctx, service.CreateProductParams{
			ProductFields: fields,
			Images:        []service.ImageUpload{upload(1, "a.png")},
		})

		assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
		assert.Empty(t, f.blobs.puts)
		assert.Empty(t, f.products.products)
		assert.Empty(t, f.outbox.msgs)
	})

	t.Run("unknown color has no side effects", func(t *testing.T) {
		f := newProductFixture(t)

		fields := f.fields("Red Shoe")
		fields.ColorID = uuid.New()

		_, err := f.svc.Create(ctx, service.CreateProductParams{
			ProductFields: fields,
			Images:        []service.ImageUpload{upload(1, "a.png")},
		})

		assert.ErrorIs(t, err, apperr.ErrColorNotFound)
		assert.Empty(t, f.blobs.puts)
	})

	t.Run("unique index violation surfaces as a slug conflict", func(t *testing.T) {
		f := newProductFixture(t)
		f.products.forceCreateErr = &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}

		_, err := f.svc.Create(ctx, service.CreateProductParams{
			ProductFields: f.fields("Red Shoe"),
			Images:        []service.ImageUpload{upload(1, "a.png")},
		})

		requireZErrorCode(t, err, apperr.ErrSlugTaken)
		assert.Empty(t, f.outbox.msgs)
	})
}

func TestProductServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the slug when the name changes", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		fields := f.fields("Blue Shoe")
		updated, err := f.svc.Update(ctx, product.ID, service.UpdateProductParams{ProductFields: fields})
		require.NoError(t, err)

		assert.Equal(t, "Blue Shoe", updated.Name)
		assert.Equal(t, "red-shoe", updated.Slug)
	})

	t.Run("replacing a slot with a new extension deletes the displaced blob", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"), upload(2, "b.png"))
		f.blobs.puts = nil

		updated, err := f.svc.Update(ctx, product.ID, service.UpdateProductParams{
			ProductFields: f.fields("Red Shoe"),
			Images:        []service.ImageUpload{upload(2, "b2.jpg")},
		})
		require.NoError(t, err)

		require.NotNil(t, updated.Image2)
		assert.Equal(t, "products/red-shoe-2.jpg", *updated.Image2)
		require.NotNil(t, updated.Image1)
		assert.Equal(t, "products/red-shoe-1.png", *updated.Image1)

		assert.Equal(t, []string{"products/red-shoe-2.jpg"}, f.blobs.puts)
		assert.Equal(t, []string{"products/red-shoe-2.png"}, f.blobs.deletes)
	})

	t.Run("same-extension replacement overwrites in place", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		_, err := f.svc.Update(ctx, product.ID, service.UpdateProductParams{
			ProductFields: f.fields("Red Shoe"),
			Images:        []service.ImageUpload{upload(1, "a-v2.png")},
		})
		require.NoError(t, err)

		assert.Empty(t, f.blobs.deletes)
	})

	t.Run("no uploads leaves every slot untouched", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"), upload(3, "c.png"))

		updated, err := f.svc.Update(ctx, product.ID, service.UpdateProductParams{ProductFields: f.fields("Red Shoe")})
		require.NoError(t, err)

		assert.Equal(t, product.Image1, updated.Image1)
		assert.Equal(t, product.Image3, updated.Image3)
		assert.Nil(t, updated.Image2)
	})

	t.Run("writes the updated event and invalidates the cache", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))
		f.outbox.msgs = nil

		_, err := f.svc.Update(ctx, product.ID, service.UpdateProductParams{ProductFields: f.fields("Red Shoe")})
		require.NoError(t, err)

		require.Len(t, f.outbox.msgs, 1)
		assert.Equal(t, event.TopicProductUpdated, f.outbox.msgs[0].Topic)
		assert.Equal(t, 1, f.cache.invalidations)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		f := newProductFixture(t)

		_, err := f.svc.Update(ctx, uuid.New(), service.UpdateProductParams{ProductFields: f.fields("Red Shoe")})
		requireZErrorCode(t, err, apperr.ErrProductNotFound)
		assert.Empty(t, f.blobs.puts)
	})
}

func TestProductServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes every stored blob and the row", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe",
			upload(1, "a.png"), upload(2, "b.png"), upload(3, "c.png"),
			upload(4, "d.png"), upload(5, "e.png"))

		require.NoError(t, f.svc.Delete(ctx, product.ID))

		assert.Len(t, f.blobs.deletes, 5)
		assert.Empty(t, f.blobs.blobs)
		assert.Empty(t, f.products.products)

		require.Len(t, f.outbox.msgs, 2) // created, then deleted
		assert.Equal(t, event.TopicProductDeleted, f.outbox.msgs[1].Topic)

		var ev event.ProductDeletedEvent
		require.NoError(t, json.Unmarshal(f.outbox.msgs[1].Payload, &ev))
		assert.Equal(t, "red-shoe", ev.Slug)
	})

	t.Run("empty slots are skipped", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		require.NoError(t, f.svc.Delete(ctx, product.ID))
		assert.Equal(t, []string{"products/red-shoe-1.png"}, f.blobs.deletes)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		f := newProductFixture(t)
		requireZErrorCode(t, f.svc.Delete(ctx, uuid.New()), apperr.ErrProductNotFound)
	})
}

func TestProductServiceReads(t *testing.T) {
	ctx := context.Background()

	t.Run("get by id fills the cache on a miss", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		got, err := f.svc.GetByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, product.ID, got.ID)
		assert.Equal(t, 1, f.cache.sets)
	})

	t.Run("get by id serves a cache hit without touching the repo", func(t *testing.T) {
		f := newProductFixture(t)
		cached := model.Product{ID: uuid.New(), Name: "Cached", Slug: "cached"}
		require.NoError(t, f.cache.Set(ctx, cached))

		got, err := f.svc.GetByID(ctx, cached.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cached", got.Name)
	})

	t.Run("get by slug", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		got, err := f.svc.GetBySlug(ctx, "red-shoe")
		require.NoError(t, err)
		assert.Equal(t, product.ID, got.ID)

		_, err = f.svc.GetBySlug(ctx, "no-such-slug")
		requireZErrorCode(t, err, apperr.ErrProductNotFound)
	})

	t.Run("list by group filters on the group id", func(t *testing.T) {
		f := newProductFixture(t)

		fields := f.fields("Red Shoe")
		fields.ProductGroupID = ptr.New(int64(7))
		_, err := f.svc.Create(ctx, service.CreateProductParams{
			ProductFields: fields,
			Images:        []service.ImageUpload{upload(1, "a.png")},
		})
		require.NoError(t, err)
		f.create(t, "Blue Shoe", upload(1, "b.png"))

		grouped, err := f.svc.ListByGroup(ctx, 7)
		require.NoError(t, err)
		require.Len(t, grouped, 1)
		assert.Equal(t, "red-shoe", grouped[0].Slug)

		all, err := f.svc.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestProductServiceNarrowUpdates(t *testing.T) {
	ctx := context.Background()

	t.Run("price", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))
		f.outbox.msgs = nil

		updated, err := f.svc.UpdatePrice(ctx, product.ID, decimal.RequireFromString("24.50"))
		require.NoError(t, err)

		assert.True(t, updated.Price.Equal(decimal.RequireFromString("24.50")))
		require.Len(t, f.outbox.msgs, 1)
		assert.Equal(t, event.TopicProductUpdated, f.outbox.msgs[0].Topic)
		assert.Equal(t, 1, f.cache.invalidations)
	})

	t.Run("stock", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		updated, err := f.svc.UpdateStock(ctx, product.ID, 42)
		require.NoError(t, err)
		assert.Equal(t, 42, updated.Stock)
	})

	t.Run("group set and clear", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		updated, err := f.svc.UpdateGroup(ctx, product.ID, ptr.New(int64(3)))
		require.NoError(t, err)
		require.NotNil(t, updated.ProductGroupID)
		assert.Equal(t, int64(3), *updated.ProductGroupID)

		updated, err = f.svc.UpdateGroup(ctx, product.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, updated.ProductGroupID)
	})

	t.Run("status", func(t *testing.T) {
		f := newProductFixture(t)
		product := f.create(t, "Red Shoe", upload(1, "a.png"))

		updated, err := f.svc.UpdateStatus(ctx, product.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.Status)
	})

	t.Run("unknown product is not found", func(t *testing.T) {
		f := newProductFixture(t)

		_, err := f.svc.UpdateStock(ctx, uuid.New(), 1)
		requireZErrorCode(t, err, apperr.ErrProductNotFound)
	})
}
