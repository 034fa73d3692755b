package repository

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/vuxmai/catalog-admin/internal/model"
	"github.com/vuxmai/catalog-admin/internal/storage/db"
)

// ProductRepository persists product rows. Methods that target a single
// existing row return pgx.ErrNoRows when the row is absent; the service
// layer translates that into a domain not-found error.
type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	Create(ctx context.Context, product model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (model.Product, error)
	GetBySlug(ctx context.Context, slug string) (model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)
	ListByGroup(ctx context.Context, groupID int64) ([]model.Product, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, product model.Product) error
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	UpdateGroup(ctx context.Context, id uuid.UUID, groupID *int64) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	id, name, description, long_description, slug,
	image1, image2, image3, image4, image5,
	status, stock, price, weight,
	category_id, color_id, size, seo_keywords, product_group_id,
	created_at, updated_at`

func (r productRepository) Create(ctx context.Context, product model.Product) error {
	args, err := productNamedArgs(product)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO products (
			id, name, description, long_description, slug,
			image1, image2, image3, image4, image5,
			status, stock, price, weight,
			category_id, color_id, size, seo_keywords, product_group_id,
			created_at, updated_at
		) VALUES (
			@id, @name, @description, @long_description, @slug,
			@image1, @image2, @image3, @image4, @image5,
			@status, @stock, @price, @weight,
			@category_id, @color_id, @size, @seo_keywords, @product_group_id,
			@created_at, @updated_at
		);
	`, args); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r productRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Product, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1;`, id)
	return scanProduct(row)
}

func (r productRepository) GetBySlug(ctx context.Context, slug string) (model.Product, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE slug = $1;`, slug)
	return scanProduct(row)
}

func (r productRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r productRepository) ListByGroup(ctx context.Context, groupID int64) ([]model.Product, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_group_id = $1 ORDER BY created_at DESC;`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("list products by group: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r productRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1);`, slug,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by slug: %w", err)
	}

	return exists, nil
}

// Update rewrites every mutable column. The slug is deliberately absent
// from the SET list: it is assigned once at creation.
func (r productRepository) Update(ctx context.Context, product model.Product) error {
	args, err := productNamedArgs(product)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE products SET
			name             = @name,
			description      = @description,
			long_description = @long_description,
			image1           = @image1,
			image2           = @image2,
			image3           = @image3,
			image4           = @image4,
			image5           = @image5,
			status           = @status,
			stock            = @stock,
			price            = @price,
			weight           = @weight,
			category_id      = @category_id,
			color_id         = @color_id,
			size             = @size,
			seo_keywords     = @seo_keywords,
			product_group_id = @product_group_id,
			updated_at       = @updated_at
		WHERE id = @id;
	`, args)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r productRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	numPrice, err := numericFromDecimal(price)
	if err != nil {
		return err
	}
	return r.updateColumn(ctx, id, "price", numPrice)
}

func (r productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	if stock > math.MaxInt32 || stock < math.MinInt32 {
		return fmt.Errorf("stock out of range: %d", stock)
	}
	return r.updateColumn(ctx, id, "stock", int32(stock))
}

func (r productRepository) UpdateGroup(ctx context.Context, id uuid.UUID, groupID *int64) error {
	return r.updateColumn(ctx, id, "product_group_id", groupID)
}

func (r productRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status bool) error {
	return r.updateColumn(ctx, id, "status", status)
}

func (r productRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	// column is always one of the fixed names above, never user input.
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET `+column+` = $2, updated_at = now() WHERE id = $1;`,
		id, value)
	if err != nil {
		return fmt.Errorf("update product %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func productNamedArgs(product model.Product) (pgx.NamedArgs, error) {
	price, err := numericFromDecimal(product.Price)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	weight, err := numericFromDecimal(product.Weight)
	if err != nil {
		return nil, fmt.Errorf("weight: %w", err)
	}

	if product.Stock > math.MaxInt32 || product.Stock < math.MinInt32 {
		return nil, fmt.Errorf("stock out of range: %d", product.Stock)
	}

	return pgx.NamedArgs{
		"id":               product.ID,
		"name":             product.Name,
		"description":      product.Description,
		"long_description": product.LongDescription,
		"slug":             product.Slug,
		"image1":           product.Image1,
		"image2":           product.Image2,
		"image3":           product.Image3,
		"image4":           product.Image4,
		"image5":           product.Image5,
		"status":           product.Status,
		"stock":            int32(product.Stock),
		"price":            price,
		"weight":           weight,
		"category_id":      product.CategoryID,
		"color_id":         product.ColorID,
		"size":             product.Size,
		"seo_keywords":     product.SeoKeywords,
		"product_group_id": product.ProductGroupID,
		"created_at":       product.CreatedAt,
		"updated_at":       product.UpdatedAt,
	}, nil
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p      model.Product
		stock  int32
		price  pgtype.Numeric
		weight pgtype.Numeric
	)

	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.LongDescription, &p.Slug,
		&p.Image1, &p.Image2, &p.Image3, &p.Image4, &p.Image5,
		&p.Status, &stock, &price, &weight,
		&p.CategoryID, &p.ColorID, &p.Size, &p.SeoKeywords, &p.ProductGroupID,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return model.Product{}, err
	}

	p.Stock = int(stock)

	var err error
	if p.Price, err = decimalFromNumeric(price); err != nil {
		return model.Product{}, fmt.Errorf("price: %w", err)
	}
	if p.Weight, err = decimalFromNumeric(weight); err != nil {
		return model.Product{}, fmt.Errorf("weight: %w", err)
	}

	return p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
