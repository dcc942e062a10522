package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/repository"
)

const productColumns = "id, sku, name, description, price, original_price, image_url, category, in_stock"

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	return r.findProducts(ctx, "SELECT "+productColumns+" FROM products ORDER BY name")
}

func (r *productRepository) FindByCategory(ctx context.Context, category string) ([]entity.Product, error) {
	return r.findProducts(ctx, "SELECT "+productColumns+" FROM products WHERE category = $1 ORDER BY name", category)
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	err := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.ImageURL, &p.Category, &p.InStock)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return &p, nil
}

func (r *productRepository) findProducts(ctx context.Context, query string, args ...any) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.ImageURL, &p.Category, &p.InStock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		_, err := r.db.ExecContext(ctx,
			"INSERT INTO products (id, sku, name, description, price, original_price, image_url, category, in_stock) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			p.ID, p.SKU, p.Name, p.Description, p.Price, p.OriginalPrice, p.ImageURL, p.Category, p.InStock,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

// SeedCatalog is the static mock catalog the storefront starts with.
func SeedCatalog() []entity.Product {
	return []entity.Product{
		{ID: "prod-001", SKU: "ELE-HP-001", Name: "Wireless Noise-Cancelling Headphones", Description: "Premium over-ear headphones with active noise cancellation and 30-hour battery life.", Price: 349.99, OriginalPrice: 399.99, ImageURL: "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=400", Category: "Electronics", InStock: true},
		{ID: "prod-002", SKU: "ELE-KB-002", Name: "Mechanical Keyboard RGB", Description: "Cherry MX switches with per-key RGB lighting and aluminum frame.", Price: 179.99, ImageURL: "https://images.unsplash.com/photo-1618384887929-16ec33fab9ef?w=400", Category: "Electronics", InStock: true},
		{ID: "prod-003", SKU: "ELE-MN-003", Name: "Ultrawide Curved Monitor 34\"", Description: "UWQHD 3440x1440 144Hz IPS panel with USB-C connectivity.", Price: 699.99, ImageURL: "https://images.unsplash.com/photo-1527443224154-c4a3942d3acf?w=400", Category: "Electronics", InStock: true},
		{ID: "prod-004", SKU: "FUR-CH-004", Name: "Ergonomic Office Chair", Description: "Adjustable lumbar support, breathable mesh, and 4D armrests.", Price: 549.99, OriginalPrice: 649.99, ImageURL: "https://images.unsplash.com/photo-1592078615290-033ee584e267?w=400", Category: "Furniture", InStock: true},
		{ID: "prod-005", SKU: "HOM-LP-005", Name: "Smart LED Desk Lamp", Description: "Adjustable color temperature, brightness levels, and USB charging port.", Price: 89.99, ImageURL: "https://images.unsplash.com/photo-1507473885765-e6ed057ab6fe?w=400", Category: "Home", InStock: true},
		{ID: "prod-006", SKU: "ACC-BP-006", Name: "Premium Laptop Backpack", Description: "Water-resistant 17\" laptop compartment with anti-theft design.", Price: 129.99, ImageURL: "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=400", Category: "Accessories", InStock: true},
	}
}
