package productsvc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductcache"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/service/errs"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/models/product"
	"github.com/corray333/backend-labs/shop/internal/service/pagination"
)

// ProductService manages the product catalog.
type ProductService struct {
	repo  iproductrepo.IProductRepository
	cache iproductcache.IProductCache
	log   *slog.Logger
	now   func() time.Time
}

// option is a function that configures the ProductService.
type option func(*ProductService)

// MustNewProductService creates a new ProductService.
func MustNewProductService(opts ...option) *ProductService {
	s := &ProductService{
		log: slog.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		panic("productsvc: product repository is required")
	}

	return s
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithProductRepository(repo iproductrepo.IProductRepository) option {
	return func(s *ProductService) {
		s.repo = repo
	}
}

// WithCache enables cache-aside reads of single products.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithCache(cache iproductcache.IProductCache) option {
	return func(s *ProductService) {
		s.cache = cache
	}
}

//goland:noinspection GoExportedFuncWithUnexportedType
func WithLogger(log *slog.Logger) option {
	return func(s *ProductService) {
		s.log = log.With("component", "productsvc")
	}
}

// CreateProduct is the input of Create.
type CreateProduct struct {
	Name        string
	PriceCents  int64
	Currency    string
	Category    string
	Description string
	Stock       int
}

func validatePrice(cents int64) error {
	if cents < 0 {
		return fmt.Errorf("price must not be negative: %w", errs.ErrValidation)
	}

	return nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", errs.ErrValidation)
	}

	return nil
}

func (s *ProductService) Create(ctx context.Context, in CreateProduct) (product.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return product.Product{}, fmt.Errorf("name is required: %w", errs.ErrValidation)
	}
	if err := validatePrice(in.PriceCents); err != nil {
		return product.Product{}, err
	}
	if err := validateStock(in.Stock); err != nil {
		return product.Product{}, err
	}

	cur, err := currency.ParseCurrency(in.Currency)
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	now := s.now()
	created, err := s.repo.Insert(ctx, product.Product{
		Name:        name,
		PriceCents:  in.PriceCents,
		Currency:    cur,
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return product.Product{}, err
	}

	s.log.InfoContext(ctx, "Product created", "product_id", created.ID)

	return created, nil
}

// FindAll lists live products, searching name and description.
func (s *ProductService) FindAll(
	ctx context.Context,
	filter product.Filter,
	req pagination.Request,
) (pagination.Result[product.Product], error) {
	var filters []pagination.Filter
	if filter.Category != nil {
		filters = append(filters, pagination.Eq("category", *filter.Category))
	}
	if filter.MinPriceCents != nil {
		filters = append(filters, pagination.Gte("price", *filter.MinPriceCents))
	}
	if filter.MaxPriceCents != nil {
		filters = append(filters, pagination.Lte("price", *filter.MaxPriceCents))
	}

	return pagination.Paginate[product.Product](ctx, s.repo, req,
		pagination.WithFilters(filters...),
		pagination.WithSearchFields("name", "description"),
	)
}

// FindByID reads through the cache when one is configured.
// Cache failures are logged and fall back to the repository.
func (s *ProductService) FindByID(ctx context.Context, id int64) (product.Product, error) {
	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "Failed to read product cache", "product_id", id, "error", err)
		case found:
			return cached, nil
		}
	}

	p, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return product.Product{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.WarnContext(ctx, "Failed to fill product cache", "product_id", id, "error", err)
		}
	}

	return p, nil
}

func (s *ProductService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WarnContext(ctx, "Failed to invalidate product cache", "product_id", id, "error", err)
	}
}

// Update applies the non-nil fields of upd to a live product.
func (s *ProductService) Update(ctx context.Context, id int64, upd product.Update) (product.Product, error) {
	current, err := s.repo.FindByID(ctx, id, false)
	if err != nil {
		return product.Product{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return product.Product{}, fmt.Errorf("name must not be empty: %w", errs.ErrValidation)
		}
		current.Name = name
	}
	if upd.PriceCents != nil {
		if err := validatePrice(*upd.PriceCents); err != nil {
			return product.Product{}, err
		}
		current.PriceCents = *upd.PriceCents
	}
	if upd.Currency != nil {
		cur, err := currency.ParseCurrency(upd.Currency.String())
		if err != nil {
			return product.Product{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
		}
		current.Currency = cur
	}
	if upd.Category != nil {
		current.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Description != nil {
		current.Description = *upd.Description
	}
	if upd.Stock != nil {
		if err := validateStock(*upd.Stock); err != nil {
			return product.Product{}, err
		}
		current.Stock = *upd.Stock
	}

	current.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return product.Product{}, err
	}
	s.invalidate(ctx, id)

	return updated, nil
}

// Delete removes a product permanently.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	return nil
}

func (s *ProductService) SoftDelete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.invalidate(ctx, id)

	return nil
}

// Restore brings back a soft-deleted product.
func (s *ProductService) Restore(ctx context.Context, id int64) (product.Product, error) {
	deleted, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return product.Product{}, err
	}
	if deleted.DeletedAt == nil {
		return product.Product{}, fmt.Errorf("product %d is not deleted: %w", id, errs.ErrConflict)
	}

	if err := s.repo.Restore(ctx, id, s.now()); err != nil {
		return product.Product{}, err
	}
	s.invalidate(ctx, id)

	return s.repo.FindByID(ctx, id, false)
}
