package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/internal/event"
	"github.com/utafrali/rxstore/internal/repository"
	"github.com/utafrali/rxstore/internal/storage"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
	"github.com/utafrali/rxstore/pkg/slug"
	"github.com/utafrali/rxstore/pkg/validator"
)

// MaxImageBytes bounds an uploaded product image.
const MaxImageBytes int64 = 5 << 20

// maxSlugAttempts bounds the "-2", "-3" ... suffixes tried for a derived slug.
const maxSlugAttempts = 50

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// CatalogService serves the public catalog and the back-office product and
// category editors.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	store      storage.Storage
	producer   *event.Producer
	logger     *slog.Logger
	now        func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	store storage.Storage,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		store:      store,
		producer:   producer,
		logger:     logger,
		now:        utcNow,
	}
}

// ProductInput is the editable part of a product. Slug is derived from the
// name when empty.
type ProductInput struct {
	Name              string   `json:"name" validate:"required,max=200"`
	Slug              string   `json:"slug" validate:"omitempty,max=200"`
	Price             int64    `json:"price" validate:"gte=0"`
	OriginalPrice     *int64   `json:"original_price" validate:"omitempty,gte=0"`
	ImageURL          string   `json:"image_url" validate:"omitempty,url"`
	Category          string   `json:"category" validate:"required"`
	Subcategory       string   `json:"subcategory"`
	Tags              []string `json:"tags"`
	DiscountPercent   *int     `json:"discount_percent" validate:"omitempty,gte=0,lte=100"`
	InStock           bool     `json:"in_stock"`
	Featured          bool     `json:"featured"`
	Description       string   `json:"description"`
	Dosage            string   `json:"dosage"`
	Composition       string   `json:"composition"`
	Usage             string   `json:"usage"`
	SideEffects       string   `json:"side_effects"`
	Contraindications string   `json:"contraindications"`
	Manufacturer      string   `json:"manufacturer"`
	Brand             string   `json:"brand"`
	Rating            float64  `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount       int      `json:"review_count" validate:"gte=0"`
}

func (in *ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Price = in.Price
	p.OriginalPrice = in.OriginalPrice
	p.ImageURL = in.ImageURL
	p.Category = in.Category
	p.Subcategory = in.Subcategory
	p.Tags = in.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.DiscountPercent = in.DiscountPercent
	p.InStock = in.InStock
	p.Featured = in.Featured
	p.Description = in.Description
	p.Dosage = in.Dosage
	p.Composition = in.Composition
	p.Usage = in.Usage
	p.SideEffects = in.SideEffects
	p.Contraindications = in.Contraindications
	p.Manufacturer = in.Manufacturer
	p.Brand = in.Brand
	p.Rating = in.Rating
	p.ReviewCount = in.ReviewCount
}

// CategoryInput is the editable part of a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// ImageUpload is a product image received from the back-office.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// ListProducts returns one page of the catalog.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, apperrors.InvalidInput("min_price must not exceed max_price")
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// GetProduct looks a product up by id or slug.
func (s *CatalogService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	var (
		p   *domain.Product
		err error
	)
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		p, err = s.products.GetByID(ctx, idOrSlug)
	} else {
		p, err = s.products.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListCategories returns all categories with their product counts.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory looks a category up by id or slug.
func (s *CatalogService) GetCategory(ctx context.Context, idOrSlug string) (*domain.Category, error) {
	var (
		c   *domain.Category
		err error
	)
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		c, err = s.categories.GetByID(ctx, idOrSlug)
	} else {
		c, err = s.categories.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateProduct validates input and stores a new product.
func (s *CatalogService) CreateProduct(ctx context.Context, input *ProductInput) (*domain.Product, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Product{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	input.apply(p)

	var err error
	if p.Slug, err = s.productSlug(ctx, input, p.ID); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	logPublishError(ctx, s.logger, event.TopicProductChanged,
		s.producer.PublishProductChanged(ctx, p, "created"), slog.String("product_id", p.ID))

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("slug", p.Slug),
	)
	return p, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *ProductInput) (*domain.Product, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	input.apply(p)
	if p.Slug, err = s.productSlug(ctx, input, p.ID); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	logPublishError(ctx, s.logger, event.TopicProductChanged,
		s.producer.PublishProductChanged(ctx, p, "updated"), slog.String("product_id", p.ID))

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

// DeleteProduct removes a product. Carts keep their snapshot of it.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	logPublishError(ctx, s.logger, event.TopicProductChanged,
		s.producer.PublishProductChanged(ctx, p, "deleted"), slog.String("product_id", id))

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// UploadProductImage stores an image under products/{id}/ and points the
// product at it.
func (s *CatalogService) UploadProductImage(ctx context.Context, id string, img *ImageUpload) (*domain.Product, error) {
	if img == nil || img.Size == 0 {
		return nil, apperrors.InvalidInput("image file is required")
	}
	if img.Size > MaxImageBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("image must not exceed %d bytes", MaxImageBytes))
	}
	ct, _, _ := strings.Cut(img.ContentType, ";")
	ext, ok := imageTypes[strings.ToLower(strings.TrimSpace(ct))]
	if !ok {
		return nil, apperrors.InvalidInput("image must be JPEG, PNG or WebP")
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for image upload: %w", err)
	}

	now := s.now()
	key := path.Join("products", id, strconv.FormatInt(now.UnixMilli(), 10)+ext)
	res, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: ct,
		Size:        img.Size,
		Data:        img.Data,
	})
	if err != nil {
		return nil, apperrors.Unavailable("file storage", err)
	}

	p.ImageURL = res.URL
	p.UpdatedAt = now
	if err := s.products.Update(ctx, p); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned product image",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("update product image: %w", err)
	}

	logPublishError(ctx, s.logger, event.TopicProductChanged,
		s.producer.PublishProductChanged(ctx, p, "updated"), slog.String("product_id", p.ID))

	s.logger.InfoContext(ctx, "product image uploaded",
		slog.String("product_id", id),
		slog.String("key", key),
	)
	return p, nil
}

// productSlug resolves the slug for a product being saved. An explicit slug
// must be free; a derived one gets a numeric suffix until it is.
func (s *CatalogService) productSlug(ctx context.Context, input *ProductInput, selfID string) (string, error) {
	taken := func(candidate string) (bool, error) {
		existing, err := notFoundAsNil(s.products.GetBySlug(ctx, candidate))
		if err != nil {
			return false, fmt.Errorf("check product slug: %w", err)
		}
		return existing != nil && existing.ID != selfID, nil
	}
	return resolveSlug(input.Slug, input.Name, "product", taken)
}

func resolveSlug(explicit, name, resource string, taken func(string) (bool, error)) (string, error) {
	if explicit != "" {
		s := slug.Generate(explicit)
		if s == "" {
			return "", apperrors.InvalidInput("slug must contain letters or digits")
		}
		used, err := taken(s)
		if err != nil {
			return "", err
		}
		if used {
			return "", apperrors.AlreadyExists(resource, "slug", s)
		}
		return s, nil
	}

	base := slug.Generate(name)
	if base == "" {
		return "", apperrors.InvalidInput("name must contain letters or digits")
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		used, err := taken(candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	return "", apperrors.AlreadyExists(resource, "slug", base)
}

// CreateCategory stores a new category.
func (s *CatalogService) CreateCategory(ctx context.Context, input *CategoryInput) (*domain.Category, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	now := s.now()
	c := &domain.Category{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var err error
	if c.Slug, err = s.categorySlug(ctx, input, c.ID); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID),
		slog.String("slug", c.Slug),
	)
	return c, nil
}

// UpdateCategory replaces the editable fields of a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, input *CategoryInput) (*domain.Category, error) {
	if err := validator.Validate(input); err != nil {
		return nil, err
	}
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category for update: %w", err)
	}
	c.Name = strings.TrimSpace(input.Name)
	c.Description = input.Description
	c.ImageURL = input.ImageURL
	if c.Slug, err = s.categorySlug(ctx, input, c.ID); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()

	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	s.logger.InfoContext(ctx, "category updated", slog.String("category_id", c.ID))
	return c, nil
}

// DeleteCategory removes a category. Products filed under it keep the slug.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

func (s *CatalogService) categorySlug(ctx context.Context, input *CategoryInput, selfID string) (string, error) {
	taken := func(candidate string) (bool, error) {
		existing, err := s.categories.GetBySlug(ctx, candidate)
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("check category slug: %w", err)
		}
		return existing.ID != selfID, nil
	}
	return resolveSlug(input.Slug, input.Name, "category", taken)
}
