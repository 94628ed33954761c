package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"restaurantpos/internal/caching"
	"restaurantpos/internal/common"
	"restaurantpos/internal/models"
	"restaurantpos/internal/repositories"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const menuItemCacheTTL = 10 * time.Minute

// maxMenuPrice is the largest value NUMERIC(10, 2) holds
var maxMenuPrice = decimal.RequireFromString("99999999.99")

// MaxImageSize bounds menu image uploads
const MaxImageSize = 5 << 20

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// MenuMetrics receives catalog events; metrics.Metrics implements it
type MenuMetrics interface {
	ObserveMenuChange(operation string)
}

type MenuService interface {
	AddItem(ctx context.Context, input *models.MenuItemInput) (*models.MenuItem, error)
	UpdateItem(ctx context.Context, id uuid.UUID, input *models.MenuItemInput) (*models.MenuItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListItems(ctx context.Context) ([]*models.MenuItem, error)
	UploadImage(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*models.MenuItem, error)
	Categories() []string
}

type menuService struct {
	repo       repositories.MenuItemRepository
	cacheSvc   caching.CacheService
	images     MinioService
	metrics    MenuMetrics
	categories []string
	now        func() time.Time
}

// NewMenuService builds the catalog. cacheSvc, images and metrics may be nil.
func NewMenuService(repo repositories.MenuItemRepository, cacheSvc caching.CacheService, images MinioService, metrics MenuMetrics, categories []string) MenuService {
	if len(categories) == 0 {
		categories = models.DefaultCategories
	}
	return &menuService{
		repo:       repo,
		cacheSvc:   cacheSvc,
		images:     images,
		metrics:    metrics,
		categories: append([]string(nil), categories...),
		now:        time.Now,
	}
}

func (s *menuService) Categories() []string {
	return append([]string(nil), s.categories...)
}

// validate checks an input against the category list as configured right now.
// Items saved under a category that was later removed are not revisited.
func (s *menuService) validate(input *models.MenuItemInput) error {
	if input == nil {
		return common.NewValidationError("item", "menu item is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.ImageURL = strings.TrimSpace(input.ImageURL)

	if err := common.ValidateRequiredString(input.Name, "name"); err != nil {
		return err
	}
	if err := common.ValidateRequiredString(input.Description, "description"); err != nil {
		return err
	}
	if err := validatePrice(input.Price); err != nil {
		return err
	}
	if !s.hasCategory(input.Category) {
		return common.NewValidationError("category", fmt.Sprintf("category must be one of: %s", strings.Join(s.categories, ", ")))
	}
	if input.ImageURL == "" {
		input.ImageURL = models.PlaceholderImageURL
	}
	return nil
}

// validatePrice keeps prices within the NUMERIC(10, 2) column so the store never rounds them
func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return common.NewValidationError("price", "price must be greater than 0")
	}
	if !price.Equal(price.Truncate(2)) {
		return common.NewValidationError("price", "price must have at most 2 decimal places")
	}
	if price.GreaterThan(maxMenuPrice) {
		return common.NewValidationError("price", fmt.Sprintf("price must not exceed %s", maxMenuPrice.StringFixed(2)))
	}
	return nil
}

func (s *menuService) hasCategory(category string) bool {
	for _, c := range s.categories {
		if c == category {
			return true
		}
	}
	return false
}

func (s *menuService) AddItem(ctx context.Context, input *models.MenuItemInput) (*models.MenuItem, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	item := &models.MenuItem{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, common.Persistence("add menu item", err)
	}
	s.observe("add")
	return item, nil
}

func (s *menuService) UpdateItem(ctx context.Context, id uuid.UUID, input *models.MenuItemInput) (*models.MenuItem, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence("load menu item", err)
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Price = input.Price
	existing.Category = input.Category
	existing.ImageURL = input.ImageURL
	existing.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, common.Persistence("update menu item", err)
	}
	s.invalidate(ctx, id)
	s.observe("update")
	return existing, nil
}

// DeleteItem hard-deletes the row. Order lines keep their own snapshot.
func (s *menuService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return common.Persistence("load menu item", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return common.Persistence("delete menu item", err)
	}
	s.invalidate(ctx, id)
	s.observe("delete")

	if s.images != nil {
		if objectName, ok := s.images.ObjectName(existing.ImageURL); ok {
			if err := s.images.DeleteImage(ctx, objectName); err != nil {
				log.Printf("WARN: failed to delete image %s of menu item %s: %v", objectName, id, err)
			}
		}
	}
	return nil
}

func (s *menuService) GetItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	if s.cacheSvc != nil {
		cached, err := s.cacheSvc.GetMenuItem(ctx, id)
		if err != nil {
			log.Printf("WARN: menu item cache read failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence("load menu item", err)
	}
	if s.cacheSvc != nil {
		if err := s.cacheSvc.SetMenuItem(ctx, item, menuItemCacheTTL); err != nil {
			log.Printf("WARN: menu item cache write failed: %v", err)
		}
	}
	return item, nil
}

// ListItems always reads the store so a list after a write reflects that write
func (s *menuService) ListItems(ctx context.Context) ([]*models.MenuItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, common.Persistence("list menu items", err)
	}
	if items == nil {
		items = []*models.MenuItem{}
	}
	return items, nil
}

func (s *menuService) UploadImage(ctx context.Context, id uuid.UUID, reader io.Reader, size int64, contentType string) (*models.MenuItem, error) {
	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, common.NewValidationError("image", "image must be jpeg, png, webp or gif")
	}
	if size <= 0 || size > MaxImageSize {
		return nil, common.NewValidationError("image", fmt.Sprintf("image must be between 1 byte and %d bytes", MaxImageSize))
	}

	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, common.Persistence("load menu item", err)
	}

	objectName := fmt.Sprintf("menu/%s%s", id, ext)
	if err := s.images.UploadImage(ctx, objectName, reader, size, contentType); err != nil {
		return nil, common.Persistence("upload menu image", err)
	}
	url := s.images.ObjectURL(objectName)
	if err := s.repo.UpdateImage(ctx, id, url); err != nil {
		return nil, common.Persistence("update menu image", err)
	}
	s.invalidate(ctx, id)
	s.observe("image")

	item.ImageURL = url
	item.UpdatedAt = s.now().UTC()
	return item, nil
}

func (s *menuService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cacheSvc == nil {
		return
	}
	if err := s.cacheSvc.DeleteMenuItem(ctx, id); err != nil {
		log.Printf("WARN: failed to invalidate menu item %s in cache: %v", id, err)
	}
}

func (s *menuService) observe(operation string) {
	if s.metrics != nil {
		s.metrics.ObserveMenuChange(operation)
	}
}
