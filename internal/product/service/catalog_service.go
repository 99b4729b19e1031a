package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
	apperrors "tradeflow/internal/errors"
)

type Repository interface {
	FindByID(ctx context.Context, id int) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []int) ([]domain.Product, error)
	ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error)
	ListAll(ctx context.Context, category string) ([]domain.Product, error)
	NameExists(ctx context.Context, name string) (bool, error)
	Insert(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, id int, fn func(p *domain.Product) error) (*domain.Product, error)
	SoftDelete(ctx context.Context, id int) error
}

type CreateProductInput struct {
	Name        string
	Description string
	BasePrice   decimal.Decimal
	Quantity    int
	Category    string
	Images      []string
}

// UpdateProductInput carries a partial update. Nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string
	Description *string
	BasePrice   *decimal.Decimal
	Category    *string
	Images      []string
}

type CatalogService struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewCatalogService(repo Repository, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	return p, nil
}

// GetProducts returns the live products among ids and the ids that matched nothing.
func (s *CatalogService) GetProducts(ctx context.Context, ids []int) ([]domain.Product, []int, error) {
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	foundSet := make(map[int]struct{}, len(found))
	for _, p := range found {
		foundSet[p.ID] = struct{}{}
	}

	var notFoundIDs []int
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}

func (s *CatalogService) ListByOwner(ctx context.Context, ownerID int) ([]domain.Product, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *CatalogService) ListAll(ctx context.Context, category string) ([]domain.Product, error) {
	return s.repo.ListAll(ctx, strings.TrimSpace(category))
}

func (s *CatalogService) CreateProduct(ctx context.Context, ownerID int, in CreateProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateSpec(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.NameExists(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewDuplicateNameError(in.Name)
	}

	now := s.now()
	p := &domain.Product{
		Name:            in.Name,
		Description:     in.Description,
		BasePrice:       in.BasePrice.Round(2),
		DiscountPercent: decimal.Zero,
		DiscountedPrice: in.BasePrice.Round(2),
		Quantity:        in.Quantity,
		Category:        in.Category,
		Images:          in.Images,
		OwnerID:         ownerID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.Int("productId", p.ID), zap.Int("ownerId", ownerID), zap.String("name", p.Name))
	return p, nil
}

// UpdateDetails applies only the supplied fields. A new base price reprices
// the product under its current discount.
func (s *CatalogService) UpdateDetails(ctx context.Context, id int, in UpdateProductInput) (*domain.Product, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewInvalidSpecError("name must not be empty")
	}
	if in.BasePrice != nil && in.BasePrice.IsNegative() {
		return nil, apperrors.NewInvalidSpecError("basePrice must be non-negative")
	}
	if in.Images != nil && len(in.Images) == 0 {
		return nil, apperrors.NewInvalidSpecError("at least one image is required")
	}

	p, err := s.repo.Update(ctx, id, func(p *domain.Product) error {
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			p.Description = *in.Description
		}
		if in.Category != nil {
			p.Category = *in.Category
		}
		if in.Images != nil {
			p.Images = in.Images
		}
		if in.BasePrice != nil {
			p.BasePrice = in.BasePrice.Round(2)
			p.Reprice()
		}
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, notFound(err, id)
	}

	s.logger.Info("product updated", zap.Int("productId", id))
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return notFound(err, id)
	}
	s.logger.Info("product deleted", zap.Int("productId", id))
	return nil
}

func validateSpec(in CreateProductInput) error {
	switch {
	case in.Name == "":
		return apperrors.NewInvalidSpecError("name is required")
	case in.BasePrice.IsNegative():
		return apperrors.NewInvalidSpecError("basePrice must be non-negative")
	case in.Quantity < 0:
		return apperrors.NewInvalidSpecError("quantity must be non-negative")
	case len(in.Images) == 0:
		return apperrors.NewInvalidSpecError("at least one image is required")
	}
	for _, img := range in.Images {
		if strings.TrimSpace(img) == "" {
			return apperrors.NewInvalidSpecError("image references must not be empty")
		}
	}
	return nil
}

func notFound(err error, id int) error {
	if errors.Is(err, domain.ErrProductMissing) {
		return apperrors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	return err
}
