package service

import (
	"context"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
)

type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) List(ctx context.Context, category string) ([]*domain.Product, error) {
	return s.repo.List(ctx, strings.TrimSpace(category))
}

func (s *ProductService) Get(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}
