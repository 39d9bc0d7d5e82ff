package services

import (
	"foodshare/internal/domain"
	"foodshare/internal/repos"
)

type CatalogService struct {
	Cats     *repos.CategoryRepo
	Listings *repos.ListingRepo
}

func NewCatalogService(cats *repos.CategoryRepo, listings *repos.ListingRepo) *CatalogService {
	return &CatalogService{Cats: cats, Listings: listings}
}

func (s *CatalogService) ListCategories() ([]domain.Category, error) {
	return s.Cats.List()
}

func (s *CatalogService) ListByCategory(catID string, page, pageSize int) ([]domain.Listing, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize
	return s.Listings.ListByCategory(catID, pageSize, offset)
}

func (s *CatalogService) Search(q, category string, donationsOnly bool, page, pageSize int) ([]domain.Listing, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize
	return s.Listings.Search(q, category, donationsOnly, pageSize, offset)
}
