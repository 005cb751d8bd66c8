package services

import (
	"github.com/dustin/go-humanize"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
)

// ProductRepository is the product collection as the services use it.
// *repos.ProductStore is the production implementation.
type ProductRepository interface {
	Initialize() error
	Load() ([]domain.Product, error)
	ReadFresh() ([]domain.Product, error)
	Save(products []domain.Product) error
	Invalidate()
	WithLock(fn func() error) error
}

// CatalogService is the read side: it never mutates the collection.
type CatalogService struct {
	Products ProductRepository
	Images   *repos.ImageStore
}

func NewCatalogService(products ProductRepository, images *repos.ImageStore) *CatalogService {
	return &CatalogService{Products: products, Images: images}
}

func (s *CatalogService) List() ([]domain.Product, error) {
	return s.Products.Load()
}

func (s *CatalogService) Get(id int) (domain.Product, error) {
	products, err := s.Products.Load()
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, &domain.NotFoundError{Resource: "product", Key: itoa(id)}
}

// Reload drops the cached collection and reads the file again.
func (s *CatalogService) Reload() error {
	s.Products.Invalidate()
	return s.Products.Initialize()
}

// ImagePath resolves a product image reference to a file on disk.
func (s *CatalogService) ImagePath(ref string) (string, error) {
	return s.Images.Resolve(ref)
}

// FormatRupiah renders a whole-Rupiah amount, e.g. "Rp 100,000".
func FormatRupiah(v int64) string {
	return "Rp " + humanize.Comma(v)
}
