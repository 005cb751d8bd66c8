package services

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
	"stockroom/internal/validate"
)

const productSequence = "product"

// NewProduct is the intake form payload.
type NewProduct struct {
	Name      string
	Price     int64
	Stock     int
	ImageName string
	Image     []byte
}

type IntakeService struct {
	Products ProductRepository
	Images   *repos.ImageStore
	Seq      *repos.SequenceRepo
}

func NewIntakeService(products ProductRepository, images *repos.ImageStore, seq *repos.SequenceRepo) *IntakeService {
	return &IntakeService{Products: products, Images: images, Seq: seq}
}

// Add validates the payload, stores the image and appends the product.
// Nothing is written when validation fails; the image is removed again if
// the collection cannot be saved.
func (s *IntakeService) Add(in NewProduct) (domain.Product, error) {
	name, ok := validate.Name(in.Name)
	if !ok {
		return domain.Product{}, &domain.ValidationError{Field: "name", Reason: "required, at most 100 characters"}
	}
	if in.Price < 0 {
		return domain.Product{}, &domain.ValidationError{Field: "price", Reason: "negative"}
	}
	if in.Stock < 0 {
		return domain.Product{}, &domain.ValidationError{Field: "stock", Reason: "negative"}
	}
	if len(in.Image) == 0 || strings.TrimSpace(in.ImageName) == "" {
		return domain.Product{}, &domain.ValidationError{Field: "image", Reason: "required"}
	}
	if !validate.ImageFile(in.ImageName) {
		return domain.Product{}, &domain.ValidationError{Field: "image", Reason: "must be a .jpg, .jpeg or .png file"}
	}
	if mt := mimetype.Detect(in.Image); !mt.Is("image/jpeg") && !mt.Is("image/png") {
		return domain.Product{}, &domain.ValidationError{Field: "image", Reason: "content is " + mt.String() + ", not JPEG or PNG"}
	}

	var created domain.Product
	err := s.Products.WithLock(func() error {
		products, err := s.Products.ReadFresh()
		if err != nil {
			if !domain.IsNotFound(err) {
				return err
			}
			// first product creates the store
			products = nil
		}

		id, err := s.Seq.Next(productSequence, domain.MaxID(products))
		if err != nil {
			return &domain.StorageError{Op: "next product id", Err: err}
		}
		ref, fresh, err := s.Images.Put(in.ImageName, in.Image)
		if err != nil {
			return err
		}

		p := domain.Product{ID: id, Name: name, Price: in.Price, Stock: in.Stock, Image: ref}
		if err := s.Products.Save(append(products, p)); err != nil {
			if fresh {
				_ = s.Images.Remove(ref)
			}
			return err
		}
		s.Products.Invalidate()
		created = p
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return created, nil
}
