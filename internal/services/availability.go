package services

import "stockroom/internal/domain"

// LowStockThreshold is the first quantity reported as IN_STOCK.
const LowStockThreshold = 5

// Availability converts a product's stock into IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *CatalogService) Availability(id int) (domain.Availability, error) {
	p, err := s.Get(id)
	if err != nil {
		return domain.Availability{}, err
	}
	return availabilityOf(p), nil
}

func availabilityOf(p domain.Product) domain.Availability {
	status := "OUT_OF_STOCK"
	switch {
	case p.Stock >= LowStockThreshold:
		status = "IN_STOCK"
	case p.Stock > 0:
		status = "LOW_STOCK"
	}
	return domain.Availability{ProductID: p.ID, Status: status, Qty: p.Stock}
}
