package services

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"stockroom/internal/domain"
	"stockroom/internal/repos"
)

const receiptTimeLayout = "2006-01-02 15:04:05.000"

type OrderService struct {
	Products ProductRepository
	Orders   *repos.OrderRepo

	now func() time.Time
}

func NewOrderService(products ProductRepository, orders *repos.OrderRepo) *OrderService {
	return &OrderService{Products: products, Orders: orders, now: time.Now}
}

// Quote prices a selection against the cached catalog without touching stock.
func (s *OrderService) Quote(quantities map[int]int) (domain.Order, error) {
	products, err := s.Products.Load()
	if err != nil {
		return domain.Order{}, err
	}
	return BuildOrder(products, quantities)
}

// Confirm commits an order: live stock is re-read and re-checked, every
// selected product is decremented, the collection is saved and the order is
// recorded under key. A key that was already confirmed with the same
// quantities returns the recorded receipt (Replayed) and changes nothing.
func (s *OrderService) Confirm(key string, quantities map[int]int) (domain.Receipt, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.Receipt{}, &domain.ValidationError{Field: "idempotency key", Reason: "required"}
	}
	hash := payloadHash(quantities)

	var rec domain.Receipt
	err := s.Products.WithLock(func() error {
		tx, err := s.Orders.Begin()
		if err != nil {
			return &domain.StorageError{Op: "begin order ledger", Err: err}
		}
		defer func() { _ = tx.Rollback() }()

		prev, prevHash, found, err := s.Orders.FindByKey(tx, key)
		if err != nil {
			return &domain.StorageError{Op: "read order ledger", Err: err}
		}
		if found {
			if prevHash != hash {
				return &domain.ValidationError{Field: "idempotency key", Reason: "already used for a different order"}
			}
			prev.Replayed = true
			rec = prev
			return nil
		}

		products, err := s.Products.ReadFresh()
		if err != nil {
			return err
		}
		order, err := BuildOrder(products, quantities)
		if err != nil {
			return err
		}
		if err := applyOrder(products, order); err != nil {
			return err
		}

		rec = domain.Receipt{
			ID:        uuid.NewString(),
			Key:       key,
			Total:     order.Total,
			Lines:     order.Lines,
			CreatedAt: s.now().UTC().Format(receiptTimeLayout),
		}
		if err := s.Orders.Create(tx, rec, hash); err != nil {
			return &domain.StorageError{Op: "record order", Err: err}
		}
		if err := s.Products.Save(products); err != nil {
			return err
		}
		s.Products.Invalidate()
		if err := tx.Commit(); err != nil {
			// stock is already saved; the ledger row is lost
			return &domain.StorageError{Op: "commit order ledger", Err: err}
		}
		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return rec, nil
}

func (s *OrderService) Receipt(id string) (domain.Receipt, error) {
	return s.Orders.Get(id)
}

func (s *OrderService) History(limit int) ([]repos.OrderSummary, error) {
	return s.Orders.ListLatest(limit)
}

// BuildOrder selects every product with a positive quantity, in catalog
// order, and prices it. Quantities above stock, negative quantities and
// unknown ids are rejected; an empty selection is rejected too.
func BuildOrder(products []domain.Product, quantities map[int]int) (domain.Order, error) {
	known := make(map[int]bool, len(products))
	for _, p := range products {
		known[p.ID] = true
	}
	for _, id := range sortedIDs(quantities) {
		q := quantities[id]
		if q < 0 {
			return domain.Order{}, &domain.ValidationError{Field: fmt.Sprintf("quantity[%d]", id), Reason: "negative"}
		}
		if q > 0 && !known[id] {
			return domain.Order{}, &domain.NotFoundError{Resource: "product", Key: itoa(id)}
		}
	}

	var order domain.Order
	for _, p := range products {
		q := quantities[p.ID]
		if q <= 0 {
			continue
		}
		if q > p.Stock {
			return domain.Order{}, &domain.InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: q, Available: p.Stock}
		}
		line := domain.OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  q,
			Subtotal:  p.Price * int64(q),
		}
		order.Lines = append(order.Lines, line)
		order.Total += line.Subtotal
	}
	if len(order.Lines) == 0 {
		return domain.Order{}, &domain.ValidationError{Field: "quantities", Reason: "no products selected"}
	}
	return order, nil
}

// applyOrder decrements stock in place. Every line is checked before the
// first write so a rejected order leaves products untouched.
func applyOrder(products []domain.Product, order domain.Order) error {
	index := make(map[int]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	for _, l := range order.Lines {
		i, ok := index[l.ProductID]
		if !ok {
			return &domain.NotFoundError{Resource: "product", Key: itoa(l.ProductID)}
		}
		if products[i].Stock < l.Quantity {
			return &domain.InsufficientStockError{ProductID: l.ProductID, Name: l.Name, Requested: l.Quantity, Available: products[i].Stock}
		}
	}
	for _, l := range order.Lines {
		products[index[l.ProductID]].Stock -= l.Quantity
	}
	return nil
}

// payloadHash fingerprints the selected lines so a reused key with a
// different cart is detected.
func payloadHash(quantities map[int]int) string {
	var b strings.Builder
	for _, id := range sortedIDs(quantities) {
		if q := quantities[id]; q > 0 {
			fmt.Fprintf(&b, "%d:%d;", id, q)
		}
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func sortedIDs(quantities map[int]int) []int {
	ids := make([]int, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func itoa(n int) string { return strconv.Itoa(n) }
