package repos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"stockroom/internal/domain"
)

// ProductStore persists the whole product collection as one JSON file.
// Every write replaces the file; there is no partial update and no atomic
// rename, so a crash mid-write can truncate it. Two processes sharing the
// file overwrite each other's saves (last save wins).
type ProductStore struct {
	path string

	writeMu sync.Mutex // serializes read-modify-write cycles in this process

	cacheMu sync.Mutex
	cached  []domain.Product
	loaded  bool
}

func NewProductStore(path string) *ProductStore { return &ProductStore{path: path} }

func (s *ProductStore) Path() string { return s.path }

// Initialize performs the first load and fills the cache.
func (s *ProductStore) Initialize() error {
	_, err := s.Load()
	return err
}

// Load returns the cached collection, reading the file on first use.
// The returned slice is a copy; mutating it never touches the cache.
func (s *ProductStore) Load() ([]domain.Product, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.loaded {
		return domain.Clone(s.cached), nil
	}
	products, err := s.ReadFresh()
	if err != nil {
		return nil, err
	}
	s.cached = products
	s.loaded = true
	return domain.Clone(products), nil
}

// Invalidate drops the cache so the next Load rereads the file.
// Call it after every Save.
func (s *ProductStore) Invalidate() {
	s.cacheMu.Lock()
	s.cached = nil
	s.loaded = false
	s.cacheMu.Unlock()
}

// ReadFresh reads and validates the file, bypassing the cache.
func (s *ProductStore) ReadFresh() ([]domain.Product, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Resource: "product store", Key: s.path}
		}
		return nil, &domain.StorageError{Op: "open product store", Err: err}
	}
	defer f.Close()

	products, err := DecodeProducts(f)
	if err != nil {
		// malformed content is a server-side data problem; the cause stays reachable
		return nil, &domain.StorageError{Op: "read " + s.path, Err: err}
	}
	return products, nil
}

// Save overwrites the file with the full collection.
func (s *ProductStore) Save(products []domain.Product) error {
	var buf bytes.Buffer
	if err := EncodeProducts(&buf, products); err != nil {
		return &domain.StorageError{Op: "encode product store", Err: err}
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &domain.StorageError{Op: "create product store dir", Err: err}
		}
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return &domain.StorageError{Op: "write product store", Err: err}
	}
	return nil
}

// WithLock runs fn while holding the store's write lock. Mutating services
// wrap their ReadFresh/Save/Invalidate cycle in it.
func (s *ProductStore) WithLock(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return fn()
}

// productRecord mirrors Product with pointer fields so absent keys are
// caught at load time instead of silently becoming zero values.
type productRecord struct {
	ID    *int    `json:"id"`
	Name  *string `json:"name"`
	Price *int64  `json:"price"`
	Stock *int    `json:"stock"`
	Image *string `json:"image"`
}

// DecodeProducts parses a JSON array of products and validates every record.
func DecodeProducts(r io.Reader) ([]domain.Product, error) {
	dec := json.NewDecoder(r)
	var recs []productRecord
	if err := dec.Decode(&recs); err != nil {
		return nil, &domain.ValidationError{Field: "products", Reason: err.Error()}
	}
	// the file holds exactly one array; null and trailing values are refused
	if recs == nil {
		return nil, &domain.ValidationError{Field: "products", Reason: "not an array"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &domain.ValidationError{Field: "products", Reason: "trailing content after the array"}
	}

	out := make([]domain.Product, 0, len(recs))
	seen := make(map[int]bool, len(recs))
	for i, rec := range recs {
		field := func(name string) string { return fmt.Sprintf("products[%d].%s", i, name) }
		switch {
		case rec.ID == nil:
			return nil, &domain.ValidationError{Field: field("id"), Reason: "missing"}
		case rec.Name == nil:
			return nil, &domain.ValidationError{Field: field("name"), Reason: "missing"}
		case rec.Price == nil:
			return nil, &domain.ValidationError{Field: field("price"), Reason: "missing"}
		case rec.Stock == nil:
			return nil, &domain.ValidationError{Field: field("stock"), Reason: "missing"}
		case rec.Image == nil:
			return nil, &domain.ValidationError{Field: field("image"), Reason: "missing"}
		}
		p := domain.Product{ID: *rec.ID, Name: *rec.Name, Price: *rec.Price, Stock: *rec.Stock, Image: *rec.Image}
		switch {
		case p.ID <= 0:
			return nil, &domain.ValidationError{Field: field("id"), Reason: "must be positive"}
		case seen[p.ID]:
			return nil, &domain.ValidationError{Field: field("id"), Reason: fmt.Sprintf("duplicate id %d", p.ID)}
		case p.Name == "":
			return nil, &domain.ValidationError{Field: field("name"), Reason: "empty"}
		case p.Price < 0:
			return nil, &domain.ValidationError{Field: field("price"), Reason: "negative"}
		case p.Stock < 0:
			return nil, &domain.ValidationError{Field: field("stock"), Reason: "negative"}
		case p.Image == "":
			return nil, &domain.ValidationError{Field: field("image"), Reason: "empty"}
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out, nil
}

// EncodeProducts writes the collection as an indented JSON array.
func EncodeProducts(w io.Writer, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	b, err := json.MarshalIndent(products, "", "    ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
