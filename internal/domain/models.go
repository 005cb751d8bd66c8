package domain

// Product is one record of the persisted product collection.
type Product struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"` // whole Rupiah
	Stock int    `json:"stock"`
	Image string `json:"image"` // relative reference, e.g. images/chair.png
}

// CartLine is a requested quantity for one product. Quantity 0 means not selected.
type CartLine struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type OrderLine struct {
	ProductID int    `json:"product_id" db:"product_id"`
	Name      string `json:"name" db:"name"`
	Price     int64  `json:"price" db:"price"`
	Quantity  int    `json:"quantity" db:"qty"`
	Subtotal  int64  `json:"subtotal" db:"subtotal"`
}

// Order is the ephemeral priced selection shown before confirmation.
type Order struct {
	Lines []OrderLine `json:"lines"`
	Total int64       `json:"total"`
}

// Receipt is a confirmed order as recorded in the ledger.
type Receipt struct {
	ID        string      `json:"id" db:"id"`
	Key       string      `json:"key" db:"idem_key"`
	Total     int64       `json:"total" db:"total"`
	CreatedAt string      `json:"created_at" db:"created_at"`
	Lines     []OrderLine `json:"lines"`
	Replayed  bool        `json:"replayed"`
}

// MaxID returns the largest product id in the collection, 0 when empty.
func MaxID(products []Product) int {
	n := 0
	for _, p := range products {
		if p.ID > n {
			n = p.ID
		}
	}
	return n
}

// Clone copies the collection so the caller can mutate it freely.
func Clone(products []Product) []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// Availability is the coarse stock status shown to API clients.
type Availability struct {
	ProductID int    `json:"product_id"`
	Status    string `json:"status"` // IN_STOCK | LOW_STOCK | OUT_OF_STOCK
	Qty       int    `json:"qty"`
}
