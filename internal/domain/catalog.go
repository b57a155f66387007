package domain

import "strings"

// MaxLineQuantity caps the quantity of a single line so that merging lines
// and pricing them cannot overflow.
const MaxLineQuantity = 10_000

// CatalogItem is what the catalog reports for a product at resolution time.
type CatalogItem struct {
	ProductID ProductID
	Name      string
	Image     string
	Price     Money
}

// CatalogReference is a product snapshot embedded into carts, checkouts and
// orders. Once embedded it is a copy: later catalog edits do not reach it.
type CatalogReference struct {
	ProductID ProductID `bson:"product_id" json:"product_id"`
	Name      string    `bson:"name" json:"name"`
	Image     string    `bson:"image" json:"image"`
	Price     Money     `bson:"price" json:"price"`
	Size      string    `bson:"size,omitempty" json:"size,omitempty"`
	Color     string    `bson:"color,omitempty" json:"color,omitempty"`
	Quantity  int       `bson:"quantity" json:"quantity"`
}

// ItemKey identifies a line: the same product in a different size or color is
// a different line.
type ItemKey struct {
	ProductID ProductID
	Size      string
	Color     string
}

// NewItemKey builds the key of a line the same way NewCatalogReference
// normalizes it, so callers can address a line with the input they added it with.
func NewItemKey(productID ProductID, size, color string) ItemKey {
	return ItemKey{
		ProductID: productID,
		Size:      strings.TrimSpace(size),
		Color:     strings.TrimSpace(color),
	}
}

func NewCatalogReference(item CatalogItem, size, color string, quantity int) (CatalogReference, error) {
	if item.ProductID == "" {
		return CatalogReference{}, ErrInvalidProduct
	}
	if !validQuantity(quantity) {
		return CatalogReference{}, ErrInvalidQuantity
	}
	if item.Price.IsNegative() {
		return CatalogReference{}, ErrNegativePrice
	}
	key := NewItemKey(item.ProductID, size, color)
	return CatalogReference{
		ProductID: item.ProductID,
		Name:      item.Name,
		Image:     item.Image,
		Price:     item.Price,
		Size:      key.Size,
		Color:     key.Color,
		Quantity:  quantity,
	}, nil
}

func (r CatalogReference) Key() ItemKey {
	return ItemKey{ProductID: r.ProductID, Size: r.Size, Color: r.Color}
}

func (r CatalogReference) Subtotal() Money {
	return r.Price.Times(r.Quantity)
}

// validateFrozen checks the fields a checkout or order line must carry.
func (r CatalogReference) validateFrozen() error {
	if r.ProductID == "" {
		return ErrInvalidProduct
	}
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Image) == "" {
		return ErrIncompleteItem
	}
	if r.Price.IsNegative() {
		return ErrNegativePrice
	}
	if !validQuantity(r.Quantity) {
		return ErrInvalidQuantity
	}
	return nil
}

func validQuantity(quantity int) bool {
	return quantity >= 1 && quantity <= MaxLineQuantity
}

// ComputeTotal is the sum of price x quantity over items.
func ComputeTotal(items []CatalogReference) Money {
	total := Zero()
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func cloneItems(items []CatalogReference) []CatalogReference {
	out := make([]CatalogReference, len(items))
	copy(out, items)
	return out
}
