package domain

import "time"

type Cart struct {
	ID         CartID             `bson:"_id" json:"id"`
	Owner      `bson:",inline"`
	Items      []CatalogReference `bson:"products" json:"products"`
	TotalPrice Money              `bson:"total_price" json:"total_price"`
	Version    int64              `bson:"version" json:"-"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

func NewCart(owner Owner, now time.Time) (*Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return &Cart{
		ID:         NewCartID(),
		Owner:      owner,
		Items:      []CatalogReference{},
		TotalPrice: Zero(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// AddItem appends ref, or increments the quantity of the line with the same
// product, size and color. A line never grows past MaxLineQuantity.
func (c *Cart) AddItem(ref CatalogReference) error {
	if ref.ProductID == "" {
		return ErrInvalidProduct
	}
	if !validQuantity(ref.Quantity) {
		return ErrInvalidQuantity
	}
	if ref.Price.IsNegative() {
		return ErrNegativePrice
	}
	if i := c.indexOf(ref.Key()); i >= 0 {
		if c.Items[i].Quantity > MaxLineQuantity-ref.Quantity {
			return ErrInvalidQuantity
		}
		c.Items[i].Quantity += ref.Quantity
	} else {
		c.Items = append(c.Items, ref)
	}
	c.recompute()
	return nil
}

// UpdateItemQuantity sets the quantity of a line. Zero removes the line.
func (c *Cart) UpdateItemQuantity(key ItemKey, quantity int) error {
	if quantity < 0 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	i := c.indexOf(key)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.recompute()
	return nil
}

func (c *Cart) RemoveItem(key ItemKey) error {
	i := c.indexOf(key)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recompute()
	return nil
}

// Merge folds the lines of other into c using the AddItem rules. On error c
// is left as it was.
func (c *Cart) Merge(other *Cart) error {
	merged := &Cart{Items: cloneItems(c.Items)}
	for _, item := range other.Items {
		if err := merged.AddItem(item); err != nil {
			return err
		}
	}
	c.Items = merged.Items
	c.recompute()
	return nil
}

// RemovePurchased subtracts purchased quantities from the matching lines and
// drops lines that reach zero. Lines that are missing or were added after the
// purchase are left alone. It reports whether the cart changed.
func (c *Cart) RemovePurchased(purchased []CatalogReference) bool {
	changed := false
	for _, p := range purchased {
		i := c.indexOf(p.Key())
		if i < 0 || p.Quantity < 1 {
			continue
		}
		changed = true
		if c.Items[i].Quantity <= p.Quantity {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			continue
		}
		c.Items[i].Quantity -= p.Quantity
	}
	if changed {
		c.recompute()
	}
	return changed
}

func (c *Cart) Clear() {
	c.Items = []CatalogReference{}
	c.recompute()
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(key ItemKey) int {
	for i, item := range c.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	c.TotalPrice = ComputeTotal(c.Items)
}
