package domain

import (
	"fmt"
	"strings"
	"time"
)

type ProductImage struct {
	URL     string `bson:"url" json:"url"`
	AltText string `bson:"alt_text,omitempty" json:"alt_text,omitempty"`
}

// Product is a live catalog entry. Carts, checkouts and orders never point at
// it directly; they embed a CatalogReference built from it.
type Product struct {
	ID           ProductID      `bson:"_id" json:"id"`
	Name         string         `bson:"name" json:"name"`
	Description  string         `bson:"description" json:"description"`
	Price        Money          `bson:"price" json:"price"`
	Images       []ProductImage `bson:"images" json:"images"`
	Sizes        []string       `bson:"sizes" json:"sizes"`
	Colors       []string       `bson:"colors" json:"colors"`
	Category     string         `bson:"category" json:"category"`
	Brand        string         `bson:"brand,omitempty" json:"brand,omitempty"`
	CountInStock int            `bson:"count_in_stock" json:"count_in_stock"`
	UserID       UserID         `bson:"user" json:"user"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updated_at"`
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", ErrValidation)
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.CountInStock < 0 {
		return fmt.Errorf("%w: count in stock cannot be negative", ErrValidation)
	}
	return nil
}

// CatalogItem returns the snapshot fields embedded into carts. The first
// image stands for the product.
func (p *Product) CatalogItem() CatalogItem {
	item := CatalogItem{ProductID: p.ID, Name: p.Name, Price: p.Price}
	if len(p.Images) > 0 {
		item.Image = p.Images[0].URL
	}
	return item
}
