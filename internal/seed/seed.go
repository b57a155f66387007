// Package seed resets the store to a known state: every collection is wiped,
// then a default admin and the bundled sample products are inserted.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminName     = "Admin User"
	AdminEmail    = "admin@example.com"
	AdminPassword = "123456"
)

//go:embed products.json
var productsJSON []byte

// Collections wiped before seeding.
var Collections = []string{
	repository.CollectionProducts,
	repository.CollectionUsers,
	repository.CollectionCarts,
	repository.CollectionCheckouts,
	repository.CollectionOrders,
	repository.CollectionSubscribers,
	repository.CollectionOutbox,
}

type Seeder struct {
	wipe     func(ctx context.Context) error
	users    repository.UserRepository
	products repository.ProductRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewSeeder(db *mongo.Database, log *zap.Logger) *Seeder {
	return &Seeder{
		wipe: func(ctx context.Context) error {
			return repository.WipeCollections(ctx, db, Collections...)
		},
		users:    repository.NewUserRepository(db),
		products: repository.NewProductRepository(db),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Result struct {
	Admin    *domain.User
	Products []*domain.Product
}

func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	products, err := SampleProducts()
	if err != nil {
		return nil, err
	}

	if err := s.wipe(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear existing data: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin, err := domain.NewUser(AdminName, AdminEmail, string(hash), domain.RoleAdmin, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Insert(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	for _, p := range products {
		p.UserID = admin.ID
	}
	if err := s.products.InsertMany(ctx, products); err != nil {
		return nil, err
	}

	s.log.Info("seed data saved",
		zap.String("admin_id", string(admin.ID)),
		zap.Int("products", len(products)),
	)
	return &Result{Admin: admin, Products: products}, nil
}

// SampleProducts decodes the bundled catalog and gives every product a fresh id.
func SampleProducts() ([]*domain.Product, error) {
	var products []*domain.Product
	if err := json.Unmarshal(productsJSON, &products); err != nil {
		return nil, fmt.Errorf("failed to decode sample products: %w", err)
	}
	for _, p := range products {
		p.ID = domain.NewProductID()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sample product %q: %w", p.Name, err)
		}
	}
	return products, nil
}
