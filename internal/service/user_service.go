package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type UserService struct {
	repo repository.UserRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewUserService(repo repository.UserRepository, log *zap.Logger) *UserService {
	return &UserService{repo: repo, log: log, now: utcNow}
}

func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := domain.NewUser(name, email, hash, role, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", string(user.ID)), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.repo.Get(ctx, id)
}
