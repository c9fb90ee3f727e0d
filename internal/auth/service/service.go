package service

import (
	"context"
	"errors"
	"time"

	"outreach_backend/internal/auth/repository"
	"outreach_backend/internal/auth/transport"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = apperr.Unauthorized("invalid email or password")

// UserStore is the persistence port, satisfied by repository.Repository.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	Create(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
}

type Service struct {
	repo     UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *logger.Logger
}

func New(repo UserStore, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	ttl := cfg.GetAccessTokenTTL()
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{
		repo:     repo,
		secret:   []byte(cfg.GetJWTAccessSecret()),
		tokenTTL: ttl,
		log:      log,
	}
}

func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison anyway to keep timing uniform.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidinvalidinvalidinvalidinvalidinvalid"), []byte(req.Password))
			return transport.LoginResponse{}, ErrInvalidCredentials
		}
		return transport.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return transport.LoginResponse{}, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"type": "access",
		"iat":  time.Now().Unix(),
		"exp":  expiresAt.Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return transport.LoginResponse{}, err
	}

	return transport.LoginResponse{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		User: transport.UserInfo{
			ID:          user.ID.String(),
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        user.Role,
		},
	}, nil
}

// Bootstrap seeds the operator account from configuration. Safe to run on
// every start; existing accounts are never modified.
func (s *Service) Bootstrap(ctx context.Context, cfg config.AuthServiceConfig) error {
	email := cfg.GetBootstrapAdminEmail()
	password := cfg.GetBootstrapAdminPassword()
	if email == "" || password == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user, err := s.repo.Create(ctx, repository.CreateUserParams{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Admin",
		Role:         "admin",
	})
	if err != nil {
		return err
	}

	s.log.Info("bootstrap admin ready", "user_id", user.ID.String())
	return nil
}
