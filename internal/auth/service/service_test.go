package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/auth/repository"
	"outreach_backend/internal/auth/transport"
	"outreach_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type testAuthConfig struct{}

func (testAuthConfig) GetJWTAccessSecret() string        { return "test-secret" }
func (testAuthConfig) GetAccessTokenTTL() time.Duration  { return time.Hour }
func (testAuthConfig) GetBootstrapAdminEmail() string    { return "admin@academy.test" }
func (testAuthConfig) GetBootstrapAdminPassword() string { return "bootstrap-pass" }

type fakeUsers struct {
	byEmail map[string]repository.User
	created int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]repository.User{}}
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (repository.User, error) {
	user, ok := f.byEmail[strings.ToLower(email)]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) Create(_ context.Context, params repository.CreateUserParams) (repository.User, error) {
	key := strings.ToLower(params.Email)
	if existing, ok := f.byEmail[key]; ok {
		return existing, nil
	}
	user := repository.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		DisplayName:  params.DisplayName,
		Role:         params.Role,
	}
	f.byEmail[key] = user
	f.created++
	return user, nil
}

func (f *fakeUsers) seed(t *testing.T, email, password, role string) repository.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user, err := f.Create(context.Background(), repository.CreateUserParams{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Counsellor",
		Role:         role,
	})
	if err != nil {
		t.Fatal(err)
	}
	return user
}

func TestLoginIssuesToken(t *testing.T) {
	users := newFakeUsers()
	seeded := users.seed(t, "admin@academy.test", "correct-horse", "admin")
	svc := New(users, testAuthConfig{}, logger.New("development"))

	resp, err := svc.Login(context.Background(), transport.LoginRequest{
		Email:    "admin@academy.test",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.User.Role != "admin" || resp.User.Email != "admin@academy.test" {
		t.Errorf("user info = %+v", resp.User)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Error("token expiry not in the future")
	}

	token, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("claims not MapClaims")
	}
	if claims["sub"] != seeded.ID.String() {
		t.Errorf("sub = %v, want user ID", claims["sub"])
	}
	if claims["type"] != "access" || claims["role"] != "admin" {
		t.Errorf("claims = %v", claims)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := newFakeUsers()
	users.seed(t, "admin@academy.test", "correct-horse", "admin")
	svc := New(users, testAuthConfig{}, logger.New("development"))

	_, err := svc.Login(context.Background(), transport.LoginRequest{
		Email:    "admin@academy.test",
		Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := New(newFakeUsers(), testAuthConfig{}, logger.New("development"))

	_, err := svc.Login(context.Background(), transport.LoginRequest{
		Email:    "nobody@academy.test",
		Password: "whatever",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestBootstrapIsIdempotent(t *testing.T) {
	users := newFakeUsers()
	svc := New(users, testAuthConfig{}, logger.New("development"))

	if err := svc.Bootstrap(context.Background(), testAuthConfig{}); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if err := svc.Bootstrap(context.Background(), testAuthConfig{}); err != nil {
		t.Fatalf("second Bootstrap() error = %v", err)
	}
	if users.created != 1 {
		t.Errorf("users created = %d, want 1", users.created)
	}

	if _, err := svc.Login(context.Background(), transport.LoginRequest{
		Email:    "admin@academy.test",
		Password: "bootstrap-pass",
	}); err != nil {
		t.Errorf("bootstrap admin cannot log in: %v", err)
	}
}

type emptyBootstrapConfig struct{ testAuthConfig }

func (emptyBootstrapConfig) GetBootstrapAdminEmail() string { return "" }

func TestBootstrapSkippedWithoutConfig(t *testing.T) {
	users := newFakeUsers()
	svc := New(users, testAuthConfig{}, logger.New("development"))

	if err := svc.Bootstrap(context.Background(), emptyBootstrapConfig{}); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	if users.created != 0 {
		t.Error("bootstrap must be skipped when unconfigured")
	}
}
