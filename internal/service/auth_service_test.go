package service

import (
	"coachline/fitness-api/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func TestRegisterAndLogin(t *testing.T) {
	store := newMemStore()
	svc := NewAuthService(store.Users(), testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ana", " Ana@Example.com ", "hunter22", domain.RoleClient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "ana@example.com" || user.PasswordHash != "" {
		t.Errorf("registered user = %+v", user)
	}

	if _, err := svc.Register(ctx, "Ana", "ana@example.com", "x", domain.RoleClient); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate: err = %v, want ErrUserAlreadyExists", err)
	}
	if _, err := svc.Register(ctx, "Bo", "bo@example.com", "x", domain.Role("admin")); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role: err = %v, want ErrInvalidRole", err)
	}

	if _, _, err := svc.Login(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("wrong password: err = %v, want ErrAuthenticationFailed", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "hunter22"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("unknown email: err = %v, want ErrAuthenticationFailed", err)
	}

	token, loggedIn, err := svc.Login(ctx, "ANA@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("logged in as %s, want %s", loggedIn.ID.Hex(), user.ID.Hex())
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	if claims.UserID != user.ID.Hex() || claims.Role != domain.RoleClient {
		t.Errorf("claims = %+v", claims)
	}
}
