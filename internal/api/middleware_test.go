package api

import (
	"coachline/fitness-api/internal/domain"
	"coachline/fitness-api/internal/service"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID primitive.ObjectID, role domain.Role, ttl time.Duration) string {
	t.Helper()
	claims := &service.TokenClaims{
		UserID: userID.Hex(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func serve(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body.Error
}

func whoAmIRouter() *gin.Engine {
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(testSecret), RoleMiddleware(domain.RoleClient), func(c *gin.Context) {
		id, ok := callerID(c)
		if !ok {
			return
		}
		c.String(http.StatusOK, id.Hex())
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := primitive.NewObjectID()
	r := whoAmIRouter()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization header is missing"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Authorization header format must be Bearer {token}"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + signToken(t, userID, domain.RoleClient, -time.Minute), http.StatusUnauthorized, "Token has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := errorMessage(t, w); got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		claims := &service.TokenClaims{
			UserID:           userID.Hex(),
			Role:             domain.RoleClient,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		if w := serve(r, http.MethodGet, "/whoami", forged, ""); w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})

	t.Run("valid", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/whoami", signToken(t, userID, domain.RoleClient, time.Hour), "")
		if w.Code != http.StatusOK || w.Body.String() != userID.Hex() {
			t.Errorf("got %d %q, want 200 %s", w.Code, w.Body.String(), userID.Hex())
		}
	})
}

func TestRoleMiddleware(t *testing.T) {
	r := whoAmIRouter()
	w := serve(r, http.MethodGet, "/whoami", signToken(t, primitive.NewObjectID(), domain.RoleTrainer, time.Hour), "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestUserRateLimiter(t *testing.T) {
	limiter := NewUserRateLimiter(2, time.Hour)
	r := gin.New()
	r.POST("/limited", AuthMiddleware(testSecret), limiter.Middleware(zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	alice := signToken(t, primitive.NewObjectID(), domain.RoleClient, time.Hour)
	bob := signToken(t, primitive.NewObjectID(), domain.RoleClient, time.Hour)

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodPost, "/limited", alice, ""); w.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d, want 204", i+1, w.Code)
		}
	}
	if w := serve(r, http.MethodPost, "/limited", alice, ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("third request: status = %d, want 429", w.Code)
	}
	if w := serve(r, http.MethodPost, "/limited", bob, ""); w.Code != http.StatusNoContent {
		t.Errorf("other user: status = %d, want 204", w.Code)
	}
}

func TestUserRateLimiter_SweepDropsIdleBuckets(t *testing.T) {
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewUserRateLimiter(1, time.Minute)
	limiter.now = func() time.Time { return clock }

	if !limiter.limiter("alice").Allow() {
		t.Fatal("first request for alice should pass")
	}
	clock = clock.Add(2 * time.Minute)
	limiter.limiter("bob")

	if n := limiter.Sweep(); n != 0 {
		t.Fatalf("swept %d buckets before the idle TTL, want 0", n)
	}

	// Alice has now been idle past 3 windows, bob has not.
	clock = clock.Add(90 * time.Second)
	if n := limiter.Sweep(); n != 1 {
		t.Fatalf("swept %d buckets, want 1", n)
	}
	if _, ok := limiter.visitors["alice"]; ok {
		t.Error("alice's idle bucket is still tracked")
	}
	if _, ok := limiter.visitors["bob"]; !ok {
		t.Error("bob's recent bucket was dropped")
	}
}

func TestUserRateLimiter_RunStopsWithContext(t *testing.T) {
	limiter := NewUserRateLimiter(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
