// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mercado/internal/auth"
	"mercado/internal/cache"
	"mercado/internal/models"
)

// testDenylist returns a denylist backed by an unreachable Valkey.
// Lookups fail open, which is exactly the unauthenticated-path behavior
// these tests need.
func testDenylist() *cache.Denylist {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	return cache.NewDenylist(client)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatePassesThroughWithoutToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	handler := Authenticate(tm, testDenylist())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromCtx(r.Context()) != nil {
			t.Error("expected no claims for anonymous request")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rr.Code)
	}
}

func TestAuthenticateStoresClaims(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	token, issued, err := tm.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := Authenticate(tm, testDenylist())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromCtx(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != user.ID {
			t.Errorf("UserID = %s, want %s", claims.UserID, user.ID)
		}
		if claims.TokenID != issued.TokenID {
			t.Errorf("TokenID = %s, want %s", claims.TokenID, issued.TokenID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rr.Code)
	}
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	handler := Authenticate(tm, testDenylist())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401", rr.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d, want 401 for anonymous request", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	tests := []struct {
		name string
		role models.Role
		want int
	}{
		{"admin allowed", models.RoleAdmin, http.StatusOK},
		{"provider forbidden", models.RoleProvider, http.StatusForbidden},
		{"client forbidden", models.RoleClient, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := tm.Issue(&models.User{ID: uuid.New(), Role: tt.role})
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}

			handler := Authenticate(tm, testDenylist())(RequireAuth(RequireAdmin(okHandler())))

			req := httptest.NewRequest(http.MethodPost, "/api/categories", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
