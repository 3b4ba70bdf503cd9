// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler
// integration tests, exercising the handlers through the real router.
// It lives in an external test package so it can import the router
// without a cycle. Tests are skipped when PostgreSQL is unavailable;
// the token denylist falls back to an unreachable Valkey, which fails
// open and keeps the flows testable without it.
package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"mercado/internal/auth"
	"mercado/internal/cache"
	"mercado/internal/database"
	"mercado/internal/handlers"
	"mercado/internal/models"
	"mercado/internal/router"
	"mercado/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "mercado")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "mercado")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testApp wires a full router against the test database. The returned
// token belongs to a fresh admin account.
func testApp(t *testing.T) (chi.Router, *sql.DB, string) {
	t.Helper()
	db := testDB(t)

	valkey := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 10 * time.Millisecond,
		MaxRetries:  -1,
	})
	denylist := cache.NewDenylist(valkey)
	tokens := auth.NewTokenManager("handler-test-secret", time.Hour)

	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)

	r := router.New(tokens, denylist,
		handlers.NewAuth(tokens, denylist, userStore),
		handlers.NewCategories(categoryStore),
	)

	email := "th-admin@example.com"
	db.Exec("DELETE FROM users WHERE email = $1", email)
	admin, err := userStore.Create(email, "admin-pass-123", "Test Admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE email = $1", email) })

	token, _, err := tokens.Issue(admin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return r, db, token
}

// doJSON performs a request with an optional bearer token and JSON body.
func doJSON(t *testing.T, r chi.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeCategory(t *testing.T, rr *httptest.ResponseRecorder) models.Category {
	t.Helper()
	var c models.Category
	if err := json.NewDecoder(rr.Body).Decode(&c); err != nil {
		t.Fatalf("decode category: %v (body %q)", err, rr.Body.String())
	}
	return c
}

func cleanupCategorySlugs(t *testing.T, db *sql.DB, slugs ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, slug := range slugs {
			db.Exec("DELETE FROM categories WHERE slug = $1", slug)
		}
	})
}

func TestCategoryCRUDFlow(t *testing.T) {
	r, db, token := testApp(t)
	cleanupCategorySlugs(t, db, "th-flow-child", "th-flow-moveis-e-decoracao")

	// Create with a generated slug: the first translation name drives it.
	rr := doJSON(t, r, http.MethodPost, "/api/categories", token, map[string]any{
		"translations": []map[string]string{
			{"language": "pt", "name": "Th Flow Móveis e Decoração"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body %s", rr.Code, rr.Body.String())
	}
	parent := decodeCategory(t, rr)
	if parent.Slug != "th-flow-moveis-e-decoracao" {
		t.Errorf("generated slug: got %q", parent.Slug)
	}

	// Create a child under it.
	rr = doJSON(t, r, http.MethodPost, "/api/categories", token, map[string]any{
		"slug":     "th-flow-child",
		"parentId": parent.ID,
		"translations": []map[string]string{
			{"language": "en", "name": "Flow Child"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create child: got %d, body %s", rr.Code, rr.Body.String())
	}
	child := decodeCategory(t, rr)

	// Read it back by id and by slug.
	rr = doJSON(t, r, http.MethodGet, "/api/categories/"+child.ID.String(), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d", rr.Code)
	}
	rr = doJSON(t, r, http.MethodGet, "/api/categories/slug/th-flow-child", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get by slug: got %d", rr.Code)
	}

	// Deleting the parent while the child is active conflicts.
	rr = doJSON(t, r, http.MethodDelete, "/api/categories/"+parent.ID.String(), token, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("delete with active child: got %d, want 409", rr.Code)
	}

	// Move the child to the roots with an explicit null parent.
	rr = doJSON(t, r, http.MethodPatch, "/api/categories/"+child.ID.String(), token,
		map[string]any{"parentId": nil})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: got %d, body %s", rr.Code, rr.Body.String())
	}
	moved := decodeCategory(t, rr)
	if moved.ParentID != nil {
		t.Error("child should have been moved to the roots")
	}

	// Now the parent can be soft-deleted and restored.
	rr = doJSON(t, r, http.MethodDelete, "/api/categories/"+parent.ID.String(), token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = doJSON(t, r, http.MethodPost, "/api/categories/"+parent.ID.String()+"/restore", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("restore: got %d", rr.Code)
	}
	if restored := decodeCategory(t, rr); !restored.Active {
		t.Error("restored category should be active")
	}
}

func TestCategoryCycleRejectedOverHTTP(t *testing.T) {
	r, db, token := testApp(t)
	cleanupCategorySlugs(t, db, "th-cycle-b", "th-cycle-a")

	rr := doJSON(t, r, http.MethodPost, "/api/categories", token, map[string]any{
		"slug":         "th-cycle-a",
		"translations": []map[string]string{{"language": "en", "name": "A"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create a: got %d", rr.Code)
	}
	a := decodeCategory(t, rr)

	rr = doJSON(t, r, http.MethodPost, "/api/categories", token, map[string]any{
		"slug":         "th-cycle-b",
		"parentId":     a.ID,
		"translations": []map[string]string{{"language": "en", "name": "B"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create b: got %d", rr.Code)
	}
	b := decodeCategory(t, rr)

	// A under B closes a cycle: 422.
	rr = doJSON(t, r, http.MethodPatch, "/api/categories/"+a.ID.String(), token,
		map[string]any{"parentId": b.ID})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("cycle patch: got %d, want 422 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestDuplicateSlugOverHTTP(t *testing.T) {
	r, db, token := testApp(t)
	cleanupCategorySlugs(t, db, "th-dup")

	body := map[string]any{
		"slug":         "th-dup",
		"translations": []map[string]string{{"language": "en", "name": "Dup"}},
	}
	if rr := doJSON(t, r, http.MethodPost, "/api/categories", token, body); rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d", rr.Code)
	}
	if rr := doJSON(t, r, http.MethodPost, "/api/categories", token, body); rr.Code != http.StatusConflict {
		t.Errorf("duplicate create: got %d, want 409", rr.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	r, db, _ := testApp(t)

	email := "th-login@example.com"
	db.Exec("DELETE FROM users WHERE email = $1", email)
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE email = $1", email) })
	if _, err := store.NewUserStore(db).Create(email, "login-pass-123", "Login User", models.RoleClient); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Wrong password.
	rr := doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": email, "password": "wrong"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: got %d, want 401", rr.Code)
	}

	// Correct password returns a usable token.
	rr = doJSON(t, r, http.MethodPost, "/api/auth/login", "",
		map[string]string{"email": email, "password": "login-pass-123"})
	if rr.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rr.Code, rr.Body.String())
	}
	var loginResp struct {
		AccessToken string      `json:"access_token"`
		User        models.User `json:"user"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&loginResp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if loginResp.AccessToken == "" {
		t.Fatal("expected an access token")
	}

	rr = doJSON(t, r, http.MethodGet, "/api/auth/me", loginResp.AccessToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me: got %d", rr.Code)
	}
	var me models.User
	if err := json.NewDecoder(rr.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != email {
		t.Errorf("me email: got %q", me.Email)
	}

	// A client token cannot create categories.
	rr = doJSON(t, r, http.MethodPost, "/api/categories", loginResp.AccessToken, map[string]any{
		"slug":         "th-forbidden",
		"translations": []map[string]string{{"language": "en", "name": "Nope"}},
	})
	if rr.Code != http.StatusForbidden {
		t.Errorf("client create: got %d, want 403", rr.Code)
	}
}
