package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data: a default
// admin user and a small sample category tree. It is a no-op when the
// target tables already hold data.
func Seed(db *sql.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	return seedCategories(db)
}

// seedAdmin creates a default admin user if none exists. 2FA is not
// enabled — they can set it up after first login.
func seedAdmin(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count > 0 {
		slog.Info("users already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
	`, "admin@mercado.local", string(hash), "Admin", "admin", false)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@mercado.local",
		"password", "admin",
	)
	return nil
}

// seedCategories creates a two-level sample taxonomy so a fresh install
// has something to browse.
func seedCategories(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if count > 0 {
		slog.Info("categories already seeded, skipping")
		return nil
	}

	roots := []struct {
		slug     string
		order    int
		name     string
		namePT   string
		children []struct{ slug, name, namePT string }
	}{
		{
			slug: "electronics", order: 0, name: "Electronics", namePT: "Eletrônicos",
			children: []struct{ slug, name, namePT string }{
				{"phones", "Phones", "Celulares"},
				{"computers", "Computers", "Computadores"},
			},
		},
		{
			slug: "vehicles", order: 1, name: "Vehicles", namePT: "Veículos",
			children: []struct{ slug, name, namePT string }{
				{"cars", "Cars", "Carros"},
				{"motorcycles", "Motorcycles", "Motos"},
			},
		},
		{
			slug: "services", order: 2, name: "Services", namePT: "Serviços",
		},
	}

	insert := func(slug string, parentID *string, order int, name, namePT string) (string, error) {
		var id string
		err := db.QueryRow(`
			INSERT INTO categories (slug, parent_id, display_order)
			VALUES ($1, $2, $3)
			RETURNING id
		`, slug, parentID, order).Scan(&id)
		if err != nil {
			return "", fmt.Errorf("seed insert category %s: %w", slug, err)
		}
		for _, tr := range []struct{ lang, n string }{{"en", name}, {"pt", namePT}} {
			_, err = db.Exec(`
				INSERT INTO category_translations (category_id, language, name)
				VALUES ($1, $2, $3)
			`, id, tr.lang, tr.n)
			if err != nil {
				return "", fmt.Errorf("seed insert translation %s/%s: %w", slug, tr.lang, err)
			}
		}
		return id, nil
	}

	for _, root := range roots {
		rootID, err := insert(root.slug, nil, root.order, root.name, root.namePT)
		if err != nil {
			return err
		}
		for i, child := range root.children {
			if _, err := insert(child.slug, &rootID, i, child.name, child.namePT); err != nil {
				return err
			}
		}
	}

	slog.Info("database seeded with sample categories")
	return nil
}
