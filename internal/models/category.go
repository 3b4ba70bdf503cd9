// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the marketplace taxonomy tree. Categories form a
// forest via the nullable ParentID edge; a nil ParentID marks a root.
// Display strings live in per-language translation rows, not on the
// category itself.
type Category struct {
	ID           uuid.UUID  `json:"id"`
	Slug         string     `json:"slug"`
	ParentID     *uuid.UUID `json:"parent_id"`
	DisplayOrder int        `json:"display_order"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Virtual fields populated by store methods. Children holds pointers
	// so the tree builder can link nodes in place without copying subtrees.
	Translations []CategoryTranslation `json:"translations,omitempty"`
	Children     []*Category           `json:"children,omitempty"`
}

// CategoryTranslation holds the display strings for one category in one
// language. Uniqueness per (category, language) is not enforced; updates
// replace the whole set.
type CategoryTranslation struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Language    string    `json:"language"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsRoot returns true if the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryStats summarizes the category collection for dashboards.
// The counts come from independent queries, so under concurrent writes
// they may not sum consistently.
type CategoryStats struct {
	Total          int `json:"total"`
	Active         int `json:"active"`
	Inactive       int `json:"inactive"`
	WithChildren   int `json:"withChildren"`
	RootCategories int `json:"rootCategories"`
}
