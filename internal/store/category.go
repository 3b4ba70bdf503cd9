// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"mercado/internal/hierarchy"
	"mercado/internal/models"
)

// CategoryStore owns the category lifecycle: CRUD, hierarchy-validated
// parent assignments, slug uniqueness, soft delete, tree materialization,
// and statistics. Every check-then-act sequence runs inside a single
// transaction, with the unique index on slug as the authoritative backstop
// for concurrent inserts.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, slug, parent_id, display_order, active, created_at, updated_at`

// categoryOrder is the stable listing order: display order first, ties
// broken by insertion time.
const categoryOrder = `ORDER BY display_order ASC, created_at ASC`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	err := scanner.Scan(
		&c.ID, &c.Slug, &c.ParentID, &c.DisplayOrder,
		&c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TranslationInput is a per-language display string submitted by a caller.
type TranslationInput struct {
	Language    string `json:"language"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateCategoryData holds the fields for a new category. Active defaults
// to true and DisplayOrder to 0 when left unset.
type CreateCategoryData struct {
	Slug         string
	ParentID     *uuid.UUID
	DisplayOrder int
	Active       *bool
	Translations []TranslationInput
}

// UpdateCategoryData holds a partial category update. Nil pointer fields
// are left untouched. ParentIDSet distinguishes "no change" from an
// explicit null parent (make root); TranslationsSet likewise distinguishes
// "no change" from replacing the set with the given rows.
type UpdateCategoryData struct {
	Slug            *string
	ParentID        *uuid.UUID
	ParentIDSet     bool
	DisplayOrder    *int
	Active          *bool
	Translations    []TranslationInput
	TranslationsSet bool
}

// QueryOptions controls filtering and shaping of category reads.
type QueryOptions struct {
	// IncludeInactive lifts the default active-only filter.
	IncludeInactive bool
	// ParentID filters by exact parent when ParentIDSet is true; a nil
	// ParentID with ParentIDSet selects root categories.
	ParentID    *uuid.UUID
	ParentIDSet bool
	// IncludeChildren attaches children to each result. ChildrenDepth
	// may be 1 (default) or 2 for the full-subtree lookup.
	IncludeChildren bool
	ChildrenDepth   int
	// Limit and Offset page through results. A zero Limit means no limit
	// for FindAll; FindPaginated applies its own default.
	Limit  int
	Offset int
}

// Pagination describes one page of a paginated listing.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// PaginatedCategories is the envelope returned by FindPaginated.
type PaginatedCategories struct {
	Data       []models.Category `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// DefaultPageLimit is the page size used when a paginated caller does not
// specify one.
const DefaultPageLimit = 10

// rowQuerier is the subset of *sql.DB and *sql.Tx the parent lookup needs.
type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// parentLookup adapts a database handle to hierarchy.ParentLookup so the
// ancestor walk reads through the same transaction as the write it guards.
type parentLookup struct {
	q rowQuerier
}

func (l parentLookup) ParentOf(id uuid.UUID) (*uuid.UUID, bool, error) {
	var parent *uuid.UUID
	err := l.q.QueryRow(`SELECT parent_id FROM categories WHERE id = $1`, id).Scan(&parent)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("parent of category %s: %w", id, err)
	}
	return parent, true, nil
}

// ParentOf exposes the parent lookup outside a transaction, for callers
// that only need a read-side hierarchy check.
func (s *CategoryStore) ParentOf(id uuid.UUID) (*uuid.UUID, bool, error) {
	return parentLookup{q: s.db}.ParentOf(id)
}

// validateParent runs the hierarchy walk on q and converts an invalid
// outcome into the domain error.
func validateParent(q rowQuerier, parentID, excludeID *uuid.UUID) error {
	res, err := hierarchy.Validate(parentLookup{q: q}, parentID, excludeID)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &InvalidHierarchyError{Reason: res.Reason, CyclePath: res.CyclePath}
	}
	return nil
}

// isSlugViolation reports whether err is the Postgres unique violation on
// the category slug index.
func isSlugViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "slug")
}

// Create inserts a new category with its translations. The parent
// assignment is validated and the slug checked for uniqueness inside the
// same transaction as the insert.
func (s *CategoryStore) Create(data CreateCategoryData) (*models.Category, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if data.ParentID != nil {
		if err := validateParent(tx, data.ParentID, nil); err != nil {
			return nil, err
		}
	}

	// Fast-path uniqueness check; the unique index catches races.
	var existing uuid.UUID
	err = tx.QueryRow(`SELECT id FROM categories WHERE slug = $1`, data.Slug).Scan(&existing)
	if err == nil {
		return nil, &DuplicateSlugError{Slug: data.Slug}
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	active := true
	if data.Active != nil {
		active = *data.Active
	}

	row := tx.QueryRow(`
		INSERT INTO categories (slug, parent_id, display_order, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		data.Slug, data.ParentID, data.DisplayOrder, active,
	)
	created, err := scanCategory(row)
	if err != nil {
		if isSlugViolation(err) {
			return nil, &DuplicateSlugError{Slug: data.Slug}
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	if err := insertTranslations(tx, created.ID, data.Translations); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isSlugViolation(err) {
			return nil, &DuplicateSlugError{Slug: data.Slug}
		}
		return nil, fmt.Errorf("commit create: %w", err)
	}

	created.Translations, err = s.translationsFor(created.ID)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update. A present parent id (explicit null
// included) re-runs the hierarchy walk with the category itself excluded;
// a changed slug is re-checked for collisions. Translations, when present,
// replace the full set. updated_at is always refreshed.
func (s *CategoryStore) Update(id uuid.UUID, data UpdateCategoryData) (*models.Category, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id)
	current, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load category: %w", err)
	}

	if data.ParentIDSet {
		if err := validateParent(tx, data.ParentID, &id); err != nil {
			return nil, err
		}
	}

	slug := current.Slug
	if data.Slug != nil {
		slug = *data.Slug
	}
	if slug != current.Slug {
		var clash uuid.UUID
		err := tx.QueryRow(`SELECT id FROM categories WHERE slug = $1 AND id <> $2`, slug, id).Scan(&clash)
		if err == nil {
			return nil, &DuplicateSlugError{Slug: slug}
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("check slug: %w", err)
		}
	}

	parentID := current.ParentID
	if data.ParentIDSet {
		parentID = data.ParentID
	}
	displayOrder := current.DisplayOrder
	if data.DisplayOrder != nil {
		displayOrder = *data.DisplayOrder
	}
	active := current.Active
	if data.Active != nil {
		active = *data.Active
	}

	row = tx.QueryRow(`
		UPDATE categories SET
			slug = $1, parent_id = $2, display_order = $3, active = $4,
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+categoryColumns,
		slug, parentID, displayOrder, active, id,
	)
	updated, err := scanCategory(row)
	if err != nil {
		if isSlugViolation(err) {
			return nil, &DuplicateSlugError{Slug: slug}
		}
		return nil, fmt.Errorf("update category: %w", err)
	}

	if data.TranslationsSet {
		if _, err := tx.Exec(`DELETE FROM category_translations WHERE category_id = $1`, id); err != nil {
			return nil, fmt.Errorf("clear translations: %w", err)
		}
		if err := insertTranslations(tx, id, data.Translations); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isSlugViolation(err) {
			return nil, &DuplicateSlugError{Slug: slug}
		}
		return nil, fmt.Errorf("commit update: %w", err)
	}

	updated.Translations, err = s.translationsFor(id)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete flips a category to inactive. It is rejected while the
// category still has active children, so a delete never strands an active
// child under an inactive parent.
func (s *CategoryStore) SoftDelete(id uuid.UUID) (*models.Category, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var activeChildren int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM categories WHERE parent_id = $1 AND active = TRUE
	`, id).Scan(&activeChildren)
	if err != nil {
		return nil, fmt.Errorf("count active children: %w", err)
	}
	if activeChildren > 0 {
		return nil, &HasActiveChildrenError{ID: id, ActiveChildren: activeChildren}
	}

	row := tx.QueryRow(`
		UPDATE categories SET active = FALSE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+categoryColumns, id)
	deleted, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("soft delete category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit soft delete: %w", err)
	}

	deleted.Translations, err = s.translationsFor(id)
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Restore flips a category back to active. The parent chain is not
// re-validated: restore changes no parent edge, so it cannot introduce a
// cycle, and it is deliberately infallible apart from the record existing.
func (s *CategoryStore) Restore(id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRow(`
		UPDATE categories SET active = TRUE, updated_at = NOW()
		WHERE id = $1
		RETURNING `+categoryColumns, id)
	restored, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("restore category: %w", err)
	}

	restored.Translations, err = s.translationsFor(id)
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// FindByID retrieves a category by id with its translations. Returns nil
// if not found. Children are attached when requested.
func (s *CategoryStore) FindByID(id uuid.UUID, opts QueryOptions) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return s.finishOne(row, opts, "find category by id")
}

// FindBySlug retrieves a category by slug with its translations. Returns
// nil if not found.
func (s *CategoryStore) FindBySlug(slug string, opts QueryOptions) (*models.Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	return s.finishOne(row, opts, "find category by slug")
}

func (s *CategoryStore) finishOne(row *sql.Row, opts QueryOptions, op string) (*models.Category, error) {
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.Translations, err = s.translationsFor(c.ID)
	if err != nil {
		return nil, err
	}

	if opts.IncludeChildren {
		cats := []models.Category{*c}
		if err := s.attachChildren(cats, opts); err != nil {
			return nil, err
		}
		c = &cats[0]
	}
	return c, nil
}

// FindAll returns categories matching the options, ordered by display
// order with creation time as tiebreak. Inactive categories are excluded
// unless requested; the parent filter matches exactly, with a nil parent
// selecting roots.
func (s *CategoryStore) FindAll(opts QueryOptions) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	where, args := categoryFilter(opts)
	if where != "" {
		query += " WHERE " + where
	}
	query += " " + categoryOrder
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadTranslations(items); err != nil {
		return nil, err
	}
	if opts.IncludeChildren {
		if err := s.attachChildren(items, opts); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// FindPaginated returns one page of categories plus pagination metadata.
// The page number is derived from offset and limit; limit defaults to
// DefaultPageLimit.
func (s *CategoryStore) FindPaginated(opts QueryOptions) (*PaginatedCategories, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	pageOpts := opts
	pageOpts.Limit = limit
	pageOpts.Offset = offset

	data, err := s.FindAll(pageOpts)
	if err != nil {
		return nil, err
	}

	total, err := s.count(opts)
	if err != nil {
		return nil, err
	}

	page := offset/limit + 1
	totalPages := (total + limit - 1) / limit

	return &PaginatedCategories{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// count returns the number of categories matching the filter options.
func (s *CategoryStore) count(opts QueryOptions) (int, error) {
	query := `SELECT COUNT(*) FROM categories`
	where, args := categoryFilter(opts)
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// categoryFilter builds the WHERE clause for the active and parent filters.
func categoryFilter(opts QueryOptions) (string, []any) {
	var conds []string
	var args []any

	if !opts.IncludeInactive {
		conds = append(conds, "active = TRUE")
	}
	if opts.ParentIDSet {
		if opts.ParentID == nil {
			conds = append(conds, "parent_id IS NULL")
		} else {
			args = append(args, *opts.ParentID)
			conds = append(conds, fmt.Sprintf("parent_id = $%d", len(args)))
		}
	}
	return strings.Join(conds, " AND "), args
}

// Tree returns the category forest: all roots with nested children
// populated transitively. The flat collection is fetched once and linked
// in memory, so the build is a linear pass regardless of depth.
func (s *CategoryStore) Tree(includeInactive bool) ([]*models.Category, error) {
	flat, err := s.FindAll(QueryOptions{IncludeInactive: includeInactive})
	if err != nil {
		return nil, err
	}
	return buildTree(flat), nil
}

// buildTree links a flat, pre-ordered category list into a forest using a
// two-pass map-then-link build: index every node by id, then append each
// node to its parent's children list, collecting parentless nodes (and
// nodes whose parent fell outside the fetched set, e.g. the inactive
// parent of an active child) as roots. Input order is preserved among
// siblings and roots, and no recursion is involved, so arbitrarily deep
// trees build in a single linear pass. Assumes the parent graph is
// acyclic, which the hierarchy validation guarantees at write time.
func buildTree(flat []models.Category) []*models.Category {
	nodes := make([]models.Category, len(flat))
	byID := make(map[uuid.UUID]*models.Category, len(flat))
	for i, c := range flat {
		c.Children = nil
		nodes[i] = c
		byID[c.ID] = &nodes[i]
	}

	var roots []*models.Category
	for i := range nodes {
		n := &nodes[i]
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}

// Stats returns dashboard counts for the category collection. The five
// counts are independent queries, not a consistent snapshot.
func (s *CategoryStore) Stats() (*models.CategoryStats, error) {
	var stats models.CategoryStats
	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.Total, `SELECT COUNT(*) FROM categories`},
		{&stats.Active, `SELECT COUNT(*) FROM categories WHERE active = TRUE`},
		{&stats.Inactive, `SELECT COUNT(*) FROM categories WHERE active = FALSE`},
		{&stats.WithChildren, `SELECT COUNT(*) FROM categories c WHERE EXISTS (SELECT 1 FROM categories ch WHERE ch.parent_id = c.id)`},
		{&stats.RootCategories, `SELECT COUNT(*) FROM categories WHERE parent_id IS NULL AND active = TRUE`},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("category stats: %w", err)
		}
	}
	return &stats, nil
}

// insertTranslations writes the translation rows for a category inside tx.
func insertTranslations(tx *sql.Tx, categoryID uuid.UUID, translations []TranslationInput) error {
	for _, tr := range translations {
		_, err := tx.Exec(`
			INSERT INTO category_translations (category_id, language, name, description)
			VALUES ($1, $2, $3, $4)
		`, categoryID, tr.Language, tr.Name, tr.Description)
		if err != nil {
			return fmt.Errorf("insert translation %s: %w", tr.Language, err)
		}
	}
	return nil
}

// translationsFor loads the ordered translation rows for one category.
func (s *CategoryStore) translationsFor(categoryID uuid.UUID) ([]models.CategoryTranslation, error) {
	rows, err := s.db.Query(`
		SELECT id, category_id, language, name, description, created_at
		FROM category_translations
		WHERE category_id = $1
		ORDER BY created_at ASC, language ASC
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}
	defer rows.Close()

	var items []models.CategoryTranslation
	for rows.Next() {
		var tr models.CategoryTranslation
		if err := rows.Scan(&tr.ID, &tr.CategoryID, &tr.Language, &tr.Name, &tr.Description, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		items = append(items, tr)
	}
	return items, rows.Err()
}

// loadTranslations populates Translations on every category in cats with
// a single query.
func (s *CategoryStore) loadTranslations(cats []models.Category) error {
	if len(cats) == 0 {
		return nil
	}

	placeholders := make([]string, len(cats))
	args := make([]any, len(cats))
	index := make(map[uuid.UUID]int, len(cats))
	for i := range cats {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = cats[i].ID
		index[cats[i].ID] = i
	}

	rows, err := s.db.Query(`
		SELECT id, category_id, language, name, description, created_at
		FROM category_translations
		WHERE category_id IN (`+strings.Join(placeholders, ", ")+`)
		ORDER BY created_at ASC, language ASC
	`, args...)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tr models.CategoryTranslation
		if err := rows.Scan(&tr.ID, &tr.CategoryID, &tr.Language, &tr.Name, &tr.Description, &tr.CreatedAt); err != nil {
			return fmt.Errorf("scan translation: %w", err)
		}
		if i, ok := index[tr.CategoryID]; ok {
			cats[i].Translations = append(cats[i].Translations, tr)
		}
	}
	return rows.Err()
}

// attachChildren populates one level of children (two when ChildrenDepth
// is 2) on every category in cats, applying the same active filter as the
// parent query.
func (s *CategoryStore) attachChildren(cats []models.Category, opts QueryOptions) error {
	depth := opts.ChildrenDepth
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}

	for i := range cats {
		children, err := s.FindAll(QueryOptions{
			IncludeInactive: opts.IncludeInactive,
			ParentID:        &cats[i].ID,
			ParentIDSet:     true,
		})
		if err != nil {
			return err
		}
		if depth == 2 {
			if err := s.attachChildren(children, QueryOptions{
				IncludeInactive: opts.IncludeInactive,
				ChildrenDepth:   1,
			}); err != nil {
				return err
			}
		}
		kids := make([]*models.Category, len(children))
		for j := range children {
			kids[j] = &children[j]
		}
		cats[i].Children = kids
	}
	return nil
}
