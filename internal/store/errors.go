// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrCategoryNotFound is returned by write paths that require an existing
// category. Read paths return nil instead of an error for missing records.
var ErrCategoryNotFound = errors.New("category not found")

// DuplicateSlugError reports a slug collision. It is produced both by the
// fast-path existence check and by the database unique constraint, so
// concurrent inserts racing past the check still surface the same error.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("category with slug '%s' already exists", e.Slug)
}

// InvalidHierarchyError reports a rejected parent assignment. CyclePath
// holds the ancestor ids walked up to the offending node, when one exists.
type InvalidHierarchyError struct {
	Reason    string
	CyclePath []uuid.UUID
}

func (e *InvalidHierarchyError) Error() string {
	return "invalid hierarchy: " + e.Reason
}

// HasActiveChildrenError reports a soft delete rejected because the
// category still has active children.
type HasActiveChildrenError struct {
	ID             uuid.UUID
	ActiveChildren int
}

func (e *HasActiveChildrenError) Error() string {
	return fmt.Sprintf("cannot delete category %s with %d active children; deactivate children first", e.ID, e.ActiveChildren)
}
