// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hierarchy validates category parent assignments. The category
// tree must stay a forest: no self-parenting, no cycles, and every parent
// edge must point at an existing node. Validation runs before any write
// that assigns or changes a parent.
package hierarchy

import (
	"fmt"

	"github.com/google/uuid"
)

// ParentLookup resolves a category's own parent id. The store implements
// it against the database; tests implement it with a map. found is false
// when no category with the given id exists.
type ParentLookup interface {
	ParentOf(id uuid.UUID) (parentID *uuid.UUID, found bool, err error)
}

// Result is the outcome of a hierarchy validation. When Valid is false,
// Reason holds a caller-facing message and CyclePath the ids walked up to
// and including the offending node, when one exists.
type Result struct {
	Valid     bool
	Reason    string
	CyclePath []uuid.UUID
}

// Validate decides whether assigning parentID as the parent of the category
// identified by excludeID would keep the tree a forest. excludeID is nil
// when validating a brand-new category that has no id yet. A nil parentID
// (make root) is always valid.
//
// The check walks the ancestor chain iteratively from parentID upward,
// keeping a visited set so that pre-existing cycles in stored data
// terminate the walk instead of looping forever. A parent reference to a
// missing node is reported as invalid rather than treated as a root: the
// node may have been removed by a concurrent writer mid-walk.
func Validate(lookup ParentLookup, parentID, excludeID *uuid.UUID) (Result, error) {
	if parentID == nil {
		return Result{Valid: true}, nil
	}

	if excludeID != nil && *parentID == *excludeID {
		return Result{
			Valid:     false,
			Reason:    "category cannot be its own parent",
			CyclePath: []uuid.UUID{*parentID},
		}, nil
	}

	visited := make(map[uuid.UUID]bool)
	var path []uuid.UUID

	current := parentID
	for current != nil {
		id := *current

		if visited[id] {
			return Result{
				Valid:     false,
				Reason:    "circular reference detected in category hierarchy",
				CyclePath: append(path, id),
			}, nil
		}

		if excludeID != nil && id == *excludeID {
			return Result{
				Valid:     false,
				Reason:    "category cannot be a descendant of itself",
				CyclePath: append(path, id),
			}, nil
		}

		visited[id] = true
		path = append(path, id)

		next, found, err := lookup.ParentOf(id)
		if err != nil {
			return Result{}, fmt.Errorf("look up parent of %s: %w", id, err)
		}
		if !found {
			return Result{
				Valid:  false,
				Reason: fmt.Sprintf("parent category with id '%s' not found", id),
			}, nil
		}

		current = next
	}

	return Result{Valid: true}, nil
}
