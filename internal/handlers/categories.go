// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mercado/internal/slug"
	"mercado/internal/store"
)

// Categories groups the category CRUD and hierarchy handlers.
type Categories struct {
	categoryStore *store.CategoryStore
}

// NewCategories creates a new Categories handler group.
func NewCategories(categoryStore *store.CategoryStore) *Categories {
	return &Categories{categoryStore: categoryStore}
}

// createCategoryRequest is the POST /api/categories payload. Slug is
// optional; when omitted it is generated from the first translation name.
type createCategoryRequest struct {
	Slug         string                   `json:"slug"`
	ParentID     *uuid.UUID               `json:"parentId"`
	DisplayOrder int                      `json:"displayOrder"`
	Active       *bool                    `json:"active"`
	Translations []store.TranslationInput `json:"translations"`
}

// Create handles POST /api/categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if msg := validateTranslations(req.Translations, true); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateDisplayOrder(req.DisplayOrder); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s := strings.TrimSpace(req.Slug)
	if s == "" {
		s = slug.Generate(req.Translations[0].Name)
	} else {
		s = slug.Generate(s)
	}
	if s == "" {
		writeError(w, http.StatusBadRequest, "Slug could not be derived from the translation name.")
		return
	}
	if msg := validateSlug(s); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	category, err := h.categoryStore.Create(store.CreateCategoryData{
		Slug:         s,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active,
		Translations: req.Translations,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

// List handles GET /api/categories. With limit or offset present the
// response is a paginated envelope; otherwise a plain array.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	opts, paginated, errMsg := listOptions(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	if paginated {
		page, err := h.categoryStore.FindPaginated(opts)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	categories, err := h.categoryStore.FindAll(opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Hierarchy handles GET /api/categories/hierarchy, returning the full
// category tree with roots at the top level.
func (h *Categories) Hierarchy(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	tree, err := h.categoryStore.Tree(includeInactive)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Stats handles GET /api/categories/stats.
func (h *Categories) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.categoryStore.Stats()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Get handles GET /api/categories/{id}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	opts, _, errMsg := listOptions(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	opts.IncludeInactive = true // single lookups return soft-deleted rows too

	category, err := h.categoryStore.FindByID(id, opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if category == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// GetBySlug handles GET /api/categories/slug/{slug}.
func (h *Categories) GetBySlug(w http.ResponseWriter, r *http.Request) {
	opts, _, errMsg := listOptions(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	opts.IncludeInactive = true

	category, err := h.categoryStore.FindBySlug(chi.URLParam(r, "slug"), opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if category == nil {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Update handles PATCH /api/categories/{id}. The raw body is inspected
// for key presence so that "parentId": null (move to root) and a missing
// parentId (leave unchanged) are distinguishable, and likewise for
// translations.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	data, errMsg := buildUpdate(raw)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	category, err := h.categoryStore.Update(id, data)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id} (soft delete).
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	if _, err := h.categoryStore.SoftDelete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Restore handles POST /api/categories/{id}/restore.
func (h *Categories) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	category, err := h.categoryStore.Restore(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// buildUpdate converts a raw PATCH body into UpdateCategoryData,
// validating each present field.
func buildUpdate(raw map[string]json.RawMessage) (store.UpdateCategoryData, string) {
	var data store.UpdateCategoryData

	if v, ok := raw["slug"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return data, "slug must be a string"
		}
		s = slug.Generate(s)
		if s == "" {
			return data, "Slug must contain at least one alphanumeric character."
		}
		if msg := validateSlug(s); msg != "" {
			return data, msg
		}
		data.Slug = &s
	}

	if v, ok := raw["parentId"]; ok {
		data.ParentIDSet = true
		if string(v) != "null" {
			var id uuid.UUID
			if err := json.Unmarshal(v, &id); err != nil {
				return data, "parentId must be a UUID or null"
			}
			data.ParentID = &id
		}
	}

	if v, ok := raw["displayOrder"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return data, "displayOrder must be an integer"
		}
		if msg := validateDisplayOrder(n); msg != "" {
			return data, msg
		}
		data.DisplayOrder = &n
	}

	if v, ok := raw["active"]; ok {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return data, "active must be a boolean"
		}
		data.Active = &b
	}

	if v, ok := raw["translations"]; ok {
		var translations []store.TranslationInput
		if err := json.Unmarshal(v, &translations); err != nil {
			return data, "translations must be an array"
		}
		// An empty array is a valid replacement: it clears the set.
		if msg := validateTranslations(translations, false); msg != "" {
			return data, msg
		}
		data.Translations = translations
		data.TranslationsSet = true
	}

	return data, ""
}

// listOptions parses the shared read query parameters. The second return
// reports whether the caller asked for pagination.
func listOptions(r *http.Request) (store.QueryOptions, bool, string) {
	q := r.URL.Query()
	var opts store.QueryOptions

	opts.IncludeInactive = q.Get("includeInactive") == "true"
	opts.IncludeChildren = q.Get("includeChildren") == "true"

	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 2 {
			return opts, false, "depth must be 1 or 2"
		}
		opts.ChildrenDepth = n
	}

	if v := q.Get("parentId"); v != "" {
		opts.ParentIDSet = true
		if v != "null" {
			id, err := uuid.Parse(v)
			if err != nil {
				return opts, false, "parentId must be a UUID or null"
			}
			opts.ParentID = &id
		}
	}

	paginated := false
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, false, "limit must be a positive integer"
		}
		opts.Limit = n
		paginated = true
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, false, "offset must be a non-negative integer"
		}
		opts.Offset = n
		paginated = true
	}

	return opts, paginated, ""
}
