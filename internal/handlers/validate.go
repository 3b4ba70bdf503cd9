package handlers

import (
	"strings"
	"unicode/utf8"

	"mercado/internal/store"
)

// Validation limits for category fields.
const (
	maxSlugLen        = 140
	minLanguageLen    = 2
	maxLanguageLen    = 5
	maxNameLen        = 120
	maxDescriptionLen = 500
	maxDisplayOrder   = 9999
)

// validateSlug checks an explicit or generated slug. Empty is allowed
// here because creation generates one from the first translation name.
func validateSlug(slug string) string {
	if utf8.RuneCountInString(slug) > maxSlugLen {
		return "Slug is too long (max 140 characters)."
	}
	return ""
}

// validateDisplayOrder bounds the sibling sort position.
func validateDisplayOrder(n int) string {
	if n < 0 {
		return "Display order must not be negative."
	}
	if n > maxDisplayOrder {
		return "Display order is too large (max 9999)."
	}
	return ""
}

// validateTranslations checks a translation set and returns the first
// error found. requireOne enforces the creation rule that a category
// must carry at least one translation.
func validateTranslations(translations []store.TranslationInput, requireOne bool) string {
	if requireOne && len(translations) == 0 {
		return "At least one translation is required."
	}

	seen := make(map[string]bool, len(translations))
	for _, tr := range translations {
		lang := strings.TrimSpace(tr.Language)
		if n := utf8.RuneCountInString(lang); n < minLanguageLen || n > maxLanguageLen {
			return "Translation language must be 2-5 characters."
		}
		if seen[lang] {
			return "Duplicate translation language: " + lang + "."
		}
		seen[lang] = true

		name := strings.TrimSpace(tr.Name)
		if name == "" {
			return "Translation name is required."
		}
		if utf8.RuneCountInString(name) > maxNameLen {
			return "Translation name is too long (max 120 characters)."
		}
		if utf8.RuneCountInString(tr.Description) > maxDescriptionLen {
			return "Translation description is too long (max 500 characters)."
		}
	}
	return ""
}
