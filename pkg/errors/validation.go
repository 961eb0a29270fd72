package errors

import (
	"strings"
	"unicode"
)

const (
	maxQueryLength   = 512
	maxPaperIDLength = 256
)

// ValidateQuery validates a search query before it is sent to the search API.
//
// The rules are intentionally conservative:
//   - No empty or whitespace-only queries
//   - No control characters (tabs and newlines included)
//   - Maximum length of 512 bytes
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return New(ErrCodeInvalidQuery, "query cannot be empty")
	}

	if len(query) > maxQueryLength {
		return New(ErrCodeInvalidQuery, "query too long (max %d characters)", maxQueryLength)
	}

	for _, r := range query {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidQuery, "query contains invalid control characters")
		}
	}

	return nil
}

// ValidatePaperID validates a single paper identifier used in status lookups
// and selection requests.
//
// Paper IDs come from arXiv, DOIs, and internal keys, so slashes and dots are
// allowed. Control characters, whitespace, and null bytes are not.
func ValidatePaperID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidPaperID, "paper id cannot be empty")
	}

	if len(id) > maxPaperIDLength {
		return New(ErrCodeInvalidPaperID, "paper id too long (max %d characters)", maxPaperIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidPaperID, "paper id contains invalid characters: %q", id)
		}
	}

	return nil
}

// ValidatePaperIDs validates every id and rejects an empty list.
func ValidatePaperIDs(ids []string) error {
	if len(ids) == 0 {
		return New(ErrCodeInvalidPaperID, "at least one paper id is required")
	}
	for _, id := range ids {
		if err := ValidatePaperID(id); err != nil {
			return err
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
