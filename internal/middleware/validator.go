package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
)

// MaxImageBytes is the upload limit for label photos
const MaxImageBytes = 5 << 20

// MaxIngredientChars bounds a manual ingredient list
const MaxIngredientChars = 10000

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]{1,128}$`)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/heic": true,
}

// ValidateCheckID validates check ID format
func ValidateCheckID(id string) error {
	if id == "" {
		return fmt.Errorf("check ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid check ID format")
	}
	return nil
}

// ValidateUserID validates user IDs configured for bearer tokens
func ValidateUserID(user string) error {
	if !userIDPattern.MatchString(user) {
		return fmt.Errorf("invalid user ID %q (alphanumeric, dot, at, dash, underscore only, max 128 chars)", user)
	}
	return nil
}

// ValidateImageType checks the detected content type of an upload
func ValidateImageType(mimeType string) error {
	if !imageTypes[strings.ToLower(mimeType)] {
		return fmt.Errorf("unsupported image type %q", mimeType)
	}
	return nil
}

// DetectImageType sniffs the upload, falling back to the declared type when
// sniffing cannot tell (HEIC is not recognised by the sniffer).
func DetectImageType(data []byte, declared string) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "image/heic" {
		return declared
	}
	return sniffed
}

// ParseAllergens reads an allergen list from a form field, either a JSON
// array or a comma-separated string, and validates it against the catalog.
func ParseAllergens(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	var list []string
	switch {
	case raw == "":
	case strings.HasPrefix(raw, "["):
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("%w: allergens must be a JSON array of ids", analysis.ErrUnknownAllergen)
		}
	default:
		list = strings.Split(raw, ",")
	}
	if err := analysis.ValidateAllergens(list); err != nil {
		return nil, err
	}
	return list, nil
}

// ValidateIngredients checks a manual ingredient list
func ValidateIngredients(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("please enter some ingredients to analyze")
	}
	if len([]rune(text)) > MaxIngredientChars {
		return fmt.Errorf("ingredient list is too long (max %d characters)", MaxIngredientChars)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
