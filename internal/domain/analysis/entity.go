package analysis

import (
	"fmt"
	"strings"
)

// Kind discriminates the two input variants of a Request
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Status enum
type Status string

const (
	StatusSafe      Status = "SAFE"
	StatusUnsafe    Status = "UNSAFE"
	StatusUncertain Status = "UNCERTAIN"
)

// ParseStatus matches s case-insensitively against the three verdicts.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSafe:
		return StatusSafe, true
	case StatusUnsafe:
		return StatusUnsafe, true
	case StatusUncertain:
		return StatusUncertain, true
	}
	return "", false
}

// Request is one user-initiated analysis, consumed once.
// Image and MimeType are set for KindImage, Content for KindText.
type Request struct {
	Kind      Kind
	Image     []byte
	MimeType  string
	Content   string
	Allergens []string
}

// NewImageRequest builds an image request. The caller is expected to have
// enforced the upload size limit already.
func NewImageRequest(image []byte, mimeType string, allergens []string) Request {
	if strings.TrimSpace(mimeType) == "" {
		mimeType = "image/jpeg"
	}
	return Request{
		Kind:      KindImage,
		Image:     image,
		MimeType:  mimeType,
		Allergens: NormalizeAllergens(allergens),
	}
}

// NewTextRequest builds a manual ingredient-list request.
func NewTextRequest(content string, allergens []string) Request {
	return Request{
		Kind:      KindText,
		Content:   strings.TrimSpace(content),
		Allergens: NormalizeAllergens(allergens),
	}
}

// Validate reports whether the request carries the payload its kind needs.
func (r Request) Validate() error {
	switch r.Kind {
	case KindImage:
		if len(r.Image) == 0 {
			return fmt.Errorf("%w: image is empty", ErrInvalidRequest)
		}
	case KindText:
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("%w: please enter some ingredients to analyze", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, r.Kind)
	}
	if len(r.Allergens) == 0 {
		return fmt.Errorf("%w: allergen list is empty", ErrInvalidRequest)
	}
	return nil
}

// Result is the normalized verdict. Status is always one of the three values.
type Result struct {
	Status             Status   `json:"status"`
	FlaggedIngredients []string `json:"flaggedIngredients"`
	Explanation        string   `json:"explanation"`
	ExtractedText      *string  `json:"extractedText,omitempty"`
}
