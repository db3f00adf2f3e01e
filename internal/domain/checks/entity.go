package checks

import "time"

// CheckType records how the ingredients reached the analyzer
type CheckType string

const (
	CheckTypeImage  CheckType = "image"
	CheckTypeManual CheckType = "manual"
)

// ImagePlaceholderText is stored when an image check returned no extracted text.
const ImagePlaceholderText = "Image analysis"

// Result is the persisted projection of an analysis result
type Result struct {
	Safe               bool     `json:"safe"`
	FlaggedIngredients []string `json:"flaggedIngredients"`
	Explanation        string   `json:"explanation"`
}

// Record is one persisted check, owned by UserID
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	CheckType      CheckType `json:"checkType"`
	IngredientText string    `json:"ingredientText"`
	Allergens      []string  `json:"allergens"`
	Result         Result    `json:"results"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	IsFavorite     bool      `json:"isFavorite"`
}
