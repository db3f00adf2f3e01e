package analysis

import (
	"encoding/json"
	"strings"
)

// FallbackExplanation is shown when the model output could not be parsed.
const FallbackExplanation = "Unable to parse the analysis. Please try again."

type completion struct {
	Status             string   `json:"status"`
	FlaggedIngredients []string `json:"flaggedIngredients"`
	Explanation        string   `json:"explanation"`
	ExtractedText      *string  `json:"extractedText"`
}

// Normalize coerces a raw completion into a Result. The bool is false when
// raw was not a JSON object with a recognized status; the Result is then the
// UNCERTAIN fallback, carrying raw as ExtractedText for image checks.
// Unparseable output is an expected outcome and never an error.
func Normalize(raw string, kind Kind) (Result, bool) {
	var c completion
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &c); err != nil {
		return fallback(raw, kind), false
	}
	status, ok := ParseStatus(c.Status)
	if !ok {
		return fallback(raw, kind), false
	}

	res := Result{
		Status:             status,
		FlaggedIngredients: c.FlaggedIngredients,
		Explanation:        c.Explanation,
	}
	if res.FlaggedIngredients == nil {
		res.FlaggedIngredients = []string{}
	}
	if kind == KindImage {
		res.ExtractedText = c.ExtractedText
	}
	return res, true
}

func fallback(raw string, kind Kind) Result {
	res := Result{
		Status:             StatusUncertain,
		FlaggedIngredients: []string{},
		Explanation:        FallbackExplanation,
	}
	if kind == KindImage {
		text := raw
		res.ExtractedText = &text
	}
	return res
}
