// Package stub is a deterministic, no-network requester intended for local
// development and CI. It produces the same JSON a model would and runs it
// through the normal normalizer.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
)

// detectors per allergen id; a match flags the ingredient it occurs in
var detectors = map[string][]*regexp.Regexp{
	"gluten": {
		regexp.MustCompile(`(?i)\b(wheat|barley|rye|malt|spelt|semolina|durum|farro|kamut|triticale|seitan|bulgur|couscous)\b`),
		regexp.MustCompile(`(?i)\bgluten\b`),
	},
	"caffeine": {
		regexp.MustCompile(`(?i)\b(coffee|espresso|caffeine|guarana|yerba mate|mate|cola|kola|matcha)\b`),
		regexp.MustCompile(`(?i)\b(black|green|white|oolong) tea\b`),
	},
	"chocolate": {
		regexp.MustCompile(`(?i)\b(chocolate|cocoa|cacao)\b`),
	},
}

var mayContain = regexp.MustCompile(`(?i)(may contain|traces of|processed in a facility|same facility)`)

type output struct {
	Status             analysis.Status `json:"status"`
	FlaggedIngredients []string        `json:"flaggedIngredients"`
	Explanation        string          `json:"explanation"`
}

// Requester implements analysis.Requester for both kinds.
type Requester struct{}

func NewRequester() *Requester { return &Requester{} }

func (r *Requester) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Result{}, err
	}
	raw := Complete(req)
	res, _ := analysis.Normalize(raw, req.Kind)
	return res, nil
}

// Complete returns the JSON completion for req.
func Complete(req analysis.Request) string {
	out := output{FlaggedIngredients: []string{}}

	if req.Kind == analysis.KindImage {
		out.Status = analysis.StatusUncertain
		out.Explanation = "Offline mode cannot read label photos. Please type the ingredients instead."
		return marshal(out)
	}

	found := map[string]bool{}
	hits := []string{}
	for _, ingredient := range splitIngredients(req.Content) {
		for _, allergen := range req.Allergens {
			if !matches(allergen, ingredient) {
				continue
			}
			if !contains(out.FlaggedIngredients, ingredient) {
				out.FlaggedIngredients = append(out.FlaggedIngredients, ingredient)
			}
			if !found[allergen] {
				found[allergen] = true
				hits = append(hits, allergen)
			}
		}
	}

	switch {
	case len(hits) > 0:
		out.Status = analysis.StatusUnsafe
		out.Explanation = fmt.Sprintf("Contains %s.", strings.Join(hits, " and "))
	case mayContain.MatchString(req.Content):
		out.Status = analysis.StatusUncertain
		out.Explanation = "The label carries a cross-contamination warning."
	default:
		out.Status = analysis.StatusSafe
		out.Explanation = fmt.Sprintf("No %s sources found.", strings.Join(req.Allergens, ", "))
	}
	return marshal(out)
}

func matches(allergen, ingredient string) bool {
	for _, re := range detectors[allergen] {
		if re.MatchString(ingredient) {
			return true
		}
	}
	return false
}

func splitIngredients(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.Trim(p, " .()[]"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func marshal(o output) string {
	b, err := json.Marshal(o)
	if err != nil {
		// Fallback minimal JSON that still satisfies the schema
		return `{"status":"UNCERTAIN","flaggedIngredients":[],"explanation":"analysis error"}`
	}
	return string(b)
}
