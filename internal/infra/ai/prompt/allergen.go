package prompt

import (
	"fmt"
	"strings"
)

// SystemImage fixes the assistant role for label photos.
const SystemImage = "You are an expert allergen-label analyst. You read photos of food ingredient labels and report allergens clearly and accurately. Respond with one JSON object only, no markdown and no code fences."

// SystemText fixes the assistant role for typed ingredient lists.
const SystemText = "You are an expert at analyzing food ingredients for allergens. Provide clear, accurate analysis. Respond with one JSON object only, no markdown and no code fences."

// ImageUser builds the instruction sent alongside the label photo.
func ImageUser(allergens []string) string {
	return fmt.Sprintf(`Please analyze this ingredient label for the following allergens: %s.

Respond in this exact JSON format:
{
  "status": "SAFE" or "UNSAFE" or "UNCERTAIN",
  "flaggedIngredients": ["ingredient1", "ingredient2"],
  "explanation": "Brief explanation of why it's safe/unsafe",
  "extractedText": "The full ingredient list extracted from the image"
}

Be thorough but concise. If you can't read the image clearly, mark as UNCERTAIN.`, list(allergens))
}

// TextUser builds the instruction for a typed ingredient list.
func TextUser(ingredients string, allergens []string) string {
	return fmt.Sprintf(`Analyze this ingredient list for %s: %q

Respond in this exact JSON format:
{
  "status": "SAFE" or "UNSAFE" or "UNCERTAIN",
  "flaggedIngredients": ["ingredient1", "ingredient2"],
  "explanation": "Brief explanation of why it's safe/unsafe"
}

Consider hidden sources of allergens (derived ingredients such as malt, semolina or guarana) and cross-contamination warnings such as "may contain" or "processed in a facility".`, list(allergens), ingredients)
}

func list(allergens []string) string {
	return strings.Join(allergens, ", ")
}
