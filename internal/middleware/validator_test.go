package middleware

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/nog/internal/domain/analysis"
)

func TestValidateCheckID(t *testing.T) {
	assert.NoError(t, ValidateCheckID(uuid.NewString()))
	assert.Error(t, ValidateCheckID(""))
	assert.Error(t, ValidateCheckID("../etc/passwd"))
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("user_1@example.com"))
	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("bad user"))
}

func TestParseAllergens(t *testing.T) {
	list, err := ParseAllergens(`["caffeine","chocolate"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"caffeine", "chocolate"}, list)

	list, err = ParseAllergens("gluten, Caffeine")
	require.NoError(t, err)
	assert.Equal(t, []string{"gluten", " Caffeine"}, list)

	list, err = ParseAllergens("  ")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = ParseAllergens("dairy")
	assert.ErrorIs(t, err, analysis.ErrUnknownAllergen)

	_, err = ParseAllergens(`["gluten"`)
	assert.ErrorIs(t, err, analysis.ErrUnknownAllergen)
}

func TestImageType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", DetectImageType(png, "application/octet-stream"))
	assert.Equal(t, "image/heic", DetectImageType([]byte("....ftypheic"), "image/HEIC"))
	assert.Equal(t, "text/plain; charset=utf-8", DetectImageType([]byte("hello"), "image/png"))

	assert.NoError(t, ValidateImageType("image/png"))
	assert.NoError(t, ValidateImageType("image/heic"))
	assert.Error(t, ValidateImageType("text/plain; charset=utf-8"))
}

func TestValidateIngredients(t *testing.T) {
	assert.NoError(t, ValidateIngredients("rice, salt"))
	assert.Error(t, ValidateIngredients("   "))
	assert.Error(t, ValidateIngredients(strings.Repeat("a", MaxIngredientChars+1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "wheat\tflour\nsalt", SanitizeString("  wheat\x00\tflour\nsalt\x07 "))
}
