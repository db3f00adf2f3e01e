package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAllergens(t *testing.T) {
	assert.Equal(t, []string{"gluten"}, NormalizeAllergens(nil))
	assert.Equal(t, []string{"gluten", "caffeine"}, NormalizeAllergens([]string{"Caffeine", "GLUTEN", " caffeine "}))
	assert.Equal(t, []string{"gluten", "chocolate", "caffeine"}, NormalizeAllergens([]string{"chocolate", "", "caffeine"}))
}

func TestValidateAllergens(t *testing.T) {
	require.NoError(t, ValidateAllergens([]string{"gluten", "Caffeine", "chocolate"}))

	err := ValidateAllergens([]string{"dairy"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAllergen))

	err = ValidateAllergens([]string{"shellfish"})
	assert.ErrorIs(t, err, ErrUnknownAllergen)
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	c := Catalog()
	require.NotEmpty(t, c)
	assert.Equal(t, DefaultAllergen, c[0].ID)
	assert.True(t, c[0].Locked)

	c[0].ID = "changed"
	assert.Equal(t, DefaultAllergen, Catalog()[0].ID)
}

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, NewTextRequest("wheat flour", nil).Validate())
	assert.ErrorIs(t, NewTextRequest("   ", nil).Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, NewImageRequest(nil, "image/png", nil).Validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Request{Kind: "audio"}.Validate(), ErrInvalidRequest)

	img := NewImageRequest([]byte{0xff, 0xd8}, "", []string{"caffeine"})
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, []string{"gluten", "caffeine"}, img.Allergens)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorRateLimited, Classify(ErrRateLimited).Kind)
	assert.Equal(t, ErrorNetwork, Classify(errors.Join(ErrTransport, errors.New("dial tcp"))).Kind)
	assert.Equal(t, ErrorUnrecoverable, Classify(&ProviderStatusError{StatusCode: 503}).Kind)
	assert.Equal(t, ErrorUnrecoverable, Classify(ErrMalformedEnvelope).Kind)

	cause := &ProviderStatusError{StatusCode: 500, Err: errors.New("boom")}
	ae := Classify(cause)
	var pse *ProviderStatusError
	require.ErrorAs(t, ae, &pse)
	assert.Equal(t, 500, pse.StatusCode)
}
