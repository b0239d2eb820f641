package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, TierLow, TierFor(0))
	assert.Equal(t, TierLow, TierFor(40))
	assert.Equal(t, TierMid, TierFor(41))
	assert.Equal(t, TierMid, TierFor(80))
	assert.Equal(t, TierHigh, TierFor(81))
	assert.Equal(t, TierHigh, TierFor(120))
}

func TestGenerateOceanCodeExtremes(t *testing.T) {
	code, err := GenerateOceanCode(uniform(20, 0.9))
	require.NoError(t, err)
	assert.Equal(t, OceanCode("ODEWS"), code)
	assert.Equal(t, "ODEW", code.Code4())

	code, err = GenerateOceanCode(uniform(0, 0.9))
	require.NoError(t, err)
	assert.Equal(t, OceanCode("PFICR"), code)
}

func TestGenerateOceanCodeMissingTraitsAreMid(t *testing.T) {
	code, err := GenerateOceanCode(nil)
	require.NoError(t, err)
	assert.Equal(t, OceanCode("GBANT"), code)

	code, err = GenerateOceanCode(map[Facet]FacetScore{
		FacetImagination: {Score: 20, Confidence: 0.5},
		FacetIntellect:   {Score: 20, Confidence: 0.5},
		FacetLiberalism:  {Score: 1, Confidence: 0.5},
	})
	require.NoError(t, err)
	// openness = 41 -> mid
	assert.Equal(t, byte('G'), code[0])
}

func TestGenerateOceanCodeTraitLetterBoundaries(t *testing.T) {
	openness := FacetsOf(TraitOpenness)
	withSum := func(values ...float64) map[Facet]FacetScore {
		out := map[Facet]FacetScore{}
		for i, v := range values {
			out[openness[i]] = FacetScore{Score: v, Confidence: 0.5}
		}
		return out
	}
	cases := []struct {
		scores map[Facet]FacetScore
		want   byte
	}{
		{withSum(20, 20), 'P'},
		{withSum(20, 20, 1), 'G'},
		{withSum(20, 20, 20, 20), 'G'},
		{withSum(20, 20, 20, 20, 1), 'O'},
	}
	for _, tc := range cases {
		code, err := GenerateOceanCode(tc.scores)
		require.NoError(t, err)
		assert.Equal(t, tc.want, code[0])
	}
}

func TestGenerateOceanCodeIsDeterministic(t *testing.T) {
	scores := uniform(11, 0.4)
	scores[FacetAnxiety] = FacetScore{Score: 19, Confidence: 0.8}
	first, err := GenerateOceanCode(scores)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := GenerateOceanCode(scores)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGenerateOceanCodeRejectsOutOfRange(t *testing.T) {
	_, err := GenerateOceanCode(map[Facet]FacetScore{FacetTrust: {Score: 25, Confidence: 0.5}})
	require.ErrorIs(t, err, ErrInvalidEvidence)

	_, err = GenerateOceanCode(map[Facet]FacetScore{FacetTrust: {Score: 5, Confidence: -0.1}})
	require.ErrorIs(t, err, ErrInvalidEvidence)
}

func TestValidateCode4(t *testing.T) {
	require.NoError(t, ValidateCode4("GBAN"))
	require.Error(t, ValidateCode4("GBA"))
	require.Error(t, ValidateCode4("XBAN"))
	// 'O' is an openness letter only.
	require.Error(t, ValidateCode4("GOAN"))
}
