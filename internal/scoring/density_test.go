package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(n int, conf float64) []Evidence {
	out := make([]Evidence, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ev(AllFacets()[i%30], 10, conf, i))
	}
	return out
}

func TestEvidenceDensityBoundaryIsStrict(t *testing.T) {
	got, err := ComputeEvidenceDensity(repeat(8, 0.61))
	require.NoError(t, err)
	assert.Equal(t, DensityRich, got)

	got, err = ComputeEvidenceDensity(repeat(8, 0.60))
	require.NoError(t, err)
	assert.Equal(t, DensityThin, got)
}

func TestEvidenceDensityTiers(t *testing.T) {
	cases := []struct {
		strong int
		want   EvidenceDensity
	}{
		{0, DensityThin},
		{3, DensityThin},
		{4, DensityModerate},
		{7, DensityModerate},
		{8, DensityRich},
		{30, DensityRich},
	}
	for _, tc := range cases {
		input := append(repeat(tc.strong, 0.95), repeat(5, 0.3)...)
		got, err := ComputeEvidenceDensity(input)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "strong=%d", tc.strong)
	}
}

func TestEvidenceDensityRejectsMalformed(t *testing.T) {
	_, err := ComputeEvidenceDensity([]Evidence{ev(FacetTrust, 30, 0.9, 0)})
	require.ErrorIs(t, err, ErrInvalidEvidence)
}
