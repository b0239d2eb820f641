package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProfileSparseEvidenceDegradesGracefully(t *testing.T) {
	p, err := BuildProfile([]Evidence{ev(FacetTrust, 18, 0.9, 0)}, nil)
	require.NoError(t, err)
	assert.Len(t, p.FacetScores, 1)
	assert.Len(t, p.TraitScores, 1)
	assert.Equal(t, DensityThin, p.Density)
	assert.Equal(t, OceanCode("GBANT"), p.OceanCode)
	assert.Equal(t, "GBAN", p.Code4)
	assert.Equal(t, "GBAN", p.Archetype.Code4)
}

func TestBuildProfileRichEvidence(t *testing.T) {
	var input []Evidence
	for i, f := range AllFacets() {
		input = append(input, ev(f, 20, 0.8, i))
	}
	p, err := BuildProfile(input, DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, DensityRich, p.Density)
	assert.Equal(t, OceanCode("ODEWS"), p.OceanCode)
	assert.True(t, p.Archetype.IsCurated)
	assert.Len(t, p.TraitScores, 5)
}

func TestBuildProfileRejectsMalformed(t *testing.T) {
	_, err := BuildProfile([]Evidence{ev(FacetTrust, 99, 0.9, 0)}, nil)
	require.ErrorIs(t, err, ErrInvalidEvidence)
}
