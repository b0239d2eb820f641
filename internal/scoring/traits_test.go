package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraitConfidenceIsWeakestFacet(t *testing.T) {
	facets := map[Facet]FacetScore{}
	for _, f := range FacetsOf(TraitConscientiousness) {
		facets[f] = FacetScore{Score: 15, Confidence: 0.9}
	}
	facets[FacetCautiousness] = FacetScore{Score: 15, Confidence: 0.2}

	traits := DeriveTraitScores(facets)
	got, ok := traits[TraitConscientiousness]
	require.True(t, ok)
	assert.Equal(t, 0.2, got.Confidence)
	assert.InDelta(t, 90, got.Score, 1e-9)
	assert.Equal(t, 6, got.FacetCount)
}

func TestTraitScoreSumsPresentFacetsOnly(t *testing.T) {
	traits := DeriveTraitScores(map[Facet]FacetScore{
		FacetTrust:   {Score: 10, Confidence: 0.5},
		FacetModesty: {Score: 6, Confidence: 0.7},
		FacetAnxiety: {Score: 20, Confidence: 0.4},
	})
	require.Len(t, traits, 2)
	assert.InDelta(t, 16, traits[TraitAgreeableness].Score, 1e-9)
	assert.Equal(t, 0.5, traits[TraitAgreeableness].Confidence)
	assert.Equal(t, 2, traits[TraitAgreeableness].FacetCount)
	assert.NotContains(t, traits, TraitOpenness)
}

func TestDeriveTraitScoresEmpty(t *testing.T) {
	assert.Empty(t, DeriveTraitScores(nil))
}
