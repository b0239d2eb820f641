package scoring

import "math"

const MaxTraitScore = MaxFacetScore * FacetsPerTrait

// TraitScore sums the present facet scores; confidence is the weakest facet's.
type TraitScore struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	FacetCount int     `json:"facet_count"`
}

// DeriveTraitScores omits traits with no contributing facets.
func DeriveTraitScores(facetScores map[Facet]FacetScore) map[Trait]TraitScore {
	out := map[Trait]TraitScore{}
	for _, t := range Traits {
		var (
			sum     float64
			minConf = math.Inf(1)
			count   int
		)
		for _, f := range traitFacets[t] {
			fs, ok := facetScores[f]
			if !ok {
				continue
			}
			sum += fs.Score
			if fs.Confidence < minConf {
				minConf = fs.Confidence
			}
			count++
		}
		if count == 0 {
			continue
		}
		out[t] = TraitScore{Score: sum, Confidence: minConf, FacetCount: count}
	}
	return out
}
