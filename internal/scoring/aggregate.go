package scoring

import (
	"math"
	"sort"
)

// RecencyDecay is the per-step weight decay applied to older evidence within a facet.
// The newest record weighs 1, the one before it RecencyDecay, then RecencyDecay^2, ...
const RecencyDecay = 0.8

// FacetScore is the recency-weighted aggregate of a facet's evidence.
type FacetScore struct {
	Score         float64 `json:"score"`
	Confidence    float64 `json:"confidence"`
	EvidenceCount int     `json:"evidence_count"`
}

// AggregateFacetScores folds the full evidence history into one score per facet.
// Facets without evidence are absent from the result.
func AggregateFacetScores(evidence []Evidence) (map[Facet]FacetScore, error) {
	if err := ValidateAll(evidence); err != nil {
		return nil, err
	}

	byFacet := map[Facet][]Evidence{}
	for _, e := range evidence {
		byFacet[e.Facet] = append(byFacet[e.Facet], e)
	}

	out := make(map[Facet]FacetScore, len(byFacet))
	for facet, records := range byFacet {
		out[facet] = foldFacet(records)
	}
	return out, nil
}

func foldFacet(records []Evidence) FacetScore {
	// Oldest first; equal timestamps keep input order so results are deterministic.
	sorted := make([]Evidence, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var (
		weightSum float64
		scoreSum  float64
		confSum   float64
	)
	n := len(sorted)
	for i, e := range sorted {
		w := recencyWeight(n - 1 - i)
		weightSum += w
		scoreSum += w * float64(e.Score)
		confSum += w * e.Confidence
	}
	if weightSum == 0 {
		return FacetScore{}
	}
	return FacetScore{
		Score:         clampRange(scoreSum/weightSum, MinFacetScore, MaxFacetScore),
		Confidence:    clampRange(confSum/weightSum, 0, 1),
		EvidenceCount: n,
	}
}

func recencyWeight(ageRank int) float64 {
	return math.Pow(RecencyDecay, float64(ageRank))
}

// clampRange only absorbs floating point drift; inputs are validated beforehand.
func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MeanConfidence averages the confidence of the facets present, 0 when none are.
// Facets are summed in catalog order so the result is bit-for-bit stable.
func MeanConfidence(scores map[Facet]FacetScore) float64 {
	var (
		sum float64
		n   int
	)
	for _, f := range allFacets {
		s, ok := scores[f]
		if !ok {
			continue
		}
		sum += s.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
