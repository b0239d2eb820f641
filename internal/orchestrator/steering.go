package orchestrator

import (
	"fmt"
	"math"

	"github.com/yungbote/bigocean-backend/internal/scoring"
)

// pickSteering returns the least-evidenced outlier facet, or nil when no facet
// sits more than one standard deviation below the mean confidence. Ties resolve
// to the earliest facet in catalog order.
func pickSteering(scores map[scoring.Facet]scoring.FacetScore) *SteeringTarget {
	if len(scores) < 2 {
		return nil
	}
	mean := scoring.MeanConfidence(scores)
	var (
		variance float64
		n        int
	)
	for _, f := range scoring.AllFacets() {
		s, ok := scores[f]
		if !ok {
			continue
		}
		d := s.Confidence - mean
		variance += d * d
		n++
	}
	if n < 2 {
		return nil
	}
	stddev := math.Sqrt(variance / float64(n))
	if stddev == 0 {
		return nil
	}
	cutoff := mean - stddev

	var (
		best     scoring.Facet
		bestConf = math.Inf(1)
	)
	for _, f := range scoring.AllFacets() {
		s, ok := scores[f]
		if !ok || s.Confidence >= cutoff {
			continue
		}
		if s.Confidence < bestConf {
			best, bestConf = f, s.Confidence
		}
	}
	if best == "" {
		return nil
	}
	trait, _ := scoring.TraitOf(best)
	return &SteeringTarget{Domain: trait, Facet: best}
}

func steeringHint(t *SteeringTarget) *string {
	if t == nil {
		return nil
	}
	hint := fmt.Sprintf("Steer the conversation toward %s (%s) without naming the trait.", t.Facet.Label(), t.Domain)
	return &hint
}
