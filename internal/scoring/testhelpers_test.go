package scoring

import (
	"fmt"
	"time"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func ev(f Facet, score int, conf float64, minute int) Evidence {
	return Evidence{
		Facet:           f,
		Score:           score,
		Confidence:      conf,
		Quote:           "quote",
		Highlight:       HighlightRange{Start: 0, End: 5},
		SourceMessageID: fmt.Sprintf("msg-%d", minute),
		CreatedAt:       baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func uniform(score float64, conf float64) map[Facet]FacetScore {
	out := map[Facet]FacetScore{}
	for _, f := range AllFacets() {
		out[f] = FacetScore{Score: score, Confidence: conf, EvidenceCount: 1}
	}
	return out
}
