package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/platform/openai"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type evidenceExtractor struct {
	log    *logger.Logger
	client openai.Client
}

func NewEvidenceExtractor(log *logger.Logger, client openai.Client) orchestrator.EvidenceExtractor {
	return &evidenceExtractor{log: log.With("service", "EvidenceExtractor"), client: client}
}

type extractedEvidence struct {
	Facet           string  `json:"facet"`
	Score           int     `json:"score"`
	Confidence      float64 `json:"confidence"`
	Quote           string  `json:"quote"`
	HighlightStart  int     `json:"highlight_start"`
	HighlightEnd    int     `json:"highlight_end"`
	SourceMessageID string  `json:"source_message_id"`
}

type extractionDoc struct {
	Evidence []extractedEvidence `json:"evidence"`
}

func evidenceSchema() map[string]any {
	facets := make([]any, 0, len(scoring.AllFacets()))
	for _, f := range scoring.AllFacets() {
		facets = append(facets, string(f))
	}
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required": []any{
			"facet", "score", "confidence", "quote",
			"highlight_start", "highlight_end", "source_message_id",
		},
		"properties": map[string]any{
			"facet":             map[string]any{"type": "string", "enum": facets},
			"score":             map[string]any{"type": "integer"},
			"confidence":        map[string]any{"type": "number"},
			"quote":             map[string]any{"type": "string"},
			"highlight_start":   map[string]any{"type": "integer"},
			"highlight_end":     map[string]any{"type": "integer"},
			"source_message_id": map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"evidence"},
		"properties": map[string]any{
			"evidence": map[string]any{"type": "array", "items": item},
		},
	}
}

func (e *evidenceExtractor) Analyze(ctx context.Context, sessionID uuid.UUID, batch []orchestrator.Message) ([]scoring.Evidence, error) {
	transcript, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}
	raw, usage, err := e.client.GenerateJSON(ctx, extractionInstructions, string(transcript), "facet_evidence", evidenceSchema())
	if err != nil {
		return nil, err
	}
	var doc extractionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}
	out := make([]scoring.Evidence, 0, len(doc.Evidence))
	for _, x := range doc.Evidence {
		facet, perr := scoring.ParseFacet(x.Facet)
		if perr != nil {
			// left unnormalised so validation reports the contract violation
			facet = scoring.Facet(x.Facet)
		}
		out = append(out, scoring.Evidence{
			Facet:           facet,
			Score:           x.Score,
			Confidence:      x.Confidence,
			Quote:           x.Quote,
			Highlight:       scoring.HighlightRange{Start: x.HighlightStart, End: x.HighlightEnd},
			SourceMessageID: x.SourceMessageID,
		})
	}
	e.log.Debug("evidence extracted",
		"session_id", sessionID,
		"count", len(out),
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
	)
	return out, nil
}
