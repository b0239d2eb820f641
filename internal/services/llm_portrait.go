package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/platform/openai"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type portraitWriter struct {
	log    *logger.Logger
	client openai.Client
}

func NewPortraitWriter(log *logger.Logger, client openai.Client) finalization.PortraitWriter {
	return &portraitWriter{log: log.With("service", "PortraitWriter"), client: client}
}

type portraitBrief struct {
	OceanCode   string                   `json:"ocean_code"`
	Archetype   string                   `json:"archetype"`
	Description string                   `json:"archetype_description"`
	Density     scoring.EvidenceDensity  `json:"evidence_density"`
	Traits      map[scoring.Trait]string `json:"traits"`
}

func (w *portraitWriter) Write(ctx context.Context, sessionID uuid.UUID, profile *scoring.Profile) (string, error) {
	brief := portraitBrief{
		OceanCode:   string(profile.OceanCode),
		Archetype:   profile.Archetype.Name,
		Description: profile.Archetype.Description,
		Density:     profile.Density,
		Traits:      map[scoring.Trait]string{},
	}
	for trait, ts := range profile.TraitScores {
		brief.Traits[trait] = tierName(scoring.TierFor(ts.Score))
	}
	raw, err := json.Marshal(brief)
	if err != nil {
		return "", err
	}
	out, err := w.client.GenerateText(ctx, portraitInstructions, []openai.Turn{{Role: "user", Content: string(raw)}})
	if err != nil {
		return "", err
	}
	w.log.Debug("portrait written", "session_id", sessionID, "output_tokens", out.Usage.OutputTokens)
	return strings.TrimSpace(out.Text), nil
}

func tierName(t scoring.Tier) string {
	switch t {
	case scoring.TierLow:
		return "low"
	case scoring.TierHigh:
		return "high"
	}
	return "mid"
}
