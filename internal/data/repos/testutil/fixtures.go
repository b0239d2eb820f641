package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/bigocean-backend/internal/domain"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, owner *uuid.UUID, status string, progress *string) *types.AssessmentSession {
	tb.Helper()
	s := &types.AssessmentSession{
		ID:                   uuid.New(),
		UserID:               owner,
		Status:               status,
		FinalizationProgress: progress,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedEvidence(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, facet string, score int, confidence float64, at time.Time) *types.FacetEvidence {
	tb.Helper()
	e := &types.FacetEvidence{
		ID:              uuid.New(),
		SessionID:       sessionID,
		FacetName:       facet,
		Score:           score,
		Confidence:      confidence,
		Quote:           "I like to plan",
		HighlightStart:  0,
		HighlightEnd:    14,
		SourceMessageID: uuid.NewString(),
		CreatedAt:       at,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed evidence: %v", err)
	}
	return e
}
