package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/data/repos"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type evidenceStore struct {
	db       *gorm.DB
	sessions repos.SessionRepo
	repo     repos.EvidenceRepo
}

// NewEvidenceStore exposes the evidence table as the orchestrator's EvidenceStore.
func NewEvidenceStore(db *gorm.DB, sessions repos.SessionRepo, repo repos.EvidenceRepo) orchestrator.EvidenceStore {
	return &evidenceStore{db: db, sessions: sessions, repo: repo}
}

func (s *evidenceStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]scoring.Evidence, error) {
	rows, err := s.repo.ListBySession(dbctx.New(ctx), sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]scoring.Evidence, 0, len(rows))
	for _, r := range rows {
		out = append(out, evidenceFromRow(r))
	}
	return out, nil
}

// AppendBatch commits cadence batches only while the session is active. The
// status check and the insert share a transaction with the session row held,
// so a batch either lands before the move to finalizing or not at all.
func (s *evidenceStore) AppendBatch(ctx context.Context, b orchestrator.EvidenceBatch) error {
	rows := make([]*types.FacetEvidence, 0, len(b.Evidence))
	for _, e := range b.Evidence {
		rows = append(rows, evidenceToRow(b.SessionID, e))
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if !b.Final {
			if err := s.sessions.TouchActive(dbc, b.SessionID); err != nil {
				return err
			}
		}
		return s.repo.CreateBatch(dbc, &types.AnalysisBatch{
			SessionID:    b.SessionID,
			FromCount:    b.FromCount,
			ThroughCount: b.ThroughCount,
			Final:        b.Final,
			CreatedAt:    time.Now().UTC(),
		}, rows)
	})
	switch {
	case errors.Is(err, repos.ErrSessionNotActive):
		return orchestrator.ErrSessionClosed
	case errors.Is(err, repos.ErrBatchRecorded):
		return orchestrator.ErrBatchRecorded
	}
	return err
}

func evidenceFromRow(r *types.FacetEvidence) scoring.Evidence {
	return scoring.Evidence{
		Facet:           scoring.Facet(r.FacetName),
		Score:           r.Score,
		Confidence:      r.Confidence,
		Quote:           r.Quote,
		Highlight:       scoring.HighlightRange{Start: r.HighlightStart, End: r.HighlightEnd},
		SourceMessageID: r.SourceMessageID,
		CreatedAt:       r.CreatedAt,
	}
}

func evidenceToRow(sessionID uuid.UUID, e scoring.Evidence) *types.FacetEvidence {
	return &types.FacetEvidence{
		SessionID:       sessionID,
		FacetName:       string(e.Facet),
		Score:           e.Score,
		Confidence:      e.Confidence,
		Quote:           e.Quote,
		HighlightStart:  e.Highlight.Start,
		HighlightEnd:    e.Highlight.End,
		SourceMessageID: e.SourceMessageID,
		CreatedAt:       e.CreatedAt,
	}
}
