package assessment

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

// EvidenceRepo is append-only: there is no update or delete.
type EvidenceRepo interface {
	Create(dbc dbctx.Context, rows []*types.FacetEvidence) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FacetEvidence, error)
	// CreateBatch records an analysis batch and its evidence rows. A batch that
	// was already recorded for the same range yields ErrBatchRecorded.
	CreateBatch(dbc dbctx.Context, batch *types.AnalysisBatch, rows []*types.FacetEvidence) error
	ListBatches(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AnalysisBatch, error)
}

type evidenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return &evidenceRepo{db: db, log: baseLog.With("repo", "EvidenceRepo")}
}

func (r *evidenceRepo) Create(dbc dbctx.Context, rows []*types.FacetEvidence) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row == nil || row.SessionID == uuid.Nil {
			return fmt.Errorf("evidence row missing session_id")
		}
	}
	return dbc.DB(r.db).WithContext(dbc.Ctx).CreateInBatches(rows, 100).Error
}

func (r *evidenceRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FacetEvidence, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out []*types.FacetEvidence
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *evidenceRepo) CreateBatch(dbc dbctx.Context, batch *types.AnalysisBatch, rows []*types.FacetEvidence) error {
	if batch == nil || batch.SessionID == uuid.Nil {
		return fmt.Errorf("analysis batch missing session_id")
	}
	if batch.FromCount < 0 || batch.ThroughCount <= batch.FromCount {
		return fmt.Errorf("analysis batch range (%d, %d] is empty", batch.FromCount, batch.ThroughCount)
	}
	batch.EvidenceCount = len(rows)
	if err := dbc.DB(r.db).WithContext(dbc.Ctx).Create(batch).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session=%s through=%d", ErrBatchRecorded, batch.SessionID, batch.ThroughCount)
		}
		return err
	}
	return r.Create(dbc, rows)
}

func (r *evidenceRepo) ListBatches(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AnalysisBatch, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out []*types.AnalysisBatch
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("through_count ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
