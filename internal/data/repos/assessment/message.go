package assessment

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

type MessageRepo interface {
	// Append assigns the next sequence number. A concurrent append that wins
	// the same number surfaces as ErrSeqConflict.
	Append(dbc dbctx.Context, msg *types.AssessmentMessage) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AssessmentMessage, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) Append(dbc dbctx.Context, msg *types.AssessmentMessage) error {
	if msg == nil || msg.SessionID == uuid.Nil {
		return fmt.Errorf("message missing session_id")
	}
	tx := dbc.DB(r.db).WithContext(dbc.Ctx)

	var maxSeq int64
	if err := tx.Model(&types.AssessmentMessage{}).
		Where("session_id = ?", msg.SessionID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	msg.Seq = maxSeq + 1

	if err := tx.Create(msg).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session=%s seq=%d", ErrSeqConflict, msg.SessionID, msg.Seq)
		}
		return err
	}
	return nil
}

func (r *messageRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AssessmentMessage, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out []*types.AssessmentMessage
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
