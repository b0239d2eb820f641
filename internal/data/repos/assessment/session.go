package assessment

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, session *types.AssessmentSession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// IncrementMessageCount only counts turns of an active session; any other
	// status yields ErrSessionNotActive.
	IncrementMessageCount(dbc dbctx.Context, id uuid.UUID, by int) (int, error)
	// TouchActive bumps updated_at of an active session, holding its row for the
	// rest of the transaction. Any other status yields ErrSessionNotActive.
	TouchActive(dbc dbctx.Context, id uuid.UUID) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, session *types.AssessmentSession) error {
	if session == nil {
		return fmt.Errorf("missing session")
	}
	if session.Status == "" {
		session.Status = types.SessionStatusActive
	}
	return dbc.DB(r.db).WithContext(dbc.Ctx).Create(session).Error
}

// GetByID returns (nil, nil) when the session does not exist.
func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentSession, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out types.AssessmentSession
	err := dbc.DB(r.db).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	if len(updates) == 0 {
		return nil
	}
	copied := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		copied[k] = v
	}
	copied["updated_at"] = time.Now().UTC()

	res := dbc.DB(r.db).WithContext(dbc.Ctx).
		Model(&types.AssessmentSession{}).
		Where("id = ?", id).
		Updates(copied)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionRepo) IncrementMessageCount(dbc dbctx.Context, id uuid.UUID, by int) (int, error) {
	if id == uuid.Nil {
		return 0, fmt.Errorf("missing session_id")
	}
	tx := dbc.DB(r.db).WithContext(dbc.Ctx)
	res := tx.Model(&types.AssessmentSession{}).
		Where("id = ? AND status = ?", id, types.SessionStatusActive).
		Updates(map[string]interface{}{
			"message_count": gorm.Expr("message_count + ?", by),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, r.inactiveOrMissing(tx, id)
	}
	var count int
	if err := tx.Model(&types.AssessmentSession{}).Where("id = ?", id).Select("message_count").Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sessionRepo) TouchActive(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	tx := dbc.DB(r.db).WithContext(dbc.Ctx)
	res := tx.Model(&types.AssessmentSession{}).
		Where("id = ? AND status = ?", id, types.SessionStatusActive).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.inactiveOrMissing(tx, id)
	}
	return nil
}

// inactiveOrMissing explains why a status-guarded update matched no row.
func (r *sessionRepo) inactiveOrMissing(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&types.AssessmentSession{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrSessionNotActive
}
