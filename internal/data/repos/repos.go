package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/data/repos/assessment"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

type SessionRepo = assessment.SessionRepo
type EvidenceRepo = assessment.EvidenceRepo
type MessageRepo = assessment.MessageRepo

var (
	ErrSeqConflict      = assessment.ErrSeqConflict
	ErrSessionNotActive = assessment.ErrSessionNotActive
	ErrBatchRecorded    = assessment.ErrBatchRecorded
)

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return assessment.NewSessionRepo(db, baseLog)
}
func NewEvidenceRepo(db *gorm.DB, baseLog *logger.Logger) EvidenceRepo {
	return assessment.NewEvidenceRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return assessment.NewMessageRepo(db, baseLog)
}
