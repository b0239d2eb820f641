package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive     = "active"
	StatusFinalizing = "finalizing"
	StatusCompleted  = "completed"
)

const (
	ProgressAnalyzing          = "analyzing"
	ProgressGeneratingPortrait = "generating_portrait"
	ProgressCompleted          = "completed"
)

// Session is one conversational assessment. Status gates what may happen next;
// FinalizationProgress records the last finalization phase durably entered.
type Session struct {
	ID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`

	Status               string  `gorm:"column:status;not null;default:'active';index" json:"status"`
	FinalizationProgress *string `gorm:"column:finalization_progress" json:"finalization_progress,omitempty"`

	MessageCount int `gorm:"column:message_count;not null;default:0" json:"message_count"`

	OceanCode       string         `gorm:"column:ocean_code" json:"ocean_code,omitempty"`
	Code4           string         `gorm:"column:code4" json:"code4,omitempty"`
	ArchetypeName   string         `gorm:"column:archetype_name" json:"archetype_name,omitempty"`
	EvidenceDensity string         `gorm:"column:evidence_density" json:"evidence_density,omitempty"`
	ResultJSON      datatypes.JSON `gorm:"column:result_json" json:"result,omitempty"`
	Portrait        string         `gorm:"column:portrait;type:text" json:"portrait,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Session) TableName() string { return "assessment_session" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// VisibleTo reports whether userID may see the session. Unowned sessions are visible to anyone.
func (s *Session) VisibleTo(userID uuid.UUID) bool {
	if s == nil {
		return false
	}
	return s.UserID == nil || *s.UserID == userID
}

// Progress returns the finalization progress or "" when unset.
func (s *Session) Progress() string {
	if s == nil || s.FinalizationProgress == nil {
		return ""
	}
	return *s.FinalizationProgress
}
