package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_assessment_message_session_seq,unique,priority:1" json:"session_id"`
	Seq       int64     `gorm:"column:seq;not null;index:idx_assessment_message_session_seq,unique,priority:2" json:"seq"`

	Role    string `gorm:"column:role;not null" json:"role"`
	Content string `gorm:"column:content;type:text;not null;default:''" json:"content"`

	InputTokens  int     `gorm:"column:input_tokens;not null;default:0" json:"input_tokens,omitempty"`
	OutputTokens int     `gorm:"column:output_tokens;not null;default:0" json:"output_tokens,omitempty"`
	CostUSD      float64 `gorm:"column:cost_usd;not null;default:0" json:"cost_usd,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Message) TableName() string { return "assessment_message" }

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
