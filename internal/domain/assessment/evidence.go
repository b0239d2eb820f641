package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FacetEvidence is an append-only inference row; rows are never updated.
type FacetEvidence struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_facet_evidence_session_created,priority:1" json:"session_id"`

	FacetName  string  `gorm:"column:facet_name;not null;index" json:"facet_name"`
	Score      int     `gorm:"column:score;not null" json:"score"`
	Confidence float64 `gorm:"column:confidence;not null" json:"confidence"`

	Quote           string `gorm:"column:quote;type:text;not null;default:''" json:"quote"`
	HighlightStart  int    `gorm:"column:highlight_start;not null" json:"highlight_start"`
	HighlightEnd    int    `gorm:"column:highlight_end;not null" json:"highlight_end"`
	SourceMessageID string `gorm:"column:source_message_id;not null;index" json:"source_message_id"`

	CreatedAt time.Time `gorm:"not null;index:idx_facet_evidence_session_created,priority:2" json:"created_at"`
}

func (FacetEvidence) TableName() string { return "facet_evidence" }

func (e *FacetEvidence) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// AnalysisBatch records that user messages (FromCount, ThroughCount] went
// through evidence extraction, even when the extractor found nothing.
type AnalysisBatch struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_analysis_batch_session_through,priority:1" json:"session_id"`
	FromCount    int       `gorm:"column:from_count;not null" json:"from_count"`
	ThroughCount int       `gorm:"column:through_count;not null;uniqueIndex:idx_analysis_batch_session_through,priority:2" json:"through_count"`
	// Final marks a batch extracted during finalization rather than on cadence.
	Final         bool      `gorm:"column:final;not null;default:false" json:"final"`
	EvidenceCount int       `gorm:"column:evidence_count;not null" json:"evidence_count"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (AnalysisBatch) TableName() string { return "analysis_batch" }

func (b *AnalysisBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
