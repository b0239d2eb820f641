package domain

import "github.com/yungbote/bigocean-backend/internal/domain/assessment"

const (
	SessionStatusActive     = assessment.StatusActive
	SessionStatusFinalizing = assessment.StatusFinalizing
	SessionStatusCompleted  = assessment.StatusCompleted

	ProgressAnalyzing          = assessment.ProgressAnalyzing
	ProgressGeneratingPortrait = assessment.ProgressGeneratingPortrait
	ProgressCompleted          = assessment.ProgressCompleted

	RoleUser      = assessment.RoleUser
	RoleAssistant = assessment.RoleAssistant
)

type AssessmentSession = assessment.Session
type FacetEvidence = assessment.FacetEvidence
type AssessmentMessage = assessment.Message
type AnalysisBatch = assessment.AnalysisBatch

// AllModels lists every persisted model for auto-migration.
func AllModels() []any {
	return []any{
		&AssessmentSession{},
		&FacetEvidence{},
		&AssessmentMessage{},
		&AnalysisBatch{},
	}
}
