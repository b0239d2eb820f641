package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	MinFacetScore = 0
	MaxFacetScore = 20
)

// ErrInvalidEvidence is wrapped by every ValidationError.
var ErrInvalidEvidence = errors.New("invalid evidence")

// HighlightRange is a half-open character range [Start, End) into the source message.
type HighlightRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence is one facet inference drawn from one message.
type Evidence struct {
	Facet           Facet          `json:"facet"`
	Score           int            `json:"score"`
	Confidence      float64        `json:"confidence"`
	Quote           string         `json:"quote"`
	Highlight       HighlightRange `json:"highlight_range"`
	SourceMessageID string         `json:"source_message_id"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ValidationError reports evidence that violates the extractor contract.
type ValidationError struct {
	Index  int
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid evidence[%d].%s=%v: %s", e.Index, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEvidence }

// ValidateEvidence checks a single record. Out-of-range values are rejected, never clamped.
func ValidateEvidence(e Evidence) error {
	return validateAt(-1, e)
}

// ValidateAll stops at the first malformed record.
func ValidateAll(evidence []Evidence) error {
	for i, e := range evidence {
		if err := validateAt(i, e); err != nil {
			return err
		}
	}
	return nil
}

func validateAt(i int, e Evidence) error {
	if !e.Facet.Valid() {
		return &ValidationError{Index: i, Field: "facet", Value: e.Facet, Reason: "unknown facet"}
	}
	if e.Score < MinFacetScore || e.Score > MaxFacetScore {
		return &ValidationError{Index: i, Field: "score", Value: e.Score, Reason: "must be within 0-20"}
	}
	if err := validateConfidence(e.Confidence); err != "" {
		return &ValidationError{Index: i, Field: "confidence", Value: e.Confidence, Reason: err}
	}
	if e.Highlight.Start < 0 || e.Highlight.End <= e.Highlight.Start {
		return &ValidationError{Index: i, Field: "highlight_range", Value: e.Highlight, Reason: "end must be greater than start"}
	}
	if strings.TrimSpace(e.SourceMessageID) == "" {
		return &ValidationError{Index: i, Field: "source_message_id", Value: e.SourceMessageID, Reason: "required"}
	}
	return nil
}

func validateConfidence(c float64) string {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return "must be within 0-1"
	}
	return ""
}
