package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/bigocean-backend/internal/data/repos"
	types "github.com/yungbote/bigocean-backend/internal/domain"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/platform/dbctx"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

type sessionStore struct {
	repo repos.SessionRepo
}

// NewSessionStore adapts the session table to the finalization state machine.
func NewSessionStore(repo repos.SessionRepo) finalization.SessionStore {
	return &sessionStore{repo: repo}
}

func (s *sessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*finalization.SessionState, error) {
	row, err := s.repo.GetByID(dbctx.New(ctx), sessionID)
	if err != nil || row == nil {
		return nil, err
	}
	profile, err := decodeProfile(row.ResultJSON)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return &finalization.SessionState{
		ID:          row.ID,
		OwnerUserID: row.UserID,
		Status:      row.Status,
		Progress:    row.Progress(),
		Profile:     profile,
	}, nil
}

func (s *sessionStore) Update(ctx context.Context, sessionID uuid.UUID, upd finalization.SessionUpdate) error {
	fields := map[string]interface{}{}
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.Progress != nil {
		fields["finalization_progress"] = *upd.Progress
	}
	if upd.Profile != nil {
		raw, err := json.Marshal(upd.Profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}
		fields["result_json"] = datatypes.JSON(raw)
		fields["ocean_code"] = string(upd.Profile.OceanCode)
		fields["code4"] = upd.Profile.Code4
		fields["archetype_name"] = upd.Profile.Archetype.Name
		fields["evidence_density"] = string(upd.Profile.Density)
	}
	if upd.Portrait != nil {
		fields["portrait"] = *upd.Portrait
	}
	if upd.CompletedAt != nil {
		fields["completed_at"] = *upd.CompletedAt
	}
	return s.repo.UpdateFields(dbctx.New(ctx), sessionID, fields)
}

func decodeProfile(raw datatypes.JSON) (*scoring.Profile, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p scoring.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode stored profile: %w", err)
	}
	return &p, nil
}

// sessionFinalizing reports whether the status is past the conversation.
func sessionFinalizing(status string) bool {
	return status == types.SessionStatusFinalizing || status == types.SessionStatusCompleted
}
