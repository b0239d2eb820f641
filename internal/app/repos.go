package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/data/repos"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

type Repos struct {
	Sessions repos.SessionRepo
	Evidence repos.EvidenceRepo
	Messages repos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Sessions: repos.NewSessionRepo(db, log),
		Evidence: repos.NewEvidenceRepo(db, log),
		Messages: repos.NewMessageRepo(db, log),
	}
}
