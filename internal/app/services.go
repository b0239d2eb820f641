package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/finalization"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/clock"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
	"github.com/yungbote/bigocean-backend/internal/services"
)

type Services struct {
	Auth         services.AuthService
	Guard        costguard.Guard
	Locker       locks.SessionLocker
	Orchestrator orchestrator.Orchestrator
	Finalizer    finalization.Machine
	Assessment   services.AssessmentService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, reposet Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	auth, err := services.NewAuthService(log, cfg.JWTSecretKey)
	if err != nil {
		return out, fmt.Errorf("init auth service: %w", err)
	}
	out.Auth = auth

	out.Guard = costguard.NewRedisGuard(clients.Redis, log, cfg.Guard, clock.System)
	out.Locker = locks.NewRedisLocker(clients.Redis, log, cfg.Lock, clock.System)

	catalog, err := services.NewArchetypeCatalog(log, scoring.DefaultCatalog(), cfg.ArchetypeCacheSize)
	if err != nil {
		return out, fmt.Errorf("init archetype catalog: %w", err)
	}

	evidenceStore := services.NewEvidenceStore(db, reposet.Sessions, reposet.Evidence)
	out.Orchestrator = orchestrator.New(
		log,
		cfg.Orchestrator,
		services.NewConversationAgent(log, clients.OpenAI),
		services.NewEvidenceExtractor(log, clients.OpenAI),
		evidenceStore,
		metrics,
		clock.System,
	)
	out.Finalizer = finalization.New(
		log,
		services.NewSessionStore(reposet.Sessions),
		out.Locker,
		services.NewProfileAnalyzer(log, reposet.Sessions, reposet.Messages, reposet.Evidence, out.Orchestrator, evidenceStore, catalog),
		services.NewPortraitWriter(log, clients.OpenAI),
		metrics,
		clock.System,
	)
	out.Assessment = services.NewAssessmentService(
		db,
		log,
		cfg.Assessment,
		reposet.Sessions,
		reposet.Messages,
		out.Guard,
		out.Locker,
		out.Orchestrator,
		out.Finalizer,
		metrics,
	)
	return out, nil
}
