package services

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yungbote/bigocean-backend/internal/platform/logger"
	"github.com/yungbote/bigocean-backend/internal/scoring"
)

const defaultResolvedCacheSize = 128

// ArchetypeCatalog resolves code4 keys. Curated entries come from the
// embedded table, generated ones from the trait letters; either way the
// resolved archetype is memoised in an LRU keyed by code4.
type ArchetypeCatalog interface {
	Lookup(code4 string) (scoring.Archetype, error)
}

type archetypeCatalog struct {
	log      *logger.Logger
	curated  *scoring.Catalog
	resolved *lru.Cache[string, scoring.Archetype]
}

func NewArchetypeCatalog(log *logger.Logger, curated *scoring.Catalog, cacheSize int) (ArchetypeCatalog, error) {
	if curated == nil {
		curated = scoring.DefaultCatalog()
	}
	if cacheSize <= 0 {
		cacheSize = defaultResolvedCacheSize
	}
	cache, err := lru.New[string, scoring.Archetype](cacheSize)
	if err != nil {
		return nil, err
	}
	serviceLog := log.With("service", "ArchetypeCatalog")
	serviceLog.Debug("archetype catalog ready", "curated", curated.Len(), "cache_size", cacheSize)
	return &archetypeCatalog{log: serviceLog, curated: curated, resolved: cache}, nil
}

func (c *archetypeCatalog) Lookup(code4 string) (scoring.Archetype, error) {
	if a, ok := c.resolved.Get(code4); ok {
		return a, nil
	}
	if err := scoring.ValidateCode4(code4); err != nil {
		return scoring.Archetype{}, err
	}
	a, ok := c.curated.Curated(code4)
	if !ok {
		a = scoring.GeneratedArchetype(code4)
	}
	c.resolved.Add(code4, a)
	return a, nil
}
