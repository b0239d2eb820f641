package scoring

// Profile is everything derived from a session's evidence.
type Profile struct {
	FacetScores map[Facet]FacetScore `json:"facet_scores"`
	TraitScores map[Trait]TraitScore `json:"trait_scores"`
	OceanCode   OceanCode            `json:"ocean_code"`
	Code4       string               `json:"code4"`
	Archetype   Archetype            `json:"archetype"`
	Density     EvidenceDensity      `json:"evidence_density"`
}

// ArchetypeResolver resolves a code4 to an archetype; *Catalog satisfies it.
type ArchetypeResolver interface {
	Lookup(code4 string) (Archetype, error)
}

// BuildProfile runs the full scoring pipeline. A nil resolver uses the embedded catalog.
func BuildProfile(evidence []Evidence, resolver ArchetypeResolver) (*Profile, error) {
	if resolver == nil {
		resolver = DefaultCatalog()
	}
	facets, err := AggregateFacetScores(evidence)
	if err != nil {
		return nil, err
	}
	density, err := ComputeEvidenceDensity(evidence)
	if err != nil {
		return nil, err
	}
	code, err := GenerateOceanCode(facets)
	if err != nil {
		return nil, err
	}
	archetype, err := resolver.Lookup(code.Code4())
	if err != nil {
		return nil, err
	}
	return &Profile{
		FacetScores: facets,
		TraitScores: DeriveTraitScores(facets),
		OceanCode:   code,
		Code4:       code.Code4(),
		Archetype:   archetype,
		Density:     density,
	}, nil
}
