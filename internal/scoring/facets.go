// Package scoring turns timestamped facet evidence into Big Five facet and
// trait scores, an OCEAN code and an archetype. Everything here is pure: no
// I/O, no shared mutable state, safe to call from any number of goroutines.
package scoring

import (
	"fmt"
	"strings"
)

type Trait string

const (
	TraitOpenness          Trait = "openness"
	TraitConscientiousness Trait = "conscientiousness"
	TraitExtraversion      Trait = "extraversion"
	TraitAgreeableness     Trait = "agreeableness"
	TraitNeuroticism       Trait = "neuroticism"
)

// Traits lists the five traits in OCEAN order.
var Traits = []Trait{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtraversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

type Facet string

const (
	FacetImagination       Facet = "imagination"
	FacetArtisticInterests Facet = "artistic_interests"
	FacetEmotionality      Facet = "emotionality"
	FacetAdventurousness   Facet = "adventurousness"
	FacetIntellect         Facet = "intellect"
	FacetLiberalism        Facet = "liberalism"

	FacetSelfEfficacy        Facet = "self_efficacy"
	FacetOrderliness         Facet = "orderliness"
	FacetDutifulness         Facet = "dutifulness"
	FacetAchievementStriving Facet = "achievement_striving"
	FacetSelfDiscipline      Facet = "self_discipline"
	FacetCautiousness        Facet = "cautiousness"

	FacetFriendliness      Facet = "friendliness"
	FacetGregariousness    Facet = "gregariousness"
	FacetAssertiveness     Facet = "assertiveness"
	FacetActivityLevel     Facet = "activity_level"
	FacetExcitementSeeking Facet = "excitement_seeking"
	FacetCheerfulness      Facet = "cheerfulness"

	FacetTrust       Facet = "trust"
	FacetMorality    Facet = "morality"
	FacetAltruism    Facet = "altruism"
	FacetCooperation Facet = "cooperation"
	FacetModesty     Facet = "modesty"
	FacetSympathy    Facet = "sympathy"

	FacetAnxiety           Facet = "anxiety"
	FacetAnger             Facet = "anger"
	FacetDepression        Facet = "depression"
	FacetSelfConsciousness Facet = "self_consciousness"
	FacetImmoderation      Facet = "immoderation"
	FacetVulnerability     Facet = "vulnerability"
)

const FacetsPerTrait = 6

var traitFacets = map[Trait][FacetsPerTrait]Facet{
	TraitOpenness: {
		FacetImagination, FacetArtisticInterests, FacetEmotionality,
		FacetAdventurousness, FacetIntellect, FacetLiberalism,
	},
	TraitConscientiousness: {
		FacetSelfEfficacy, FacetOrderliness, FacetDutifulness,
		FacetAchievementStriving, FacetSelfDiscipline, FacetCautiousness,
	},
	TraitExtraversion: {
		FacetFriendliness, FacetGregariousness, FacetAssertiveness,
		FacetActivityLevel, FacetExcitementSeeking, FacetCheerfulness,
	},
	TraitAgreeableness: {
		FacetTrust, FacetMorality, FacetAltruism,
		FacetCooperation, FacetModesty, FacetSympathy,
	},
	TraitNeuroticism: {
		FacetAnxiety, FacetAnger, FacetDepression,
		FacetSelfConsciousness, FacetImmoderation, FacetVulnerability,
	},
}

var (
	facetTrait = map[Facet]Trait{}
	facetIndex = map[Facet]int{}
	allFacets  []Facet
)

func init() {
	for _, t := range Traits {
		for _, f := range traitFacets[t] {
			facetTrait[f] = t
			facetIndex[f] = len(allFacets)
			allFacets = append(allFacets, f)
		}
	}
}

// AllFacets returns the 30 facets in canonical order (trait by trait).
func AllFacets() []Facet {
	out := make([]Facet, len(allFacets))
	copy(out, allFacets)
	return out
}

// FacetsOf returns the six facets of t, or nil for an unknown trait.
func FacetsOf(t Trait) []Facet {
	fs, ok := traitFacets[t]
	if !ok {
		return nil
	}
	out := make([]Facet, FacetsPerTrait)
	copy(out, fs[:])
	return out
}

func TraitOf(f Facet) (Trait, bool) {
	t, ok := facetTrait[f]
	return t, ok
}

func (f Facet) Valid() bool {
	_, ok := facetTrait[f]
	return ok
}

func (t Trait) Valid() bool {
	_, ok := traitFacets[t]
	return ok
}

// Label renders the facet for humans, e.g. "achievement striving".
func (f Facet) Label() string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// ParseFacet accepts canonical names plus common spellings ("Self-Discipline", "self discipline").
func ParseFacet(raw string) (Facet, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	f := Facet(norm)
	if !f.Valid() {
		return "", fmt.Errorf("unknown facet %q", raw)
	}
	return f, nil
}

// facetOrder is the canonical position of f, used for deterministic tie-breaks.
func facetOrder(f Facet) int {
	if i, ok := facetIndex[f]; ok {
		return i
	}
	return len(allFacets)
}
