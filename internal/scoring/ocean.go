package scoring

import (
	"fmt"
	"strings"
)

type Tier int

const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

const (
	lowTierMax = 40
	midTierMax = 80
)

// traitLetters holds each trait's low/mid/high letter.
var traitLetters = map[Trait][3]byte{
	TraitOpenness:          {'P', 'G', 'O'},
	TraitConscientiousness: {'F', 'B', 'D'},
	TraitExtraversion:      {'I', 'A', 'E'},
	TraitAgreeableness:     {'C', 'N', 'W'},
	TraitNeuroticism:       {'R', 'T', 'S'},
}

// OceanCode has one letter per trait, in OCEAN order.
type OceanCode string

// Code4Traits are the traits that key the archetype lookup; neuroticism is excluded.
var Code4Traits = Traits[:4]

func TierFor(score float64) Tier {
	switch {
	case score <= lowTierMax:
		return TierLow
	case score <= midTierMax:
		return TierMid
	default:
		return TierHigh
	}
}

func LetterFor(t Trait, tier Tier) (byte, error) {
	letters, ok := traitLetters[t]
	if !ok {
		return 0, fmt.Errorf("unknown trait %q", t)
	}
	if tier < TierLow || tier > TierHigh {
		return 0, fmt.Errorf("unknown tier %d", tier)
	}
	return letters[tier], nil
}

// GenerateOceanCode buckets every trait score into a letter. A trait without
// evidence is coded with its mid letter.
func GenerateOceanCode(facetScores map[Facet]FacetScore) (OceanCode, error) {
	if err := validateFacetScores(facetScores); err != nil {
		return "", err
	}
	traits := DeriveTraitScores(facetScores)

	var b strings.Builder
	for _, t := range Traits {
		tier := TierMid
		if ts, ok := traits[t]; ok {
			tier = TierFor(ts.Score)
		}
		letter, err := LetterFor(t, tier)
		if err != nil {
			return "", err
		}
		b.WriteByte(letter)
	}
	return OceanCode(b.String()), nil
}

// Code4 is the archetype key: the first four letters (O, C, E, A).
func (c OceanCode) Code4() string {
	if len(c) < len(Code4Traits) {
		return string(c)
	}
	return string(c[:len(Code4Traits)])
}

func (c OceanCode) String() string { return string(c) }

// ValidateCode4 checks each position holds one of its trait's letters.
func ValidateCode4(code4 string) error {
	if len(code4) != len(Code4Traits) {
		return &ValidationError{Index: -1, Field: "code4", Value: code4, Reason: "must have 4 letters"}
	}
	for i, t := range Code4Traits {
		if letterTier(t, code4[i]) < 0 {
			return &ValidationError{Index: -1, Field: "code4", Value: code4, Reason: fmt.Sprintf("letter %q is not valid for %s", code4[i], t)}
		}
	}
	return nil
}

func letterTier(t Trait, letter byte) Tier {
	for i, l := range traitLetters[t] {
		if l == letter {
			return Tier(i)
		}
	}
	return -1
}

func validateFacetScores(scores map[Facet]FacetScore) error {
	for f, s := range scores {
		if !f.Valid() {
			return &ValidationError{Index: -1, Field: "facet", Value: f, Reason: "unknown facet"}
		}
		if s.Score < MinFacetScore || s.Score > MaxFacetScore {
			return &ValidationError{Index: -1, Field: "score", Value: s.Score, Reason: "must be within 0-20"}
		}
		if reason := validateConfidence(s.Confidence); reason != "" {
			return &ValidationError{Index: -1, Field: "confidence", Value: s.Confidence, Reason: reason}
		}
	}
	return nil
}
