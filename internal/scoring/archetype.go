package scoring

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed archetypes.yaml
var archetypesYAML []byte

type Archetype struct {
	Code4       string `json:"code4" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Color       string `json:"color" yaml:"color"`
	IsCurated   bool   `json:"is_curated" yaml:"-"`
}

type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// Catalog is an immutable code4 -> curated archetype table.
type Catalog struct {
	byCode map[string]Archetype
}

// ParseCatalog reads a YAML archetype table. Every code must be a valid code4 and unique.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var file archetypeFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse archetype catalog: %w", err)
	}
	c := &Catalog{byCode: make(map[string]Archetype, len(file.Archetypes))}
	for _, a := range file.Archetypes {
		a.Code4 = strings.ToUpper(strings.TrimSpace(a.Code4))
		if err := ValidateCode4(a.Code4); err != nil {
			return nil, err
		}
		if _, dup := c.byCode[a.Code4]; dup {
			return nil, fmt.Errorf("duplicate archetype code %q", a.Code4)
		}
		a.IsCurated = true
		c.byCode[a.Code4] = a
	}
	return c, nil
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog is the embedded curated table.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(archetypesYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Curated returns the curated entry for code4, if any.
func (c *Catalog) Curated(code4 string) (Archetype, bool) {
	if c == nil {
		return Archetype{}, false
	}
	a, ok := c.byCode[code4]
	return a, ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byCode)
}

// Lookup returns the curated archetype or the generated fallback.
func (c *Catalog) Lookup(code4 string) (Archetype, error) {
	if err := ValidateCode4(code4); err != nil {
		return Archetype{}, err
	}
	if a, ok := c.Curated(code4); ok {
		return a, nil
	}
	return GeneratedArchetype(code4), nil
}

// LookupArchetype resolves code4 against the embedded catalog.
func LookupArchetype(code4 string) (Archetype, error) {
	return DefaultCatalog().Lookup(code4)
}

type letterDescriptor struct {
	word   string
	phrase string
}

var descriptors = map[Trait][3]letterDescriptor{
	TraitOpenness: {
		{"Practical", "prefers the proven and concrete"},
		{"Grounded", "balances curiosity with realism"},
		{"Curious", "seeks out novelty and ideas"},
	},
	TraitConscientiousness: {
		{"Flexible", "keeps plans loose and adapts on the fly"},
		{"Balanced", "structures what matters and improvises the rest"},
		{"Disciplined", "plans ahead and follows through"},
	},
	TraitExtraversion: {
		{"Observer", "recharges in quieter settings"},
		{"Navigator", "moves easily between solitude and company"},
		{"Connector", "draws energy from people"},
	},
	TraitAgreeableness: {
		{"Candid", "speaks plainly and challenges ideas"},
		{"Diplomatic", "weighs their own needs against others'"},
		{"Warm", "leads with empathy and cooperation"},
	},
}

var generatedPalette = []string{
	"#5B8DEF", "#F2994A", "#27AE60", "#EB5757", "#9B51E0",
	"#2D9CDB", "#F2C94C", "#6FCF97", "#BB6BD9",
}

// GeneratedArchetype deterministically composes an archetype for an uncurated code4.
// code4 must already be valid.
func GeneratedArchetype(code4 string) Archetype {
	var (
		tiers      [4]Tier
		phrases    []string
		paletteIdx int
	)
	for i, t := range Code4Traits {
		tiers[i] = letterTier(t, code4[i])
		phrases = append(phrases, descriptors[t][tiers[i]].phrase)
		paletteIdx = paletteIdx*3 + int(tiers[i])
	}
	name := fmt.Sprintf("The %s %s",
		descriptors[TraitOpenness][tiers[0]].word,
		descriptors[TraitExtraversion][tiers[2]].word,
	)
	desc := fmt.Sprintf("Someone who %s, %s, %s, and %s.", phrases[0], phrases[1], phrases[2], phrases[3])
	return Archetype{
		Code4:       code4,
		Name:        name,
		Description: desc,
		Color:       generatedPalette[paletteIdx%len(generatedPalette)],
		IsCurated:   false,
	}
}
