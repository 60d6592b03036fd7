package compat

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
)

// Generation is a schema generation of the key parameter encoding.
type Generation int

const (
	Current Generation = iota
	// LegacyBase is the 4.0 legacy interface.
	LegacyBase
	// LegacyExtension is the 4.1 legacy interface: LegacyBase plus a handful of tags.
	LegacyExtension
)

var generationNames = map[Generation]string{
	Current:         "current",
	LegacyBase:      "legacy-base",
	LegacyExtension: "legacy-extension",
}

func (g Generation) String() string {
	if name, ok := generationNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Generation(%d)", int(g))
}

func (g Generation) IsLegacy() bool {
	return g == LegacyBase || g == LegacyExtension
}

// ParseGeneration accepts the canonical names ("current", "legacy-base",
// "legacy-extension") in any common casing.
func ParseGeneration(s string) (Generation, error) {
	name := strcase.KebabCase(s)
	for g, n := range generationNames {
		if n == name {
			return g, nil
		}
	}
	return 0, fmt.Errorf("unknown schema generation %q", s)
}

// GenerationSet is a set of generations.
type GenerationSet uint8

func NewGenerationSet(gens ...Generation) GenerationSet {
	var s GenerationSet
	for _, g := range gens {
		s |= 1 << uint(g)
	}
	return s
}

func (s GenerationSet) Has(g Generation) bool {
	return s&(1<<uint(g)) != 0
}

func (s GenerationSet) String() string {
	var names []string
	for _, g := range []Generation{Current, LegacyBase, LegacyExtension} {
		if s.Has(g) {
			names = append(names, g.String())
		}
	}
	return strings.Join(names, ",")
}
