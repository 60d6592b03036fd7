package compat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

// TagID names one semantic kind of key parameter. The same TagID is used for
// the tag in every schema generation, whatever its numeric code there.
type TagID string

// Category is the payload type carried by a tag.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryEnum
	CategoryInteger
	CategoryLongInteger
	CategoryBoolean
	CategoryBytes
	CategoryBigNum
	CategoryDate
)

var categoryNames = map[Category]string{
	CategoryInvalid:     "invalid",
	CategoryEnum:        "enum",
	CategoryInteger:     "integer",
	CategoryLongInteger: "long-integer",
	CategoryBoolean:     "boolean",
	CategoryBytes:       "bytes",
	CategoryBigNum:      "bignum",
	CategoryDate:        "date",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

func categoryOf(t keymint.TagType) Category {
	switch t {
	case keymint.TagTypeEnum, keymint.TagTypeEnumRep:
		return CategoryEnum
	case keymint.TagTypeUint, keymint.TagTypeUintRep:
		return CategoryInteger
	case keymint.TagTypeUlong, keymint.TagTypeUlongRep:
		return CategoryLongInteger
	case keymint.TagTypeBool:
		return CategoryBoolean
	case keymint.TagTypeBytes:
		return CategoryBytes
	case keymint.TagTypeBignum:
		return CategoryBigNum
	case keymint.TagTypeDate:
		return CategoryDate
	default:
		return CategoryInvalid
	}
}

// TagInfo is the registry entry of one tag.
type TagInfo struct {
	ID          TagID
	Category    Category
	Domain      Domain
	Current     keymint.Tag
	Legacy      keymaster.Tag
	Generations GenerationSet
	Repeatable  bool
	// Excluded tags are never converted in either direction.
	Excluded bool
}

// Registry maps every known tag to its payload category and the generations
// defining it. It is immutable once built and safe for concurrent use.
type Registry struct {
	tags      []TagInfo
	byID      map[TagID]int
	byCurrent map[keymint.Tag]int
	byLegacy  map[keymaster.Tag]int
}

// NewRegistry builds a registry from tag definitions, rejecting duplicate
// identities or codes and definitions whose tag type bits disagree between
// the two schemas.
func NewRegistry(defs []TagDef) (*Registry, error) {
	r := &Registry{
		tags:      make([]TagInfo, 0, len(defs)),
		byID:      make(map[TagID]int, len(defs)),
		byCurrent: make(map[keymint.Tag]int, len(defs)),
		byLegacy:  make(map[keymaster.Tag]int, len(defs)),
	}
	for _, def := range defs {
		info, err := def.info()
		if err != nil {
			return nil, err
		}
		if _, ok := r.byID[info.ID]; ok {
			return nil, fmt.Errorf("duplicate tag %s", info.ID)
		}
		idx := len(r.tags)
		if info.Generations.Has(Current) {
			if _, ok := r.byCurrent[info.Current]; ok {
				return nil, fmt.Errorf("tag %s: duplicate current code %#x", info.ID, uint32(info.Current))
			}
			r.byCurrent[info.Current] = idx
		}
		if info.Generations.Has(LegacyBase) || info.Generations.Has(LegacyExtension) {
			if _, ok := r.byLegacy[info.Legacy]; ok {
				return nil, fmt.Errorf("tag %s: duplicate legacy code %#x", info.ID, uint32(info.Legacy))
			}
			r.byLegacy[info.Legacy] = idx
		}
		r.byID[info.ID] = idx
		r.tags = append(r.tags, info)
	}
	return r, nil
}

func (r *Registry) Lookup(id TagID) (TagInfo, error) {
	idx, ok := r.byID[id]
	if !ok {
		return TagInfo{}, fmt.Errorf("%w: %s", ErrUnknownTag, id)
	}
	return r.tags[idx], nil
}

// LookupName resolves a tag by name, ignoring case and accepting '-' for '_'.
func (r *Registry) LookupName(name string) (TagInfo, error) {
	return r.Lookup(TagID(normalizeName(name)))
}

func (r *Registry) LookupCurrent(tag keymint.Tag) (TagInfo, error) {
	idx, ok := r.byCurrent[tag]
	if !ok {
		return TagInfo{}, fmt.Errorf("%w: current tag %s", ErrUnknownTag, tag)
	}
	return r.tags[idx], nil
}

func (r *Registry) LookupLegacy(tag keymaster.Tag) (TagInfo, error) {
	idx, ok := r.byLegacy[tag]
	if !ok {
		return TagInfo{}, fmt.Errorf("%w: legacy tag %s", ErrUnknownTag, tag)
	}
	return r.tags[idx], nil
}

func (r *Registry) PayloadCategory(id TagID) (Category, error) {
	info, err := r.Lookup(id)
	if err != nil {
		return CategoryInvalid, err
	}
	return info.Category, nil
}

func (r *Registry) ValidGenerations(id TagID) (GenerationSet, error) {
	info, err := r.Lookup(id)
	if err != nil {
		return 0, err
	}
	return info.Generations, nil
}

// Tags returns every registered tag sorted by identity.
func (r *Registry) Tags() []TagInfo {
	tags := slices.Clone(r.tags)
	slices.SortFunc(tags, func(a, b TagInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return tags
}

// TagDef declares one registry entry. Category and repeatability are derived
// from the tag type bits of the codes.
type TagDef struct {
	ID          TagID
	Domain      Domain
	Current     keymint.Tag
	Legacy      keymaster.Tag
	Generations GenerationSet
	Excluded    bool
}

func (d TagDef) info() (TagInfo, error) {
	info := TagInfo{
		ID:          d.ID,
		Domain:      d.Domain,
		Current:     d.Current,
		Legacy:      d.Legacy,
		Generations: d.Generations,
		Excluded:    d.Excluded,
	}
	if d.Generations == 0 {
		return TagInfo{}, fmt.Errorf("tag %s: no generation defines it", d.ID)
	}

	inCurrent := d.Generations.Has(Current)
	inLegacy := d.Generations.Has(LegacyBase) || d.Generations.Has(LegacyExtension)
	switch {
	case inCurrent && inLegacy:
		if uint32(d.Current.Type()) != uint32(d.Legacy.Type()) {
			return TagInfo{}, fmt.Errorf("tag %s: current type %#x differs from legacy type %#x",
				d.ID, uint32(d.Current.Type()), uint32(d.Legacy.Type()))
		}
		info.Category = categoryOf(d.Current.Type())
		info.Repeatable = d.Current.Type().Repeatable()
	case inCurrent:
		info.Category = categoryOf(d.Current.Type())
		info.Repeatable = d.Current.Type().Repeatable()
	default:
		info.Category = categoryOf(keymint.TagType(d.Legacy.Type()))
		info.Repeatable = keymint.TagType(d.Legacy.Type()).Repeatable()
	}

	if (info.Category == CategoryEnum) != (d.Domain != DomainNone) {
		return TagInfo{}, fmt.Errorf("tag %s: category %s does not fit domain %s", d.ID, info.Category, d.Domain)
	}
	if info.Category == CategoryInvalid && !d.Excluded {
		return TagInfo{}, fmt.Errorf("tag %s: invalid tag must be excluded", d.ID)
	}
	return info, nil
}

var defaultRegistry = mustNewRegistry(tagTable)

func mustNewRegistry(defs []TagDef) *Registry {
	r, err := NewRegistry(defs)
	if err != nil {
		panic(fmt.Sprintf("building tag registry: %v", err))
	}
	return r
}

// DefaultRegistry returns the registry of every tag known to this build.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
