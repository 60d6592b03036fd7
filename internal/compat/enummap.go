package compat

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/samber/lo"
	"github.com/stoewer/go-strcase"
)

// Domain is an enumerated domain: the closed value set of one enum-typed tag family.
type Domain int

const (
	DomainNone Domain = iota
	DomainKeyPurpose
	DomainAlgorithm
	DomainDigest
	DomainEcCurve
	DomainBlockMode
	DomainPaddingMode
	DomainHardwareAuthenticatorType
	DomainSecurityLevel
	DomainKeyOrigin
)

var domainNames = map[Domain]string{
	DomainNone:                      "none",
	DomainKeyPurpose:                "key-purpose",
	DomainAlgorithm:                 "algorithm",
	DomainDigest:                    "digest",
	DomainEcCurve:                   "ec-curve",
	DomainBlockMode:                 "block-mode",
	DomainPaddingMode:               "padding-mode",
	DomainHardwareAuthenticatorType: "hardware-authenticator-type",
	DomainSecurityLevel:             "security-level",
	DomainKeyOrigin:                 "key-origin",
}

func (d Domain) String() string {
	if name, ok := domainNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Domain(%d)", int(d))
}

// ParseDomain accepts domain names such as "key-origin", "KeyOrigin" or "KEY_ORIGIN".
func ParseDomain(s string) (Domain, error) {
	name := strcase.KebabCase(s)
	for d, n := range domainNames {
		if d != DomainNone && n == name {
			return d, nil
		}
	}
	return DomainNone, fmt.Errorf("unknown enum domain %q", s)
}

// Direction selects which way an enum value is translated.
type Direction int

const (
	ToLegacy Direction = iota
	ToCurrent
)

func (d Direction) String() string {
	if d == ToCurrent {
		return "to-current"
	}
	return "to-legacy"
}

type currentEnum interface {
	~int32
	keymint.KeyParameterValue
	fmt.Stringer
}

type legacyEnum interface {
	~uint32
	fmt.Stringer
}

// EnumPair declares that a current value and a legacy value denote the same thing.
type EnumPair[C currentEnum, L legacyEnum] struct {
	Current C
	Legacy  L
}

func pair[C currentEnum, L legacyEnum](c C, l L) EnumPair[C, L] {
	return EnumPair[C, L]{Current: c, Legacy: l}
}

// EnumMap is the bidirectional value table of one domain. Values that only
// exist in the current schema are listed separately and have no legacy image.
type EnumMap[C currentEnum, L legacyEnum] struct {
	domain      Domain
	pairs       []EnumPair[C, L]
	currentOnly []C
	toLegacy    map[C]L
	toCurrent   map[L]C

	// flags marks a bitmask domain: any OR of the single-bit pairs is a value.
	flags bool
}

// NewEnumMap builds a map from its pairs. Both directions must be injective.
func NewEnumMap[C currentEnum, L legacyEnum](domain Domain, pairs []EnumPair[C, L], currentOnly ...C) (*EnumMap[C, L], error) {
	m := &EnumMap[C, L]{
		domain:      domain,
		pairs:       pairs,
		currentOnly: currentOnly,
		toLegacy:    make(map[C]L, len(pairs)),
		toCurrent:   make(map[L]C, len(pairs)),
	}
	for _, p := range pairs {
		if prev, ok := m.toLegacy[p.Current]; ok {
			return nil, fmt.Errorf("%s: current %s already maps to legacy %s", domain, p.Current, prev)
		}
		if prev, ok := m.toCurrent[p.Legacy]; ok {
			return nil, fmt.Errorf("%s: legacy %s already maps to current %s", domain, p.Legacy, prev)
		}
		m.toLegacy[p.Current] = p.Legacy
		m.toCurrent[p.Legacy] = p.Current
	}
	for _, c := range currentOnly {
		if _, ok := m.toLegacy[c]; ok {
			return nil, fmt.Errorf("%s: current-only value %s also has a legacy pair", domain, c)
		}
	}
	return m, nil
}

func mustEnumMap[C currentEnum, L legacyEnum](domain Domain, pairs []EnumPair[C, L], currentOnly ...C) *EnumMap[C, L] {
	m, err := NewEnumMap(domain, pairs, currentOnly...)
	if err != nil {
		panic(fmt.Sprintf("building enum map: %v", err))
	}
	return m
}

// withFlags turns m into a bitmask domain.
func (m *EnumMap[C, L]) withFlags() *EnumMap[C, L] {
	m.flags = true
	return m
}

// bits returns the pairs whose values are a single bit on both sides.
func (m *EnumMap[C, L]) bits() []EnumPair[C, L] {
	return lo.Filter(m.pairs, func(p EnumPair[C, L], _ int) bool {
		return p.Current > 0 && p.Current&(p.Current-1) == 0 && p.Legacy > 0 && p.Legacy&(p.Legacy-1) == 0
	})
}

func (m *EnumMap[C, L]) Domain() Domain {
	return m.domain
}

// Pairs returns the declared pairs in declaration order.
func (m *EnumMap[C, L]) Pairs() []EnumPair[C, L] {
	out := make([]EnumPair[C, L], len(m.pairs))
	copy(out, m.pairs)
	return out
}

// CurrentOnly returns the current values without a legacy counterpart.
func (m *EnumMap[C, L]) CurrentOnly() []C {
	out := make([]C, len(m.currentOnly))
	copy(out, m.currentOnly)
	return out
}

// ToLegacy maps a current value. Values listed as current-only fail with
// ErrUnsupportedOnRevision; anything else outside the table fails with
// ErrUnknownEnumValue.
func (m *EnumMap[C, L]) ToLegacy(v C) (L, error) {
	if l, ok := m.toLegacy[v]; ok {
		return l, nil
	}
	if m.flags && v > 0 {
		var l L
		rest := v
		for _, p := range m.bits() {
			if rest&p.Current != 0 {
				l |= p.Legacy
				rest &^= p.Current
			}
		}
		if rest == 0 {
			return l, nil
		}
	}
	if slices.Contains(m.currentOnly, v) {
		return 0, fmt.Errorf("%w: %s %s has no legacy value", ErrUnsupportedOnRevision, m.domain, v)
	}
	return 0, fmt.Errorf("%w: %s %s has no legacy value", ErrUnknownEnumValue, m.domain, v)
}

func (m *EnumMap[C, L]) ToCurrent(v L) (C, error) {
	if c, ok := m.toCurrent[v]; ok {
		return c, nil
	}
	if m.flags && v > 0 {
		var c C
		rest := v
		for _, p := range m.bits() {
			if rest&p.Legacy != 0 {
				c |= p.Current
				rest &^= p.Legacy
			}
		}
		if rest == 0 {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %s has no current value", ErrUnknownEnumValue, m.domain, v)
}

// enumCodec is the untyped view of an EnumMap used where the domain is only
// known at run time.
type enumCodec interface {
	checkCurrent(v keymint.KeyParameterValue) error
	legacyValue(v keymint.KeyParameterValue) (uint32, error)
	currentValue(raw uint32) (keymint.KeyParameterValue, error)
	convert(v int64, dir Direction) (int64, error)
	parseCurrent(name string) (keymint.KeyParameterValue, bool)
	parseLegacy(name string) (uint32, bool)
	legacyName(raw uint32) string
	currentName(v int32) string
	currentNumber(v keymint.KeyParameterValue) (int32, bool)
}

func (m *EnumMap[C, L]) checkCurrent(v keymint.KeyParameterValue) error {
	c, ok := v.(C)
	if !ok {
		return fmt.Errorf("%w: %T is not a %s value", ErrTypeMismatch, v, m.domain)
	}
	if _, err := m.ToLegacy(c); err == nil || slices.Contains(m.currentOnly, c) {
		return nil
	}
	return fmt.Errorf("%w: %s %s", ErrUnknownEnumValue, m.domain, c)
}

func (m *EnumMap[C, L]) legacyValue(v keymint.KeyParameterValue) (uint32, error) {
	c, ok := v.(C)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not a %s value", ErrTypeMismatch, v, m.domain)
	}
	l, err := m.ToLegacy(c)
	if err != nil {
		return 0, err
	}
	return uint32(l), nil
}

func (m *EnumMap[C, L]) currentValue(raw uint32) (keymint.KeyParameterValue, error) {
	return m.ToCurrent(L(raw))
}

func (m *EnumMap[C, L]) convert(v int64, dir Direction) (int64, error) {
	switch dir {
	case ToLegacy:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s value %d out of range", ErrUnknownEnumValue, m.domain, v)
		}
		l, err := m.ToLegacy(C(v))
		if err != nil {
			return 0, err
		}
		return int64(l), nil
	case ToCurrent:
		if v < 0 || v > math.MaxUint32 {
			return 0, fmt.Errorf("%w: %s value %d out of range", ErrUnknownEnumValue, m.domain, v)
		}
		c, err := m.ToCurrent(L(v))
		if err != nil {
			return 0, err
		}
		return int64(c), nil
	default:
		return 0, fmt.Errorf("unknown conversion direction %d", int(dir))
	}
}

func (m *EnumMap[C, L]) parseCurrent(name string) (keymint.KeyParameterValue, bool) {
	if m.flags && strings.Contains(name, "|") {
		var c C
		for _, part := range strings.Split(name, "|") {
			p, ok := lo.Find(m.bits(), func(p EnumPair[C, L]) bool { return p.Current.String() == part })
			if !ok {
				return nil, false
			}
			c |= p.Current
		}
		return c, true
	}
	for _, p := range m.pairs {
		if p.Current.String() == name {
			return p.Current, true
		}
	}
	for _, c := range m.currentOnly {
		if c.String() == name {
			return c, true
		}
	}
	return nil, false
}

func (m *EnumMap[C, L]) parseLegacy(name string) (uint32, bool) {
	if m.flags && strings.Contains(name, "|") {
		var l L
		for _, part := range strings.Split(name, "|") {
			p, ok := lo.Find(m.bits(), func(p EnumPair[C, L]) bool { return p.Legacy.String() == part })
			if !ok {
				return 0, false
			}
			l |= p.Legacy
		}
		return uint32(l), true
	}
	for _, p := range m.pairs {
		if p.Legacy.String() == name {
			return uint32(p.Legacy), true
		}
	}
	return 0, false
}

func (m *EnumMap[C, L]) legacyName(raw uint32) string {
	return L(raw).String()
}

func (m *EnumMap[C, L]) currentName(v int32) string {
	return C(v).String()
}

func (m *EnumMap[C, L]) currentNumber(v keymint.KeyParameterValue) (int32, bool) {
	c, ok := v.(C)
	return int32(c), ok
}

// normalizeName upper-snake-cases each "|"-separated part of s.
func normalizeName(s string) string {
	parts := strings.Split(s, "|")
	for i, p := range parts {
		parts[i] = strcase.UpperSnakeCase(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}
