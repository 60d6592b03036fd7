package compat

import (
	"testing"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCoversCurrentSchema(t *testing.T) {
	require := require.New(t)
	r := DefaultRegistry()

	for _, tag := range keymint.Tags() {
		info, err := r.LookupCurrent(tag)
		require.NoError(err, "tag %s", tag)
		require.Equal(tag, info.Current)
	}
	require.Len(r.Tags(), len(keymint.Tags()))
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name       string
		id         TagID
		category   Category
		domain     Domain
		gens       GenerationSet
		repeatable bool
		excluded   bool
	}{
		{
			name:     "enum tag",
			id:       "ALGORITHM",
			category: CategoryEnum,
			domain:   DomainAlgorithm,
			gens:     NewGenerationSet(Current, LegacyBase, LegacyExtension),
		},
		{
			name:       "repeatable enum tag",
			id:         "PURPOSE",
			category:   CategoryEnum,
			domain:     DomainKeyPurpose,
			gens:       NewGenerationSet(Current, LegacyBase, LegacyExtension),
			repeatable: true,
		},
		{
			name:       "repeatable long integer",
			id:         "USER_SECURE_ID",
			category:   CategoryLongInteger,
			gens:       NewGenerationSet(Current, LegacyBase, LegacyExtension),
			repeatable: true,
		},
		{
			name:     "date",
			id:       "CREATION_DATETIME",
			category: CategoryDate,
			gens:     NewGenerationSet(Current, LegacyBase, LegacyExtension),
		},
		{
			name:     "extension only",
			id:       "EARLY_BOOT_ONLY",
			category: CategoryBoolean,
			gens:     NewGenerationSet(Current, LegacyExtension),
		},
		{
			name:     "current only bignum",
			id:       "CERTIFICATE_SERIAL",
			category: CategoryBigNum,
			gens:     NewGenerationSet(Current),
		},
		{
			name:     "excluded device identifier",
			id:       "ATTESTATION_ID_IMEI",
			category: CategoryBytes,
			gens:     NewGenerationSet(Current, LegacyBase, LegacyExtension),
			excluded: true,
		},
		{
			name:     "invalid",
			id:       "INVALID",
			category: CategoryInvalid,
			gens:     NewGenerationSet(Current, LegacyBase, LegacyExtension),
			excluded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			info, err := r.Lookup(tt.id)
			require.NoError(err)
			require.Equal(tt.category, info.Category)
			require.Equal(tt.domain, info.Domain)
			require.Equal(tt.gens, info.Generations)
			require.Equal(tt.repeatable, info.Repeatable)
			require.Equal(tt.excluded, info.Excluded)

			category, err := r.PayloadCategory(tt.id)
			require.NoError(err)
			require.Equal(tt.category, category)

			gens, err := r.ValidGenerations(tt.id)
			require.NoError(err)
			require.Equal(tt.gens, gens)
		})
	}
}

func TestRegistryUnknownTag(t *testing.T) {
	require := require.New(t)
	r := DefaultRegistry()

	_, err := r.Lookup("NOT_A_TAG")
	require.ErrorIs(err, ErrUnknownTag)

	_, err = r.PayloadCategory("NOT_A_TAG")
	require.ErrorIs(err, ErrUnknownTag)

	_, err = r.ValidGenerations("NOT_A_TAG")
	require.ErrorIs(err, ErrUnknownTag)

	_, err = r.LookupCurrent(keymint.Tag(keymint.TagTypeUint | 9999))
	require.ErrorIs(err, ErrUnknownTag)

	// Current-only tags have no legacy code.
	_, err = r.LookupLegacy(keymaster.Tag(uint32(keymint.TagUsageCountLimit)))
	require.ErrorIs(err, ErrUnknownTag)
}

func TestRegistryLookupName(t *testing.T) {
	require := require.New(t)
	r := DefaultRegistry()

	for _, name := range []string{"KEY_SIZE", "key-size", "key_size", "KeySize"} {
		info, err := r.LookupName(name)
		require.NoError(err, name)
		require.Equal(TagID("KEY_SIZE"), info.ID)
	}
}

func TestRegistryLegacyAndCurrentAgree(t *testing.T) {
	require := require.New(t)
	r := DefaultRegistry()

	for _, info := range r.Tags() {
		if !info.Generations.Has(LegacyBase) && !info.Generations.Has(LegacyExtension) {
			continue
		}
		byLegacy, err := r.LookupLegacy(info.Legacy)
		require.NoError(err)
		require.Equal(info.ID, byLegacy.ID)
		require.Equal(uint32(info.Current.Type()), uint32(info.Legacy.Type()), info.ID)
	}
}

func TestNewRegistryRejectsInconsistentDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []TagDef
	}{
		{
			name: "duplicate identity",
			defs: []TagDef{
				shared("KEY_SIZE", keymint.TagKeySize, keymaster.TagKeySize, DomainNone),
				shared("KEY_SIZE", keymint.TagMacLength, keymaster.TagMacLength, DomainNone),
			},
		},
		{
			name: "duplicate current code",
			defs: []TagDef{
				shared("KEY_SIZE", keymint.TagKeySize, keymaster.TagKeySize, DomainNone),
				currentOnlyTag("OTHER", keymint.TagKeySize, DomainNone),
			},
		},
		{
			name: "type bits disagree",
			defs: []TagDef{
				shared("KEY_SIZE", keymint.TagKeySize, keymaster.TagNonce, DomainNone),
			},
		},
		{
			name: "enum without domain",
			defs: []TagDef{
				shared("ALGORITHM", keymint.TagAlgorithm, keymaster.TagAlgorithm, DomainNone),
			},
		},
		{
			name: "domain on scalar",
			defs: []TagDef{
				shared("KEY_SIZE", keymint.TagKeySize, keymaster.TagKeySize, DomainDigest),
			},
		},
		{
			name: "invalid not excluded",
			defs: []TagDef{
				shared("INVALID", keymint.TagInvalid, keymaster.TagInvalid, DomainNone),
			},
		},
		{
			name: "no generation",
			defs: []TagDef{
				{ID: "KEY_SIZE", Current: keymint.TagKeySize},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			require.Error(t, err)
		})
	}
}

func TestGenerationParsing(t *testing.T) {
	require := require.New(t)

	for input, want := range map[string]Generation{
		"current":          Current,
		"legacy-base":      LegacyBase,
		"LEGACY_BASE":      LegacyBase,
		"LegacyExtension":  LegacyExtension,
		"legacy_extension": LegacyExtension,
	} {
		got, err := ParseGeneration(input)
		require.NoError(err, input)
		require.Equal(want, got)
	}

	_, err := ParseGeneration("legacy-2")
	require.Error(err)

	require.Equal("current,legacy-extension", NewGenerationSet(LegacyExtension, Current).String())
}
