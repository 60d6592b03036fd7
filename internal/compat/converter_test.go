package compat

import (
	"testing"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/stretchr/testify/require"
)

const testDate = 1_700_000_000_000

type tagCase struct {
	current keymint.KeyParameter
	legacy  keymaster.KeyParameter
}

func enumCase[C keymint.KeyParameterValue, L keymaster.Enum](ct keymint.Tag, lt keymaster.Tag, c C, l L) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, c),
		legacy:  keymaster.NewEnum(lt, l),
	}
}

func boolCase(ct keymint.Tag, lt keymaster.Tag) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, keymint.BoolValue(true)),
		legacy:  keymaster.NewBool(lt, true),
	}
}

func intCase(ct keymint.Tag, lt keymaster.Tag, v int32, raw uint32) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, keymint.Integer(v)),
		legacy:  keymaster.NewInteger(lt, raw),
	}
}

func longCase(ct keymint.Tag, lt keymaster.Tag, v int64, raw uint64) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, keymint.LongInteger(v)),
		legacy:  keymaster.NewLongInteger(lt, raw),
	}
}

func dateCase(ct keymint.Tag, lt keymaster.Tag) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, keymint.DateTime(testDate)),
		legacy:  keymaster.NewDateTime(lt, testDate),
	}
}

func blobCase(ct keymint.Tag, lt keymaster.Tag, v string) tagCase {
	return tagCase{
		current: keymint.NewKeyParameter(ct, keymint.Blob(v)),
		legacy:  keymaster.NewBlob(lt, []byte(v)),
	}
}

// sharedTagCases holds one sample per tag defined by every generation.
var sharedTagCases = []tagCase{
	enumCase(keymint.TagPurpose, keymaster.TagPurpose, keymint.KeyPurposeSign, keymaster.KeyPurposeSign),
	enumCase(keymint.TagAlgorithm, keymaster.TagAlgorithm, keymint.AlgorithmAES, keymaster.AlgorithmAES),
	intCase(keymint.TagKeySize, keymaster.TagKeySize, 256, 256),
	enumCase(keymint.TagBlockMode, keymaster.TagBlockMode, keymint.BlockModeGCM, keymaster.BlockModeGCM),
	enumCase(keymint.TagDigest, keymaster.TagDigest, keymint.DigestSHA2_256, keymaster.DigestSHA2_256),
	enumCase(keymint.TagPadding, keymaster.TagPadding, keymint.PaddingModePKCS7, keymaster.PaddingModePKCS7),
	boolCase(keymint.TagCallerNonce, keymaster.TagCallerNonce),
	intCase(keymint.TagMinMacLength, keymaster.TagMinMacLength, 128, 128),
	enumCase(keymint.TagEcCurve, keymaster.TagEcCurve, keymint.EcCurveP521, keymaster.EcCurveP521),
	longCase(keymint.TagRsaPublicExponent, keymaster.TagRsaPublicExponent, 65537, 65537),
	boolCase(keymint.TagIncludeUniqueID, keymaster.TagIncludeUniqueID),
	boolCase(keymint.TagBootloaderOnly, keymaster.TagBootloaderOnly),
	boolCase(keymint.TagRollbackResistance, keymaster.TagRollbackResistance),
	enumCase(keymint.TagHardwareType, keymaster.TagHardwareType, keymint.SecurityLevelStrongBox, keymaster.SecurityLevelStrongBox),
	dateCase(keymint.TagActiveDatetime, keymaster.TagActiveDatetime),
	dateCase(keymint.TagOriginationExpireDatetime, keymaster.TagOriginationExpireDatetime),
	dateCase(keymint.TagUsageExpireDatetime, keymaster.TagUsageExpireDatetime),
	intCase(keymint.TagMinSecondsBetweenOps, keymaster.TagMinSecondsBetweenOps, 10, 10),
	intCase(keymint.TagMaxUsesPerBoot, keymaster.TagMaxUsesPerBoot, 3, 3),
	intCase(keymint.TagUserID, keymaster.TagUserID, 10, 10),
	longCase(keymint.TagUserSecureID, keymaster.TagUserSecureID, -1, 0xFFFFFFFFFFFFFFFF),
	boolCase(keymint.TagNoAuthRequired, keymaster.TagNoAuthRequired),
	enumCase(keymint.TagUserAuthType, keymaster.TagUserAuthType, keymint.HardwareAuthenticatorTypeAny, keymaster.HardwareAuthenticatorTypeAny),
	intCase(keymint.TagAuthTimeout, keymaster.TagAuthTimeout, -1, 0xFFFFFFFF),
	boolCase(keymint.TagAllowWhileOnBody, keymaster.TagAllowWhileOnBody),
	boolCase(keymint.TagTrustedUserPresenceRequired, keymaster.TagTrustedUserPresenceRequired),
	boolCase(keymint.TagTrustedConfirmationRequired, keymaster.TagTrustedConfirmationRequired),
	boolCase(keymint.TagUnlockedDeviceRequired, keymaster.TagUnlockedDeviceRequired),
	blobCase(keymint.TagApplicationID, keymaster.TagApplicationID, "com.example.app"),
	blobCase(keymint.TagApplicationData, keymaster.TagApplicationData, "app-data"),
	dateCase(keymint.TagCreationDatetime, keymaster.TagCreationDatetime),
	enumCase(keymint.TagOrigin, keymaster.TagOrigin, keymint.KeyOriginReserved, keymaster.KeyOriginUnknown),
	blobCase(keymint.TagRootOfTrust, keymaster.TagRootOfTrust, "root-of-trust"),
	intCase(keymint.TagOsVersion, keymaster.TagOsVersion, 140000, 140000),
	intCase(keymint.TagOsPatchlevel, keymaster.TagOsPatchlevel, 202310, 202310),
	blobCase(keymint.TagUniqueID, keymaster.TagUniqueID, "unique-id"),
	blobCase(keymint.TagAttestationChallenge, keymaster.TagAttestationChallenge, "challenge"),
	blobCase(keymint.TagAttestationApplicationID, keymaster.TagAttestationApplicationID, "attestation-app-id"),
	blobCase(keymint.TagAttestationIDBrand, keymaster.TagAttestationIDBrand, "brand"),
	blobCase(keymint.TagAttestationIDDevice, keymaster.TagAttestationIDDevice, "device"),
	blobCase(keymint.TagAttestationIDProduct, keymaster.TagAttestationIDProduct, "product"),
	blobCase(keymint.TagAttestationIDManufacturer, keymaster.TagAttestationIDManufacturer, "manufacturer"),
	blobCase(keymint.TagAttestationIDModel, keymaster.TagAttestationIDModel, "model"),
	intCase(keymint.TagVendorPatchlevel, keymaster.TagVendorPatchlevel, 20231005, 20231005),
	intCase(keymint.TagBootPatchlevel, keymaster.TagBootPatchlevel, 20231005, 20231005),
	blobCase(keymint.TagAssociatedData, keymaster.TagAssociatedData, "associated"),
	blobCase(keymint.TagNonce, keymaster.TagNonce, "nonce-123456"),
	intCase(keymint.TagMacLength, keymaster.TagMacLength, 128, 128),
	boolCase(keymint.TagResetSinceIDRotation, keymaster.TagResetSinceIDRotation),
	blobCase(keymint.TagConfirmationToken, keymaster.TagConfirmationToken, "token"),
}

var extensionTagCases = []tagCase{
	boolCase(keymint.TagEarlyBootOnly, keymaster.TagEarlyBootOnly),
	boolCase(keymint.TagDeviceUniqueAttestation, keymaster.TagDeviceUniqueAttestation),
	boolCase(keymint.TagIdentityCredentialKey, keymaster.TagIdentityCredentialKey),
	boolCase(keymint.TagStorageKey, keymaster.TagStorageKey),
}

func requireRoundTrip(t *testing.T, c *Converter, tc tagCase, gen Generation) {
	t.Helper()
	require := require.New(t)

	legacy, err := c.ToLegacy(tc.current, gen)
	require.NoError(err)
	require.Equal(tc.legacy, legacy)

	current, err := c.ToCurrent(legacy, gen)
	require.NoError(err)
	require.Equal(tc.current, current)

	current, err = c.ToCurrent(tc.legacy, gen)
	require.NoError(err)
	require.Equal(tc.current, current)

	legacy, err = c.ToLegacy(current, gen)
	require.NoError(err)
	require.Equal(tc.legacy, legacy)
}

func TestSharedTagsRoundTrip(t *testing.T) {
	c := Default()
	for _, tc := range sharedTagCases {
		for _, gen := range []Generation{LegacyBase, LegacyExtension} {
			t.Run(tc.current.Tag.String()+"/"+gen.String(), func(t *testing.T) {
				requireRoundTrip(t, c, tc, gen)
			})
		}
	}
}

func TestSharedTagCasesCoverRegistry(t *testing.T) {
	require := require.New(t)
	r := DefaultRegistry()

	covered := map[TagID]bool{}
	for _, tc := range sharedTagCases {
		info, err := r.LookupCurrent(tc.current.Tag)
		require.NoError(err)
		covered[info.ID] = true
	}
	for _, info := range r.Tags() {
		if info.Excluded || !info.Generations.Has(LegacyBase) {
			continue
		}
		require.True(covered[info.ID], "no round trip case for %s", info.ID)
	}
}

func TestExtensionTagsRevisionGating(t *testing.T) {
	c := Default()
	for _, tc := range extensionTagCases {
		t.Run(tc.current.Tag.String(), func(t *testing.T) {
			require := require.New(t)

			requireRoundTrip(t, c, tc, LegacyExtension)

			_, err := c.ToLegacy(tc.current, LegacyBase)
			require.ErrorIs(err, ErrUnsupportedOnRevision)

			_, err = c.ToCurrent(tc.legacy, LegacyBase)
			require.ErrorIs(err, ErrUnsupportedOnRevision)
		})
	}
}

func TestEveryEnumValueRoundTrips(t *testing.T) {
	require := require.New(t)
	c := Default()
	e := c.Enums()

	var cases []tagCase
	for _, p := range e.KeyPurpose.Pairs() {
		cases = append(cases, enumCase(keymint.TagPurpose, keymaster.TagPurpose, p.Current, p.Legacy))
	}
	for _, p := range e.Algorithm.Pairs() {
		cases = append(cases, enumCase(keymint.TagAlgorithm, keymaster.TagAlgorithm, p.Current, p.Legacy))
	}
	for _, p := range e.Digest.Pairs() {
		cases = append(cases, enumCase(keymint.TagDigest, keymaster.TagDigest, p.Current, p.Legacy))
	}
	for _, p := range e.EcCurve.Pairs() {
		cases = append(cases, enumCase(keymint.TagEcCurve, keymaster.TagEcCurve, p.Current, p.Legacy))
	}
	for _, p := range e.BlockMode.Pairs() {
		cases = append(cases, enumCase(keymint.TagBlockMode, keymaster.TagBlockMode, p.Current, p.Legacy))
	}
	for _, p := range e.PaddingMode.Pairs() {
		cases = append(cases, enumCase(keymint.TagPadding, keymaster.TagPadding, p.Current, p.Legacy))
	}
	for _, p := range e.HardwareAuthenticatorType.Pairs() {
		cases = append(cases, enumCase(keymint.TagUserAuthType, keymaster.TagUserAuthType, p.Current, p.Legacy))
	}
	for _, p := range e.SecurityLevel.Pairs() {
		cases = append(cases, enumCase(keymint.TagHardwareType, keymaster.TagHardwareType, p.Current, p.Legacy))
	}
	for _, p := range e.KeyOrigin.Pairs() {
		cases = append(cases, enumCase(keymint.TagOrigin, keymaster.TagOrigin, p.Current, p.Legacy))
	}
	require.Len(cases, 5+5+7+4+4+6+4+3+5)

	for _, tc := range cases {
		requireRoundTrip(t, c, tc, LegacyBase)
	}
}

func TestExcludedTagsFailInBothDirections(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		current keymint.KeyParameter
		legacy  keymaster.KeyParameter
	}{
		{
			name:    "imei",
			current: keymint.NewKeyParameter(keymint.TagAttestationIDImei, keymint.Blob("490154203237518")),
			legacy:  keymaster.NewBlob(keymaster.TagAttestationIDImei, []byte("490154203237518")),
		},
		{
			name:    "meid",
			current: keymint.NewKeyParameter(keymint.TagAttestationIDMeid, keymint.Blob("A0000000002329")),
			legacy:  keymaster.NewBlob(keymaster.TagAttestationIDMeid, []byte("A0000000002329")),
		},
		{
			name:    "serial",
			current: keymint.NewKeyParameter(keymint.TagAttestationIDSerial, keymint.Blob("SN-0001")),
			legacy:  keymaster.NewBlob(keymaster.TagAttestationIDSerial, []byte("SN-0001")),
		},
		{
			name:    "empty serial",
			current: keymint.NewKeyParameter(keymint.TagAttestationIDSerial, keymint.Blob(nil)),
			legacy:  keymaster.NewBlob(keymaster.TagAttestationIDSerial, nil),
		},
		{
			name:    "invalid",
			current: keymint.NewKeyParameter(keymint.TagInvalid, keymint.BoolValue(false)),
			legacy:  keymaster.KeyParameter{Tag: keymaster.TagInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			for _, gen := range []Generation{LegacyBase, LegacyExtension} {
				got, err := c.ToLegacy(tt.current, gen)
				require.ErrorIs(err, ErrUnsupportedTag)
				require.Equal(keymaster.KeyParameter{}, got)

				back, err := c.ToCurrent(tt.legacy, gen)
				require.ErrorIs(err, ErrUnsupportedTag)
				require.Equal(keymint.KeyParameter{}, back)
			}
			require.ErrorIs(c.Check(tt.current), ErrUnsupportedTag)
		})
	}
}

func TestCurrentOnlyTagsAndValues(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		param   keymint.KeyParameter
		wantErr error
	}{
		{
			name:    "usage count limit",
			param:   keymint.NewKeyParameter(keymint.TagUsageCountLimit, keymint.Integer(1)),
			wantErr: ErrUnsupportedOnRevision,
		},
		{
			name:    "certificate serial",
			param:   keymint.NewKeyParameter(keymint.TagCertificateSerial, keymint.Blob{0x01}),
			wantErr: ErrUnsupportedOnRevision,
		},
		{
			name:    "oaep mgf digest",
			param:   keymint.NewKeyParameter(keymint.TagRsaOaepMgfDigest, keymint.DigestSHA1),
			wantErr: ErrUnsupportedOnRevision,
		},
		{
			name:    "max boot level",
			param:   keymint.NewKeyParameter(keymint.TagMaxBootLevel, keymint.Integer(3)),
			wantErr: ErrUnsupportedOnRevision,
		},
		{
			name:    "attest key purpose",
			param:   keymint.NewKeyParameter(keymint.TagPurpose, keymint.KeyPurposeAttestKey),
			wantErr: ErrUnsupportedOnRevision,
		},
		{
			name:    "curve 25519",
			param:   keymint.NewKeyParameter(keymint.TagEcCurve, keymint.EcCurveCurve25519),
			wantErr: ErrUnsupportedOnRevision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			for _, gen := range []Generation{LegacyBase, LegacyExtension} {
				_, err := c.ToLegacy(tt.param, gen)
				require.ErrorIs(err, tt.wantErr)
			}
			require.NoError(c.Check(tt.param))
		})
	}
}

func TestToLegacyTypeMismatch(t *testing.T) {
	c := Default()

	tests := []struct {
		name  string
		param keymint.KeyParameter
	}{
		{"integer on enum tag", keymint.NewKeyParameter(keymint.TagAlgorithm, keymint.Integer(32))},
		{"wrong enum domain", keymint.NewKeyParameter(keymint.TagAlgorithm, keymint.DigestSHA1)},
		{"blob on integer tag", keymint.NewKeyParameter(keymint.TagKeySize, keymint.Blob("256"))},
		{"integer on long tag", keymint.NewKeyParameter(keymint.TagRsaPublicExponent, keymint.Integer(3))},
		{"long on date tag", keymint.NewKeyParameter(keymint.TagActiveDatetime, keymint.LongInteger(testDate))},
		{"integer on bool tag", keymint.NewKeyParameter(keymint.TagCallerNonce, keymint.Integer(1))},
		{"bool on bytes tag", keymint.NewKeyParameter(keymint.TagNonce, keymint.BoolValue(true))},
		{"nil payload", keymint.NewKeyParameter(keymint.TagKeySize, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			_, err := c.ToLegacy(tt.param, LegacyExtension)
			require.ErrorIs(err, ErrTypeMismatch)
			require.ErrorIs(c.Check(tt.param), ErrTypeMismatch)
		})
	}
}

func TestToCurrentMalformedLegacy(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		param   keymaster.KeyParameter
		wantErr error
	}{
		{
			name:    "boolean above one",
			param:   keymaster.KeyParameter{Tag: keymaster.TagCallerNonce, F: 2},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "integer wider than 32 bits",
			param:   keymaster.KeyParameter{Tag: keymaster.TagKeySize, F: 1 << 33},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "blob on integer tag",
			param:   keymaster.KeyParameter{Tag: keymaster.TagKeySize, F: 256, Blob: []byte{1}},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "integral value on bytes tag",
			param:   keymaster.KeyParameter{Tag: keymaster.TagNonce, F: 1, Blob: []byte("nonce")},
			wantErr: ErrTypeMismatch,
		},
		{
			name:    "enum outside its domain",
			param:   keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.Algorithm(7)),
			wantErr: ErrUnknownEnumValue,
		},
		{
			name:    "enum wider than 32 bits",
			param:   keymaster.KeyParameter{Tag: keymaster.TagDigest, F: 1 << 40},
			wantErr: ErrUnknownEnumValue,
		},
		{
			name:    "unknown tag",
			param:   keymaster.NewInteger(keymaster.Tag(keymaster.TagTypeUint|9999), 1),
			wantErr: ErrUnknownTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ToCurrent(tt.param, LegacyExtension)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConversionCopiesBlobs(t *testing.T) {
	require := require.New(t)
	c := Default()

	nonce := keymint.Blob("0123456789ab")
	legacy, err := c.ToLegacy(keymint.NewKeyParameter(keymint.TagNonce, nonce), LegacyBase)
	require.NoError(err)
	legacy.Blob[0] = 'X'
	require.Equal(keymint.Blob("0123456789ab"), nonce)

	current, err := c.ToCurrent(legacy, LegacyBase)
	require.NoError(err)
	legacy.Blob[1] = 'Y'
	require.Equal(keymint.Blob("X123456789ab"), current.Value)
}

func TestRejectsNonLegacyGeneration(t *testing.T) {
	require := require.New(t)
	c := Default()

	_, err := c.ToLegacy(keymint.NewKeyParameter(keymint.TagKeySize, keymint.Integer(256)), Current)
	require.Error(err)

	_, err = c.ToCurrent(keymaster.NewInteger(keymaster.TagKeySize, 256), Current)
	require.Error(err)
}
