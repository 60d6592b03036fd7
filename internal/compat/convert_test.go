package compat

import (
	"errors"
	"testing"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func ecSigningKey() ParameterList {
	return CurrentList(
		keymint.NewKeyParameter(keymint.TagAlgorithm, keymint.AlgorithmEC),
		keymint.NewKeyParameter(keymint.TagEcCurve, keymint.EcCurveP256),
		keymint.NewKeyParameter(keymint.TagPurpose, keymint.KeyPurposeSign),
		keymint.NewKeyParameter(keymint.TagPurpose, keymint.KeyPurposeVerify),
		keymint.NewKeyParameter(keymint.TagDigest, keymint.DigestSHA2_256),
		keymint.NewKeyParameter(keymint.TagDigest, keymint.DigestNone),
		keymint.NewKeyParameter(keymint.TagNoAuthRequired, keymint.BoolValue(true)),
		keymint.NewKeyParameter(keymint.TagAttestationChallenge, keymint.Blob("challenge")),
		keymint.NewKeyParameter(keymint.TagActiveDatetime, keymint.DateTime(testDate)),
	)
}

func TestConvertListRoundTrip(t *testing.T) {
	require := require.New(t)
	c := Default()
	list := ecSigningKey()

	legacy, err := c.Convert(list, LegacyBase)
	require.NoError(err)
	require.Equal(LegacyBase, legacy.Generation)
	require.Len(legacy.Legacy, list.Len())
	require.Nil(legacy.Current)

	// Order and repeated tags survive.
	require.Equal(keymaster.NewEnum(keymaster.TagPurpose, keymaster.KeyPurposeSign), legacy.Legacy[2])
	require.Equal(keymaster.NewEnum(keymaster.TagPurpose, keymaster.KeyPurposeVerify), legacy.Legacy[3])

	back, err := c.Convert(legacy, Current)
	require.NoError(err)
	if diff := cmp.Diff(list, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertScenarios(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		current keymint.KeyParameter
		legacy  keymaster.KeyParameter
	}{
		{
			name:    "aes keeps its name",
			current: keymint.NewKeyParameter(keymint.TagAlgorithm, keymint.AlgorithmAES),
			legacy:  keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmAES),
		},
		{
			name:    "reserved origin becomes unknown",
			current: keymint.NewKeyParameter(keymint.TagOrigin, keymint.KeyOriginReserved),
			legacy:  keymaster.NewEnum(keymaster.TagOrigin, keymaster.KeyOriginUnknown),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			legacy, err := c.Convert(CurrentList(tt.current), LegacyBase)
			require.NoError(err)
			require.Equal([]keymaster.KeyParameter{tt.legacy}, legacy.Legacy)

			back, err := c.Convert(legacy, Current)
			require.NoError(err)
			require.Equal([]keymint.KeyParameter{tt.current}, back.Current)
		})
	}
}

func TestConvertFailsFast(t *testing.T) {
	require := require.New(t)
	c := Default()

	list := CurrentList(
		keymint.NewKeyParameter(keymint.TagAlgorithm, keymint.AlgorithmEC),
		keymint.NewKeyParameter(keymint.TagAttestationIDImei, keymint.Blob("490154203237518")),
		keymint.NewKeyParameter(keymint.TagKeySize, keymint.Integer(256)),
	)

	out, err := c.Convert(list, LegacyExtension)
	require.ErrorIs(err, ErrUnsupportedTag)
	require.Equal(ParameterList{}, out)

	var cerr *ConversionError
	require.True(errors.As(err, &cerr))
	require.Equal(1, cerr.Index)
	require.Equal("ATTESTATION_ID_IMEI", cerr.Tag)

	legacy := LegacyList(LegacyBase,
		keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmEC),
		keymaster.NewInteger(keymaster.TagKeySize, 256),
		keymaster.NewBool(keymaster.TagEarlyBootOnly, true),
	)
	out, err = c.Convert(legacy, Current)
	require.ErrorIs(err, ErrUnsupportedOnRevision)
	require.Equal(ParameterList{}, out)
	require.True(errors.As(err, &cerr))
	require.Equal(2, cerr.Index)
}

func TestConvertBetweenLegacyRevisions(t *testing.T) {
	require := require.New(t)
	c := Default()

	base := LegacyList(LegacyBase,
		keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmHMAC),
		keymaster.NewEnum(keymaster.TagDigest, keymaster.DigestSHA2_512),
		keymaster.NewInteger(keymaster.TagMinMacLength, 256),
	)
	ext, err := c.Convert(base, LegacyExtension)
	require.NoError(err)
	require.Equal(LegacyExtension, ext.Generation)
	require.Equal(base.Legacy, ext.Legacy)

	withEarlyBoot := LegacyList(LegacyExtension,
		keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmAES),
		keymaster.NewBool(keymaster.TagEarlyBootOnly, true),
	)
	_, err = c.Convert(withEarlyBoot, LegacyBase)
	require.ErrorIs(err, ErrUnsupportedOnRevision)
}

func TestConvertSameGenerationValidates(t *testing.T) {
	require := require.New(t)
	c := Default()

	list := CurrentList(
		keymint.NewKeyParameter(keymint.TagPurpose, keymint.KeyPurposeAttestKey),
		keymint.NewKeyParameter(keymint.TagUsageCountLimit, keymint.Integer(1)),
		keymint.NewKeyParameter(keymint.TagNonce, keymint.Blob("nonce")),
	)
	out, err := c.Convert(list, Current)
	require.NoError(err)
	require.Equal(list, out)

	out.Current[2].Value.(keymint.Blob)[0] = 'N'
	require.Equal(keymint.Blob("nonce"), list.Current[2].Value)

	bad := CurrentList(keymint.NewKeyParameter(keymint.TagKeySize, keymint.BoolValue(true)))
	_, err = c.Convert(bad, Current)
	require.ErrorIs(err, ErrTypeMismatch)

	malformed := LegacyList(LegacyBase, keymaster.KeyParameter{Tag: keymaster.TagCallerNonce, F: 7})
	_, err = c.Convert(malformed, LegacyBase)
	require.ErrorIs(err, ErrTypeMismatch)
}

func TestConvertUnknownGeneration(t *testing.T) {
	require := require.New(t)
	c := Default()

	_, err := c.Convert(ecSigningKey(), Generation(9))
	require.Error(err)

	_, err = c.Convert(ParameterList{Generation: Generation(9)}, Current)
	require.Error(err)
}

func TestConvertEmptyList(t *testing.T) {
	require := require.New(t)
	c := Default()

	out, err := c.Convert(CurrentList(), LegacyBase)
	require.NoError(err)
	require.Equal(0, out.Len())
}

func TestConcurrentConversions(t *testing.T) {
	c := Default()
	list := ecSigningKey()

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			legacy, err := c.Convert(list, LegacyExtension)
			if err != nil {
				return err
			}
			_, err = c.Convert(legacy, Current)
			return err
		})
	}
	require.NoError(t, g.Wait())
}

func TestVersionAdapter(t *testing.T) {
	require := require.New(t)
	a := Default().Versions()

	rev, err := a.TargetRevision("ALGORITHM")
	require.NoError(err)
	require.Equal(LegacyBase, rev)

	rev, err = a.TargetRevision("STORAGE_KEY")
	require.NoError(err)
	require.Equal(LegacyExtension, rev)

	_, err = a.TargetRevision("MAX_BOOT_LEVEL")
	require.ErrorIs(err, ErrUnsupportedOnRevision)

	_, err = a.TargetRevision("NOT_A_TAG")
	require.ErrorIs(err, ErrUnknownTag)

	require.NoError(a.CheckTarget("STORAGE_KEY", LegacyExtension))
	require.ErrorIs(a.CheckTarget("STORAGE_KEY", LegacyBase), ErrUnsupportedOnRevision)
	require.NoError(a.CheckTarget("STORAGE_KEY", Current))

	rev, err = a.MinimumRevision([]TagID{"ALGORITHM", "KEY_SIZE"})
	require.NoError(err)
	require.Equal(LegacyBase, rev)

	rev, err = a.MinimumRevision([]TagID{"ALGORITHM", "DEVICE_UNIQUE_ATTESTATION"})
	require.NoError(err)
	require.Equal(LegacyExtension, rev)

	ids, err := ecSigningKey().TagIDs(DefaultRegistry())
	require.NoError(err)
	require.Equal(TagID("ALGORITHM"), ids[0])
	require.Len(ids, 9)
}
