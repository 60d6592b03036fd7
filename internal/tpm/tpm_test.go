package tpm

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/flightctl/kmcompat/internal/bridge"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/paramfile"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// These unit tests all use the tpm simulator from go-tpm-tools.

var _ bridge.KeyMintDevice = (*Engine)(nil)

var testNow = time.UnixMilli(1_700_000_000_000)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	e, err := OpenSimulator(log)
	if err != nil {
		t.Skipf("TPM simulator unavailable: %v", err)
	}
	e.now = func() time.Time { return testNow }
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func signingKeyRequest() []keymint.KeyParameter {
	return []keymint.KeyParameter{
		kp(keymint.TagAlgorithm, keymint.AlgorithmEC),
		kp(keymint.TagEcCurve, keymint.EcCurveP256),
		kp(keymint.TagPurpose, keymint.KeyPurposeSign),
		kp(keymint.TagDigest, keymint.DigestSHA2_256),
		kp(keymint.TagNoAuthRequired, keymint.BoolValue(true)),
		kp(keymint.TagApplicationID, keymint.Blob("com.example.app")),
		kp(keymint.TagAttestationChallenge, keymint.Blob("challenge")),
		kp(keymint.TagActiveDatetime, keymint.DateTime(1_690_000_000_000)),
		kp(keymint.TagUserSecureID, keymint.LongInteger(42)),
	}
}

func TestEngineHardwareInfo(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)

	info, err := e.GetHardwareInfo(context.Background())
	require.NoError(err)
	require.Equal(int32(engineVersion), info.VersionNumber)
	require.Equal(keymint.SecurityLevelTrustedEnvironment, info.SecurityLevel)
	require.Equal(engineName, info.KeyMintName)
	require.NotEmpty(info.KeyMintAuthorName)
}

func TestEngineGenerateKey(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)
	ctx := context.Background()

	res, err := e.GenerateKey(ctx, signingKeyRequest())
	require.NoError(err)
	require.NotEmpty(res.KeyBlob)

	want := []keymint.KeyCharacteristics{
		{
			SecurityLevel: keymint.SecurityLevelTrustedEnvironment,
			Authorizations: []keymint.KeyParameter{
				kp(keymint.TagAlgorithm, keymint.AlgorithmEC),
				kp(keymint.TagEcCurve, keymint.EcCurveP256),
				kp(keymint.TagPurpose, keymint.KeyPurposeSign),
				kp(keymint.TagDigest, keymint.DigestSHA2_256),
				kp(keymint.TagNoAuthRequired, keymint.BoolValue(true)),
				kp(keymint.TagOrigin, keymint.KeyOriginGenerated),
			},
		},
		{
			SecurityLevel: keymint.SecurityLevelKeystore,
			Authorizations: []keymint.KeyParameter{
				kp(keymint.TagActiveDatetime, keymint.DateTime(1_690_000_000_000)),
				kp(keymint.TagUserSecureID, keymint.LongInteger(42)),
				kp(keymint.TagCreationDatetime, keymint.DateTime(testNow.UnixMilli())),
			},
		},
	}
	if diff := cmp.Diff(want, res.KeyCharacteristics); diff != "" {
		t.Errorf("characteristics mismatch (-want +got):\n%s", diff)
	}

	chars, err := e.GetKeyCharacteristics(ctx, res.KeyBlob, []byte("com.example.app"), nil)
	require.NoError(err)
	if diff := cmp.Diff(want, chars); diff != "" {
		t.Errorf("stored characteristics mismatch (-want +got):\n%s", diff)
	}

	_, err = e.GetKeyCharacteristics(ctx, res.KeyBlob, []byte("com.example.other"), nil)
	require.ErrorIs(err, ErrInvalidApplication)
	_, err = e.GetKeyCharacteristics(ctx, res.KeyBlob, nil, nil)
	require.ErrorIs(err, ErrInvalidApplication)
}

func TestEngineRSAKey(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)

	res, err := e.GenerateKey(context.Background(), []keymint.KeyParameter{
		kp(keymint.TagAlgorithm, keymint.AlgorithmRSA),
		kp(keymint.TagKeySize, keymint.Integer(2048)),
		kp(keymint.TagPurpose, keymint.KeyPurposeDecrypt),
		kp(keymint.TagDigest, keymint.DigestSHA2_256),
		kp(keymint.TagPadding, keymint.PaddingModeRSAOAEP),
	})
	require.NoError(err)

	blob, err := parseKeyBlob(res.KeyBlob)
	require.NoError(err)
	public, err := blob.Public()
	require.NoError(err)
	contents, err := public.Contents()
	require.NoError(err)
	parms, err := contents.Parameters.RSADetail()
	require.NoError(err)
	require.EqualValues(2048, parms.KeyBits)
	require.True(contents.ObjectAttributes.Decrypt)
}

func TestEngineBegin(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)
	ctx := context.Background()

	res, err := e.GenerateKey(ctx, signingKeyRequest())
	require.NoError(err)

	appID := []keymint.KeyParameter{kp(keymint.TagApplicationID, keymint.Blob("com.example.app"))}
	first, out, err := e.Begin(ctx, keymint.KeyPurposeSign, res.KeyBlob, appID)
	require.NoError(err)
	require.Empty(out)
	second, _, err := e.Begin(ctx, keymint.KeyPurposeSign, res.KeyBlob, appID)
	require.NoError(err)
	require.NotEqual(first, second)

	_, _, err = e.Begin(ctx, keymint.KeyPurposeDecrypt, res.KeyBlob, appID)
	require.ErrorIs(err, ErrIncompatiblePurpose)

	_, _, err = e.Begin(ctx, keymint.KeyPurposeSign, res.KeyBlob, nil)
	require.ErrorIs(err, ErrInvalidApplication)
}

func TestEngineRejectsForeignBlobs(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)
	ctx := context.Background()

	_, err := e.GetKeyCharacteristics(ctx, []byte("not a key"), nil, nil)
	require.ErrorIs(err, ErrInvalidKeyBlob)

	res, err := e.GenerateKey(ctx, []keymint.KeyParameter{
		kp(keymint.TagAlgorithm, keymint.AlgorithmEC),
		kp(keymint.TagPurpose, keymint.KeyPurposeSign),
	})
	require.NoError(err)
	blob, err := parseKeyBlob(res.KeyBlob)
	require.NoError(err)

	tampered := *blob
	tampered.PrivateBlob = "AAQBAgME"
	data, err := tampered.Marshal()
	require.NoError(err)
	_, err = e.GetKeyCharacteristics(ctx, data, nil, nil)
	require.ErrorIs(err, ErrInvalidKeyBlob)

	tampered = *blob
	tampered.Version = 2
	data, err = tampered.Marshal()
	require.NoError(err)
	_, err = e.GetKeyCharacteristics(ctx, data, nil, nil)
	require.ErrorIs(err, ErrInvalidKeyBlob)
}

func TestEngineRejectsEditedAuthorizations(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)
	ctx := context.Background()

	res, err := e.GenerateKey(ctx, signingKeyRequest())
	require.NoError(err)
	blob, err := parseKeyBlob(res.KeyBlob)
	require.NoError(err)

	_, err = e.GetKeyCharacteristics(ctx, res.KeyBlob, nil, nil)
	require.ErrorIs(err, ErrInvalidApplication)

	hardware, _, err := blob.Authorizations()
	require.NoError(err)
	edited := *blob
	edited.AppID = ""
	edited.Hardware, err = paramfile.Default().ToDocument(compat.CurrentList(
		append(hardware, kp(keymint.TagPurpose, keymint.KeyPurposeDecrypt))...,
	))
	require.NoError(err)
	data, err := edited.Marshal()
	require.NoError(err)

	_, err = e.GetKeyCharacteristics(ctx, data, nil, nil)
	require.ErrorIs(err, ErrInvalidKeyBlob)
	_, _, err = e.Begin(ctx, keymint.KeyPurposeDecrypt, data, nil)
	require.ErrorIs(err, ErrInvalidKeyBlob)

	appID := []keymint.KeyParameter{kp(keymint.TagApplicationID, keymint.Blob("com.example.app"))}
	_, _, err = e.Begin(ctx, keymint.KeyPurposeSign, res.KeyBlob, appID)
	require.NoError(err)
}

// A legacy client generating a key through the bridge sees the engine's
// characteristics split into hardware and software enforced lists.
func TestEngineBehindLegacyAdapter(t *testing.T) {
	require := require.New(t)
	e := openTestEngine(t)

	log := logrus.New()
	log.SetOutput(io.Discard)
	legacy, err := bridge.NewLegacyAdapter(e, compat.LegacyBase, bridge.WithLogger(log))
	require.NoError(err)

	info, err := legacy.GetHardwareInfo(context.Background())
	require.NoError(err)
	require.Equal(keymaster.SecurityLevelTrustedEnvironment, info.SecurityLevel)

	res, err := legacy.GenerateKey(context.Background(), []keymaster.KeyParameter{
		keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmEC),
		keymaster.NewEnum(keymaster.TagPurpose, keymaster.KeyPurposeSign),
		keymaster.NewEnum(keymaster.TagDigest, keymaster.DigestSHA2_256),
	})
	require.NoError(err)
	require.Equal([]keymaster.KeyParameter{
		keymaster.NewEnum(keymaster.TagAlgorithm, keymaster.AlgorithmEC),
		keymaster.NewEnum(keymaster.TagPurpose, keymaster.KeyPurposeSign),
		keymaster.NewEnum(keymaster.TagDigest, keymaster.DigestSHA2_256),
		keymaster.NewEnum(keymaster.TagOrigin, keymaster.KeyOriginGenerated),
	}, res.KeyCharacteristics.HardwareEnforced)
	require.Equal([]keymaster.KeyParameter{
		keymaster.NewDateTime(keymaster.TagCreationDatetime, uint64(testNow.UnixMilli())),
	}, res.KeyCharacteristics.SoftwareEnforced)
}
