package compat

import (
	"fmt"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

// EnumMaps holds the value table of every enumerated domain.
type EnumMaps struct {
	KeyPurpose                *EnumMap[keymint.KeyPurpose, keymaster.KeyPurpose]
	Algorithm                 *EnumMap[keymint.Algorithm, keymaster.Algorithm]
	Digest                    *EnumMap[keymint.Digest, keymaster.Digest]
	EcCurve                   *EnumMap[keymint.EcCurve, keymaster.EcCurve]
	BlockMode                 *EnumMap[keymint.BlockMode, keymaster.BlockMode]
	PaddingMode               *EnumMap[keymint.PaddingMode, keymaster.PaddingMode]
	HardwareAuthenticatorType *EnumMap[keymint.HardwareAuthenticatorType, keymaster.HardwareAuthenticatorType]
	SecurityLevel             *EnumMap[keymint.SecurityLevel, keymaster.SecurityLevel]
	KeyOrigin                 *EnumMap[keymint.KeyOrigin, keymaster.KeyOrigin]

	byDomain map[Domain]enumCodec
}

func newEnumMaps() *EnumMaps {
	e := &EnumMaps{
		KeyPurpose: mustEnumMap(DomainKeyPurpose, []EnumPair[keymint.KeyPurpose, keymaster.KeyPurpose]{
			pair(keymint.KeyPurposeEncrypt, keymaster.KeyPurposeEncrypt),
			pair(keymint.KeyPurposeDecrypt, keymaster.KeyPurposeDecrypt),
			pair(keymint.KeyPurposeSign, keymaster.KeyPurposeSign),
			pair(keymint.KeyPurposeVerify, keymaster.KeyPurposeVerify),
			pair(keymint.KeyPurposeWrapKey, keymaster.KeyPurposeWrapKey),
		}, keymint.KeyPurposeAgreeKey, keymint.KeyPurposeAttestKey),

		Algorithm: mustEnumMap(DomainAlgorithm, []EnumPair[keymint.Algorithm, keymaster.Algorithm]{
			pair(keymint.AlgorithmRSA, keymaster.AlgorithmRSA),
			pair(keymint.AlgorithmEC, keymaster.AlgorithmEC),
			pair(keymint.AlgorithmAES, keymaster.AlgorithmAES),
			pair(keymint.AlgorithmTripleDES, keymaster.AlgorithmTripleDES),
			pair(keymint.AlgorithmHMAC, keymaster.AlgorithmHMAC),
		}),

		Digest: mustEnumMap(DomainDigest, []EnumPair[keymint.Digest, keymaster.Digest]{
			pair(keymint.DigestNone, keymaster.DigestNone),
			pair(keymint.DigestMD5, keymaster.DigestMD5),
			pair(keymint.DigestSHA1, keymaster.DigestSHA1),
			pair(keymint.DigestSHA2_224, keymaster.DigestSHA2_224),
			pair(keymint.DigestSHA2_256, keymaster.DigestSHA2_256),
			pair(keymint.DigestSHA2_384, keymaster.DigestSHA2_384),
			pair(keymint.DigestSHA2_512, keymaster.DigestSHA2_512),
		}),

		EcCurve: mustEnumMap(DomainEcCurve, []EnumPair[keymint.EcCurve, keymaster.EcCurve]{
			pair(keymint.EcCurveP224, keymaster.EcCurveP224),
			pair(keymint.EcCurveP256, keymaster.EcCurveP256),
			pair(keymint.EcCurveP384, keymaster.EcCurveP384),
			pair(keymint.EcCurveP521, keymaster.EcCurveP521),
		}, keymint.EcCurveCurve25519),

		BlockMode: mustEnumMap(DomainBlockMode, []EnumPair[keymint.BlockMode, keymaster.BlockMode]{
			pair(keymint.BlockModeECB, keymaster.BlockModeECB),
			pair(keymint.BlockModeCBC, keymaster.BlockModeCBC),
			pair(keymint.BlockModeCTR, keymaster.BlockModeCTR),
			pair(keymint.BlockModeGCM, keymaster.BlockModeGCM),
		}),

		PaddingMode: mustEnumMap(DomainPaddingMode, []EnumPair[keymint.PaddingMode, keymaster.PaddingMode]{
			pair(keymint.PaddingModeNone, keymaster.PaddingModeNone),
			pair(keymint.PaddingModeRSAOAEP, keymaster.PaddingModeRSAOAEP),
			pair(keymint.PaddingModeRSAPSS, keymaster.PaddingModeRSAPSS),
			pair(keymint.PaddingModeRSAPKCS1_1_5Encrypt, keymaster.PaddingModeRSAPKCS1_1_5Encrypt),
			pair(keymint.PaddingModeRSAPKCS1_1_5Sign, keymaster.PaddingModeRSAPKCS1_1_5Sign),
			pair(keymint.PaddingModePKCS7, keymaster.PaddingModePKCS7),
		}),

		HardwareAuthenticatorType: mustEnumMap(DomainHardwareAuthenticatorType, []EnumPair[keymint.HardwareAuthenticatorType, keymaster.HardwareAuthenticatorType]{
			pair(keymint.HardwareAuthenticatorTypeNone, keymaster.HardwareAuthenticatorTypeNone),
			pair(keymint.HardwareAuthenticatorTypePassword, keymaster.HardwareAuthenticatorTypePassword),
			pair(keymint.HardwareAuthenticatorTypeFingerprint, keymaster.HardwareAuthenticatorTypeFingerprint),
			// -1 on the current side, 0xFFFFFFFF on the legacy side.
			pair(keymint.HardwareAuthenticatorTypeAny, keymaster.HardwareAuthenticatorTypeAny),
		}).withFlags(),

		SecurityLevel: mustEnumMap(DomainSecurityLevel, []EnumPair[keymint.SecurityLevel, keymaster.SecurityLevel]{
			pair(keymint.SecurityLevelSoftware, keymaster.SecurityLevelSoftware),
			pair(keymint.SecurityLevelTrustedEnvironment, keymaster.SecurityLevelTrustedEnvironment),
			pair(keymint.SecurityLevelStrongBox, keymaster.SecurityLevelStrongBox),
		}, keymint.SecurityLevelKeystore),

		KeyOrigin: mustEnumMap(DomainKeyOrigin, []EnumPair[keymint.KeyOrigin, keymaster.KeyOrigin]{
			pair(keymint.KeyOriginGenerated, keymaster.KeyOriginGenerated),
			pair(keymint.KeyOriginDerived, keymaster.KeyOriginDerived),
			pair(keymint.KeyOriginImported, keymaster.KeyOriginImported),
			// Same concept, renamed between the schemas.
			pair(keymint.KeyOriginReserved, keymaster.KeyOriginUnknown),
			pair(keymint.KeyOriginSecurelyImported, keymaster.KeyOriginSecurelyImported),
		}),
	}

	e.byDomain = map[Domain]enumCodec{
		DomainKeyPurpose:                e.KeyPurpose,
		DomainAlgorithm:                 e.Algorithm,
		DomainDigest:                    e.Digest,
		DomainEcCurve:                   e.EcCurve,
		DomainBlockMode:                 e.BlockMode,
		DomainPaddingMode:               e.PaddingMode,
		DomainHardwareAuthenticatorType: e.HardwareAuthenticatorType,
		DomainSecurityLevel:             e.SecurityLevel,
		DomainKeyOrigin:                 e.KeyOrigin,
	}
	return e
}

var defaultEnumMaps = newEnumMaps()

// DefaultEnumMaps returns the value tables of this build.
func DefaultEnumMaps() *EnumMaps {
	return defaultEnumMaps
}

func (e *EnumMaps) codec(d Domain) (enumCodec, error) {
	c, ok := e.byDomain[d]
	if !ok {
		return nil, fmt.Errorf("no value map for domain %s", d)
	}
	return c, nil
}

// Convert translates a single value of a domain. Current values are passed as
// their int32 number, legacy values as their uint32 number.
func (e *EnumMaps) Convert(d Domain, v int64, dir Direction) (int64, error) {
	c, err := e.codec(d)
	if err != nil {
		return 0, err
	}
	return c.convert(v, dir)
}

// ParseCurrent resolves a current value of the domain by name.
func (e *EnumMaps) ParseCurrent(d Domain, name string) (keymint.KeyParameterValue, error) {
	c, err := e.codec(d)
	if err != nil {
		return nil, err
	}
	v, ok := c.parseCurrent(normalizeName(name))
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a current %s value", ErrUnknownEnumValue, name, d)
	}
	return v, nil
}

// ParseLegacy resolves a legacy value of the domain by name.
func (e *EnumMaps) ParseLegacy(d Domain, name string) (uint32, error) {
	c, err := e.codec(d)
	if err != nil {
		return 0, err
	}
	v, ok := c.parseLegacy(normalizeName(name))
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a legacy %s value", ErrUnknownEnumValue, name, d)
	}
	return v, nil
}

// LegacyName returns the symbolic name of a legacy value.
func (e *EnumMaps) LegacyName(d Domain, raw uint32) string {
	c, err := e.codec(d)
	if err != nil {
		return fmt.Sprintf("%d", raw)
	}
	return c.legacyName(raw)
}

// CurrentName returns the symbolic name of a current value.
func (e *EnumMaps) CurrentName(d Domain, v int32) string {
	c, err := e.codec(d)
	if err != nil {
		return fmt.Sprintf("%d", v)
	}
	return c.currentName(v)
}

// ParseCurrentNumber is ParseCurrent returning the numeric value.
func (e *EnumMaps) ParseCurrentNumber(d Domain, name string) (int32, error) {
	v, err := e.ParseCurrent(d, name)
	if err != nil {
		return 0, err
	}
	c, _ := e.codec(d)
	n, ok := c.currentNumber(v)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not a %s value", ErrTypeMismatch, v, d)
	}
	return n, nil
}
