package keymaster

import (
	"fmt"
	"strings"
)

type KeyPurpose uint32

const (
	KeyPurposeEncrypt KeyPurpose = 0
	KeyPurposeDecrypt KeyPurpose = 1
	KeyPurposeSign    KeyPurpose = 2
	KeyPurposeVerify  KeyPurpose = 3
	KeyPurposeWrapKey KeyPurpose = 5
)

type Algorithm uint32

const (
	AlgorithmRSA       Algorithm = 1
	AlgorithmEC        Algorithm = 3
	AlgorithmAES       Algorithm = 32
	AlgorithmTripleDES Algorithm = 33
	AlgorithmHMAC      Algorithm = 128
)

type Digest uint32

const (
	DigestNone     Digest = 0
	DigestMD5      Digest = 1
	DigestSHA1     Digest = 2
	DigestSHA2_224 Digest = 3
	DigestSHA2_256 Digest = 4
	DigestSHA2_384 Digest = 5
	DigestSHA2_512 Digest = 6
)

type EcCurve uint32

const (
	EcCurveP224 EcCurve = 0
	EcCurveP256 EcCurve = 1
	EcCurveP384 EcCurve = 2
	EcCurveP521 EcCurve = 3
)

type BlockMode uint32

const (
	BlockModeECB BlockMode = 1
	BlockModeCBC BlockMode = 2
	BlockModeCTR BlockMode = 3
	BlockModeGCM BlockMode = 32
)

type PaddingMode uint32

const (
	PaddingModeNone                PaddingMode = 1
	PaddingModeRSAOAEP             PaddingMode = 2
	PaddingModeRSAPSS              PaddingMode = 3
	PaddingModeRSAPKCS1_1_5Encrypt PaddingMode = 4
	PaddingModeRSAPKCS1_1_5Sign    PaddingMode = 5
	PaddingModePKCS7               PaddingMode = 64
)

type HardwareAuthenticatorType uint32

const (
	HardwareAuthenticatorTypeNone        HardwareAuthenticatorType = 0
	HardwareAuthenticatorTypePassword    HardwareAuthenticatorType = 1
	HardwareAuthenticatorTypeFingerprint HardwareAuthenticatorType = 2
	HardwareAuthenticatorTypeAny         HardwareAuthenticatorType = 0xFFFFFFFF
)

type SecurityLevel uint32

const (
	SecurityLevelSoftware           SecurityLevel = 0
	SecurityLevelTrustedEnvironment SecurityLevel = 1
	SecurityLevelStrongBox          SecurityLevel = 2
)

type KeyOrigin uint32

const (
	KeyOriginGenerated KeyOrigin = 0
	KeyOriginDerived   KeyOrigin = 1
	KeyOriginImported  KeyOrigin = 2
	// KeyOriginUnknown is reported for keys whose origin the module cannot vouch for.
	KeyOriginUnknown          KeyOrigin = 3
	KeyOriginSecurelyImported KeyOrigin = 4
)

var keyPurposeNames = map[KeyPurpose]string{
	KeyPurposeEncrypt: "ENCRYPT",
	KeyPurposeDecrypt: "DECRYPT",
	KeyPurposeSign:    "SIGN",
	KeyPurposeVerify:  "VERIFY",
	KeyPurposeWrapKey: "WRAP_KEY",
}

var algorithmNames = map[Algorithm]string{
	AlgorithmRSA:       "RSA",
	AlgorithmEC:        "EC",
	AlgorithmAES:       "AES",
	AlgorithmTripleDES: "TRIPLE_DES",
	AlgorithmHMAC:      "HMAC",
}

var digestNames = map[Digest]string{
	DigestNone:     "NONE",
	DigestMD5:      "MD5",
	DigestSHA1:     "SHA1",
	DigestSHA2_224: "SHA_2_224",
	DigestSHA2_256: "SHA_2_256",
	DigestSHA2_384: "SHA_2_384",
	DigestSHA2_512: "SHA_2_512",
}

var ecCurveNames = map[EcCurve]string{
	EcCurveP224: "P_224",
	EcCurveP256: "P_256",
	EcCurveP384: "P_384",
	EcCurveP521: "P_521",
}

var blockModeNames = map[BlockMode]string{
	BlockModeECB: "ECB",
	BlockModeCBC: "CBC",
	BlockModeCTR: "CTR",
	BlockModeGCM: "GCM",
}

var paddingModeNames = map[PaddingMode]string{
	PaddingModeNone:                "NONE",
	PaddingModeRSAOAEP:             "RSA_OAEP",
	PaddingModeRSAPSS:              "RSA_PSS",
	PaddingModeRSAPKCS1_1_5Encrypt: "RSA_PKCS1_1_5_ENCRYPT",
	PaddingModeRSAPKCS1_1_5Sign:    "RSA_PKCS1_1_5_SIGN",
	PaddingModePKCS7:               "PKCS7",
}

var hardwareAuthenticatorTypeNames = map[HardwareAuthenticatorType]string{
	HardwareAuthenticatorTypeNone:        "NONE",
	HardwareAuthenticatorTypePassword:    "PASSWORD",
	HardwareAuthenticatorTypeFingerprint: "FINGERPRINT",
	HardwareAuthenticatorTypeAny:         "ANY",
}

var securityLevelNames = map[SecurityLevel]string{
	SecurityLevelSoftware:           "SOFTWARE",
	SecurityLevelTrustedEnvironment: "TRUSTED_ENVIRONMENT",
	SecurityLevelStrongBox:          "STRONGBOX",
}

var keyOriginNames = map[KeyOrigin]string{
	KeyOriginGenerated:        "GENERATED",
	KeyOriginDerived:          "DERIVED",
	KeyOriginImported:         "IMPORTED",
	KeyOriginUnknown:          "UNKNOWN",
	KeyOriginSecurelyImported: "SECURELY_IMPORTED",
}

func enumString[E ~uint32](names map[E]string, kind string, v E) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", kind, uint32(v))
}

func (v KeyPurpose) String() string {
	return enumString(keyPurposeNames, "KeyPurpose", v)
}

func (v Algorithm) String() string {
	return enumString(algorithmNames, "Algorithm", v)
}

func (v Digest) String() string {
	return enumString(digestNames, "Digest", v)
}

func (v EcCurve) String() string {
	return enumString(ecCurveNames, "EcCurve", v)
}

func (v BlockMode) String() string {
	return enumString(blockModeNames, "BlockMode", v)
}

func (v PaddingMode) String() string {
	return enumString(paddingModeNames, "PaddingMode", v)
}

// String renders combinations of authenticator bits as "PASSWORD|FINGERPRINT".
func (v HardwareAuthenticatorType) String() string {
	if _, ok := hardwareAuthenticatorTypeNames[v]; ok || v <= 0 {
		return enumString(hardwareAuthenticatorTypeNames, "HardwareAuthenticatorType", v)
	}
	var names []string
	rest := v
	for _, bit := range []HardwareAuthenticatorType{HardwareAuthenticatorTypePassword, HardwareAuthenticatorTypeFingerprint} {
		if rest&bit != 0 {
			names = append(names, hardwareAuthenticatorTypeNames[bit])
			rest &^= bit
		}
	}
	if rest != 0 {
		return enumString(hardwareAuthenticatorTypeNames, "HardwareAuthenticatorType", v)
	}
	return strings.Join(names, "|")
}

func (v SecurityLevel) String() string {
	return enumString(securityLevelNames, "SecurityLevel", v)
}

func (v KeyOrigin) String() string {
	return enumString(keyOriginNames, "KeyOrigin", v)
}
