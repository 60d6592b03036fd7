package tpm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ccoveille/go-safecast"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-tpm/tpm2"
	"github.com/samber/lo"
)

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")
	ErrInvalidKeyParameters = errors.New("invalid key parameters")
)

const defaultRSAExponent = 65537

type curveDef struct {
	id   tpm2.TPMECCCurve
	bits int32
}

var curves = map[keymint.EcCurve]curveDef{
	keymint.EcCurveP224: {id: tpm2.TPMECCNistP224, bits: 224},
	keymint.EcCurveP256: {id: tpm2.TPMECCNistP256, bits: 256},
	keymint.EcCurveP384: {id: tpm2.TPMECCNistP384, bits: 384},
	keymint.EcCurveP521: {id: tpm2.TPMECCNistP521, bits: 521},
}

var hashAlgs = map[keymint.Digest]tpm2.TPMAlgID{
	keymint.DigestSHA1:     tpm2.TPMAlgSHA1,
	keymint.DigestSHA2_256: tpm2.TPMAlgSHA256,
	keymint.DigestSHA2_384: tpm2.TPMAlgSHA384,
	keymint.DigestSHA2_512: tpm2.TPMAlgSHA512,
}

var rsaKeySizes = []int32{1024, 2048, 3072, 4096}

// keySpec is the part of a parameter list the TPM itself enforces.
type keySpec struct {
	algorithm keymint.Algorithm
	keySize   int32
	curve     keymint.EcCurve
	hasCurve  bool
	exponent  uint32
	purposes  []keymint.KeyPurpose
	hashes    []tpm2.TPMAlgID
	paddings  []keymint.PaddingMode
	noAuth    bool
}

func (s keySpec) has(purposes ...keymint.KeyPurpose) bool {
	return lo.Some(s.purposes, purposes)
}

func parseKeySpec(params []keymint.KeyParameter) (keySpec, error) {
	var spec keySpec
	converter := compat.Default()
	for _, p := range params {
		if err := converter.Check(p); err != nil {
			return keySpec{}, fmt.Errorf("%s: %w", p.Tag, err)
		}
	}

	algorithm, ok := keymint.Find(params, keymint.TagAlgorithm)
	if !ok {
		return keySpec{}, fmt.Errorf("%w: no ALGORITHM", ErrInvalidKeyParameters)
	}
	spec.algorithm = algorithm.Value.(keymint.Algorithm)

	if p, ok := keymint.Find(params, keymint.TagKeySize); ok {
		spec.keySize = int32(p.Value.(keymint.Integer))
	}
	if p, ok := keymint.Find(params, keymint.TagEcCurve); ok {
		spec.curve = p.Value.(keymint.EcCurve)
		spec.hasCurve = true
	}
	if p, ok := keymint.Find(params, keymint.TagRsaPublicExponent); ok {
		e := int64(p.Value.(keymint.LongInteger))
		exponent, err := safecast.ToUint32(e)
		if err != nil || e < 3 || e%2 == 0 {
			return keySpec{}, fmt.Errorf("%w: RSA public exponent %d", ErrInvalidKeyParameters, e)
		}
		if exponent != defaultRSAExponent {
			spec.exponent = exponent
		}
	}
	for _, v := range keymint.FindAll(params, keymint.TagPurpose) {
		spec.purposes = append(spec.purposes, v.(keymint.KeyPurpose))
	}
	for _, v := range keymint.FindAll(params, keymint.TagDigest) {
		if alg, ok := hashAlgs[v.(keymint.Digest)]; ok {
			spec.hashes = append(spec.hashes, alg)
		}
	}
	spec.hashes = lo.Uniq(spec.hashes)
	for _, v := range keymint.FindAll(params, keymint.TagPadding) {
		spec.paddings = append(spec.paddings, v.(keymint.PaddingMode))
	}
	spec.paddings = lo.Uniq(spec.paddings)
	if p, ok := keymint.Find(params, keymint.TagNoAuthRequired); ok {
		spec.noAuth = bool(p.Value.(keymint.BoolValue))
	}

	if len(spec.purposes) == 0 {
		return keySpec{}, fmt.Errorf("%w: no PURPOSE", ErrInvalidKeyParameters)
	}
	return spec, nil
}

// KeyTemplate projects a current-schema parameter list onto the public area
// of a TPM key. Only EC and RSA keys are supported. A signature or
// encryption scheme is pinned in the template when the list allows exactly
// one; otherwise the scheme is left null and chosen per operation.
func KeyTemplate(params []keymint.KeyParameter) (tpm2.TPMTPublic, error) {
	spec, err := parseKeySpec(params)
	if err != nil {
		return tpm2.TPMTPublic{}, err
	}

	sign := spec.has(keymint.KeyPurposeSign, keymint.KeyPurposeVerify, keymint.KeyPurposeAttestKey)
	decrypt := spec.has(keymint.KeyPurposeEncrypt, keymint.KeyPurposeDecrypt, keymint.KeyPurposeWrapKey, keymint.KeyPurposeAgreeKey)
	restricted := spec.has(keymint.KeyPurposeAttestKey)
	if restricted && decrypt {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: attestation keys cannot decrypt", ErrInvalidKeyParameters)
	}

	attributes := tpm2.TPMAObject{
		FixedTPM:            true,        // true = must stay in TPM
		FixedParent:         true,        // true = can't be re-parented
		SensitiveDataOrigin: true,        // true = TPM generates all sensitive data during creation
		UserWithAuth:        true,        // true = pw or hmac can be used in addition to authpolicy
		NoDA:                spec.noAuth, // true = exempt from dictionary attack protections
		Restricted:          restricted,  // true = may only sign TPM-generated data
		Decrypt:             decrypt,     // true = can be used to decrypt or agree
		SignEncrypt:         sign,        // true = for asymm, may be used to sign
	}

	switch spec.algorithm {
	case keymint.AlgorithmEC:
		return eccTemplate(spec, attributes)
	case keymint.AlgorithmRSA:
		return rsaTemplate(spec, attributes)
	default:
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, spec.algorithm)
	}
}

func eccTemplate(spec keySpec, attributes tpm2.TPMAObject) (tpm2.TPMTPublic, error) {
	if spec.has(keymint.KeyPurposeEncrypt, keymint.KeyPurposeDecrypt, keymint.KeyPurposeWrapKey) {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: EC keys cannot encrypt", ErrInvalidKeyParameters)
	}

	curve := keymint.EcCurveP256
	switch {
	case spec.hasCurve:
		curve = spec.curve
	case spec.keySize != 0:
		c, ok := lo.FindKeyBy(curves, func(_ keymint.EcCurve, def curveDef) bool {
			return def.bits == spec.keySize
		})
		if !ok {
			return tpm2.TPMTPublic{}, fmt.Errorf("%w: no curve of %d bits", ErrInvalidKeyParameters, spec.keySize)
		}
		curve = c
	}
	def, ok := curves[curve]
	if !ok {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: curve %s", ErrUnsupportedAlgorithm, curve)
	}
	if spec.keySize != 0 && spec.keySize != def.bits {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: KEY_SIZE %d does not match %s", ErrInvalidKeyParameters, spec.keySize, curve)
	}

	scheme := tpm2.TPMTECCScheme{Scheme: tpm2.TPMAlgNull}
	if len(spec.hashes) == 1 {
		switch {
		case attributes.SignEncrypt && !attributes.Decrypt:
			scheme = tpm2.TPMTECCScheme{
				Scheme: tpm2.TPMAlgECDSA,
				Details: tpm2.NewTPMUAsymScheme(
					tpm2.TPMAlgECDSA,
					&tpm2.TPMSSigSchemeECDSA{HashAlg: spec.hashes[0]},
				),
			}
		case attributes.Decrypt && !attributes.SignEncrypt:
			scheme = tpm2.TPMTECCScheme{
				Scheme: tpm2.TPMAlgECDH,
				Details: tpm2.NewTPMUAsymScheme(
					tpm2.TPMAlgECDH,
					&tpm2.TPMSKeySchemeECDH{HashAlg: spec.hashes[0]},
				),
			}
		}
	}
	if attributes.Restricted && scheme.Scheme == tpm2.TPMAlgNull {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: attestation keys need exactly one digest", ErrInvalidKeyParameters)
	}

	size := (int(def.bits) + 7) / 8
	return tpm2.TPMTPublic{
		Type:             tpm2.TPMAlgECC,
		NameAlg:          tpm2.TPMAlgSHA256,
		ObjectAttributes: attributes,
		Parameters: tpm2.NewTPMUPublicParms(
			tpm2.TPMAlgECC,
			&tpm2.TPMSECCParms{
				Scheme:  scheme,
				CurveID: def.id,
			},
		),
		Unique: tpm2.NewTPMUPublicID(
			tpm2.TPMAlgECC,
			&tpm2.TPMSECCPoint{
				X: tpm2.TPM2BECCParameter{Buffer: make([]byte, size)},
				Y: tpm2.TPM2BECCParameter{Buffer: make([]byte, size)},
			},
		),
	}, nil
}

func rsaTemplate(spec keySpec, attributes tpm2.TPMAObject) (tpm2.TPMTPublic, error) {
	if spec.has(keymint.KeyPurposeAgreeKey) {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: RSA keys cannot agree", ErrInvalidKeyParameters)
	}

	keySize := int32(2048)
	if spec.keySize != 0 {
		keySize = spec.keySize
	}
	if !slices.Contains(rsaKeySizes, keySize) {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: RSA key size %d", ErrInvalidKeyParameters, keySize)
	}

	scheme := tpm2.TPMTRSAScheme{Scheme: tpm2.TPMAlgNull}
	if len(spec.hashes) == 1 && len(spec.paddings) == 1 {
		hash := spec.hashes[0]
		switch padding := spec.paddings[0]; {
		case attributes.SignEncrypt && !attributes.Decrypt && padding == keymint.PaddingModeRSAPKCS1_1_5Sign:
			scheme = tpm2.TPMTRSAScheme{
				Scheme:  tpm2.TPMAlgRSASSA,
				Details: tpm2.NewTPMUAsymScheme(tpm2.TPMAlgRSASSA, &tpm2.TPMSSigSchemeRSASSA{HashAlg: hash}),
			}
		case attributes.SignEncrypt && !attributes.Decrypt && padding == keymint.PaddingModeRSAPSS:
			scheme = tpm2.TPMTRSAScheme{
				Scheme:  tpm2.TPMAlgRSAPSS,
				Details: tpm2.NewTPMUAsymScheme(tpm2.TPMAlgRSAPSS, &tpm2.TPMSSigSchemeRSAPSS{HashAlg: hash}),
			}
		case attributes.Decrypt && !attributes.SignEncrypt && padding == keymint.PaddingModeRSAOAEP:
			scheme = tpm2.TPMTRSAScheme{
				Scheme:  tpm2.TPMAlgOAEP,
				Details: tpm2.NewTPMUAsymScheme(tpm2.TPMAlgOAEP, &tpm2.TPMSEncSchemeOAEP{HashAlg: hash}),
			}
		}
	}
	if attributes.Restricted && scheme.Scheme == tpm2.TPMAlgNull {
		return tpm2.TPMTPublic{}, fmt.Errorf("%w: attestation keys need exactly one digest and signing padding", ErrInvalidKeyParameters)
	}

	return tpm2.TPMTPublic{
		Type:             tpm2.TPMAlgRSA,
		NameAlg:          tpm2.TPMAlgSHA256,
		ObjectAttributes: attributes,
		Parameters: tpm2.NewTPMUPublicParms(
			tpm2.TPMAlgRSA,
			&tpm2.TPMSRSAParms{
				Scheme:   scheme,
				KeyBits:  tpm2.TPMKeyBits(keySize),
				Exponent: spec.exponent,
			},
		),
		Unique: tpm2.NewTPMUPublicID(
			tpm2.TPMAlgRSA,
			&tpm2.TPM2BPublicKeyRSA{
				Buffer: make([]byte, keySize/8),
			},
		),
	}, nil
}
