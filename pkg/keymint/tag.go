package keymint

import "fmt"

// TagType occupies the upper four bits of a Tag and describes its payload.
type TagType uint32

const (
	TagTypeInvalid  TagType = 0 << 28
	TagTypeEnum     TagType = 1 << 28
	TagTypeEnumRep  TagType = 2 << 28
	TagTypeUint     TagType = 3 << 28
	TagTypeUintRep  TagType = 4 << 28
	TagTypeUlong    TagType = 5 << 28
	TagTypeDate     TagType = 6 << 28
	TagTypeBool     TagType = 7 << 28
	TagTypeBignum   TagType = 8 << 28
	TagTypeBytes    TagType = 9 << 28
	TagTypeUlongRep TagType = 10 << 28

	tagTypeMask = 0xF0000000
)

// Repeatable reports whether a tag of this type may appear more than once in a list.
func (t TagType) Repeatable() bool {
	return t == TagTypeEnumRep || t == TagTypeUintRep || t == TagTypeUlongRep
}

type Tag uint32

func (t Tag) Type() TagType {
	return TagType(uint32(t) & tagTypeMask)
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%#x)", uint32(t))
}

const (
	TagInvalid                     = Tag(TagTypeInvalid)
	TagPurpose                     = Tag(TagTypeEnumRep | 1)
	TagAlgorithm                   = Tag(TagTypeEnum | 2)
	TagKeySize                     = Tag(TagTypeUint | 3)
	TagBlockMode                   = Tag(TagTypeEnumRep | 4)
	TagDigest                      = Tag(TagTypeEnumRep | 5)
	TagPadding                     = Tag(TagTypeEnumRep | 6)
	TagCallerNonce                 = Tag(TagTypeBool | 7)
	TagMinMacLength                = Tag(TagTypeUint | 8)
	TagEcCurve                     = Tag(TagTypeEnum | 10)
	TagRsaPublicExponent           = Tag(TagTypeUlong | 200)
	TagIncludeUniqueID             = Tag(TagTypeBool | 202)
	TagRsaOaepMgfDigest            = Tag(TagTypeEnumRep | 203)
	TagBootloaderOnly              = Tag(TagTypeBool | 302)
	TagRollbackResistance          = Tag(TagTypeBool | 303)
	TagHardwareType                = Tag(TagTypeEnum | 304)
	TagEarlyBootOnly               = Tag(TagTypeBool | 305)
	TagActiveDatetime              = Tag(TagTypeDate | 400)
	TagOriginationExpireDatetime   = Tag(TagTypeDate | 401)
	TagUsageExpireDatetime         = Tag(TagTypeDate | 402)
	TagMinSecondsBetweenOps        = Tag(TagTypeUint | 403)
	TagMaxUsesPerBoot              = Tag(TagTypeUint | 404)
	TagUsageCountLimit             = Tag(TagTypeUint | 405)
	TagUserID                      = Tag(TagTypeUint | 501)
	TagUserSecureID                = Tag(TagTypeUlongRep | 502)
	TagNoAuthRequired              = Tag(TagTypeBool | 503)
	TagUserAuthType                = Tag(TagTypeEnum | 504)
	TagAuthTimeout                 = Tag(TagTypeUint | 505)
	TagAllowWhileOnBody            = Tag(TagTypeBool | 506)
	TagTrustedUserPresenceRequired = Tag(TagTypeBool | 507)
	TagTrustedConfirmationRequired = Tag(TagTypeBool | 508)
	TagUnlockedDeviceRequired      = Tag(TagTypeBool | 509)
	TagApplicationID               = Tag(TagTypeBytes | 601)
	TagApplicationData             = Tag(TagTypeBytes | 700)
	TagCreationDatetime            = Tag(TagTypeDate | 701)
	TagOrigin                      = Tag(TagTypeEnum | 702)
	TagRootOfTrust                 = Tag(TagTypeBytes | 704)
	TagOsVersion                   = Tag(TagTypeUint | 705)
	TagOsPatchlevel                = Tag(TagTypeUint | 706)
	TagUniqueID                    = Tag(TagTypeBytes | 707)
	TagAttestationChallenge        = Tag(TagTypeBytes | 708)
	TagAttestationApplicationID    = Tag(TagTypeBytes | 709)
	TagAttestationIDBrand          = Tag(TagTypeBytes | 710)
	TagAttestationIDDevice         = Tag(TagTypeBytes | 711)
	TagAttestationIDProduct        = Tag(TagTypeBytes | 712)
	TagAttestationIDSerial         = Tag(TagTypeBytes | 713)
	TagAttestationIDImei           = Tag(TagTypeBytes | 714)
	TagAttestationIDMeid           = Tag(TagTypeBytes | 715)
	TagAttestationIDManufacturer   = Tag(TagTypeBytes | 716)
	TagAttestationIDModel          = Tag(TagTypeBytes | 717)
	TagVendorPatchlevel            = Tag(TagTypeUint | 718)
	TagBootPatchlevel              = Tag(TagTypeUint | 719)
	TagDeviceUniqueAttestation     = Tag(TagTypeBool | 720)
	TagIdentityCredentialKey       = Tag(TagTypeBool | 721)
	TagStorageKey                  = Tag(TagTypeBool | 722)
	TagAssociatedData              = Tag(TagTypeBytes | 1000)
	TagNonce                       = Tag(TagTypeBytes | 1001)
	TagMacLength                   = Tag(TagTypeUint | 1003)
	TagResetSinceIDRotation        = Tag(TagTypeBool | 1004)
	TagConfirmationToken           = Tag(TagTypeBytes | 1005)
	TagCertificateSerial           = Tag(TagTypeBignum | 1006)
	TagCertificateSubject          = Tag(TagTypeBytes | 1007)
	TagCertificateNotBefore        = Tag(TagTypeDate | 1008)
	TagCertificateNotAfter         = Tag(TagTypeDate | 1009)
	TagMaxBootLevel                = Tag(TagTypeUint | 1010)
)

var tagNames = map[Tag]string{
	TagInvalid:                     "INVALID",
	TagPurpose:                     "PURPOSE",
	TagAlgorithm:                   "ALGORITHM",
	TagKeySize:                     "KEY_SIZE",
	TagBlockMode:                   "BLOCK_MODE",
	TagDigest:                      "DIGEST",
	TagPadding:                     "PADDING",
	TagCallerNonce:                 "CALLER_NONCE",
	TagMinMacLength:                "MIN_MAC_LENGTH",
	TagEcCurve:                     "EC_CURVE",
	TagRsaPublicExponent:           "RSA_PUBLIC_EXPONENT",
	TagIncludeUniqueID:             "INCLUDE_UNIQUE_ID",
	TagRsaOaepMgfDigest:            "RSA_OAEP_MGF_DIGEST",
	TagBootloaderOnly:              "BOOTLOADER_ONLY",
	TagRollbackResistance:          "ROLLBACK_RESISTANCE",
	TagHardwareType:                "HARDWARE_TYPE",
	TagEarlyBootOnly:               "EARLY_BOOT_ONLY",
	TagActiveDatetime:              "ACTIVE_DATETIME",
	TagOriginationExpireDatetime:   "ORIGINATION_EXPIRE_DATETIME",
	TagUsageExpireDatetime:         "USAGE_EXPIRE_DATETIME",
	TagMinSecondsBetweenOps:        "MIN_SECONDS_BETWEEN_OPS",
	TagMaxUsesPerBoot:              "MAX_USES_PER_BOOT",
	TagUsageCountLimit:             "USAGE_COUNT_LIMIT",
	TagUserID:                      "USER_ID",
	TagUserSecureID:                "USER_SECURE_ID",
	TagNoAuthRequired:              "NO_AUTH_REQUIRED",
	TagUserAuthType:                "USER_AUTH_TYPE",
	TagAuthTimeout:                 "AUTH_TIMEOUT",
	TagAllowWhileOnBody:            "ALLOW_WHILE_ON_BODY",
	TagTrustedUserPresenceRequired: "TRUSTED_USER_PRESENCE_REQUIRED",
	TagTrustedConfirmationRequired: "TRUSTED_CONFIRMATION_REQUIRED",
	TagUnlockedDeviceRequired:      "UNLOCKED_DEVICE_REQUIRED",
	TagApplicationID:               "APPLICATION_ID",
	TagApplicationData:             "APPLICATION_DATA",
	TagCreationDatetime:            "CREATION_DATETIME",
	TagOrigin:                      "ORIGIN",
	TagRootOfTrust:                 "ROOT_OF_TRUST",
	TagOsVersion:                   "OS_VERSION",
	TagOsPatchlevel:                "OS_PATCHLEVEL",
	TagUniqueID:                    "UNIQUE_ID",
	TagAttestationChallenge:        "ATTESTATION_CHALLENGE",
	TagAttestationApplicationID:    "ATTESTATION_APPLICATION_ID",
	TagAttestationIDBrand:          "ATTESTATION_ID_BRAND",
	TagAttestationIDDevice:         "ATTESTATION_ID_DEVICE",
	TagAttestationIDProduct:        "ATTESTATION_ID_PRODUCT",
	TagAttestationIDSerial:         "ATTESTATION_ID_SERIAL",
	TagAttestationIDImei:           "ATTESTATION_ID_IMEI",
	TagAttestationIDMeid:           "ATTESTATION_ID_MEID",
	TagAttestationIDManufacturer:   "ATTESTATION_ID_MANUFACTURER",
	TagAttestationIDModel:          "ATTESTATION_ID_MODEL",
	TagVendorPatchlevel:            "VENDOR_PATCHLEVEL",
	TagBootPatchlevel:              "BOOT_PATCHLEVEL",
	TagDeviceUniqueAttestation:     "DEVICE_UNIQUE_ATTESTATION",
	TagIdentityCredentialKey:       "IDENTITY_CREDENTIAL_KEY",
	TagStorageKey:                  "STORAGE_KEY",
	TagAssociatedData:              "ASSOCIATED_DATA",
	TagNonce:                       "NONCE",
	TagMacLength:                   "MAC_LENGTH",
	TagResetSinceIDRotation:        "RESET_SINCE_ID_ROTATION",
	TagConfirmationToken:           "CONFIRMATION_TOKEN",
	TagCertificateSerial:           "CERTIFICATE_SERIAL",
	TagCertificateSubject:          "CERTIFICATE_SUBJECT",
	TagCertificateNotBefore:        "CERTIFICATE_NOT_BEFORE",
	TagCertificateNotAfter:         "CERTIFICATE_NOT_AFTER",
	TagMaxBootLevel:                "MAX_BOOT_LEVEL",
}

// Tags returns every tag defined by the schema, in no particular order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(tagNames))
	for t := range tagNames {
		tags = append(tags, t)
	}
	return tags
}
