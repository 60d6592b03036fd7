package compat

import (
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

var (
	allGenerations = NewGenerationSet(Current, LegacyBase, LegacyExtension)
	extensionOnly  = NewGenerationSet(Current, LegacyExtension)
	currentOnly    = NewGenerationSet(Current)
)

// tagTable lists every tag of both schemas.
var tagTable = []TagDef{
	shared("PURPOSE", keymint.TagPurpose, keymaster.TagPurpose, DomainKeyPurpose),
	shared("ALGORITHM", keymint.TagAlgorithm, keymaster.TagAlgorithm, DomainAlgorithm),
	shared("KEY_SIZE", keymint.TagKeySize, keymaster.TagKeySize, DomainNone),
	shared("BLOCK_MODE", keymint.TagBlockMode, keymaster.TagBlockMode, DomainBlockMode),
	shared("DIGEST", keymint.TagDigest, keymaster.TagDigest, DomainDigest),
	shared("PADDING", keymint.TagPadding, keymaster.TagPadding, DomainPaddingMode),
	shared("CALLER_NONCE", keymint.TagCallerNonce, keymaster.TagCallerNonce, DomainNone),
	shared("MIN_MAC_LENGTH", keymint.TagMinMacLength, keymaster.TagMinMacLength, DomainNone),
	shared("EC_CURVE", keymint.TagEcCurve, keymaster.TagEcCurve, DomainEcCurve),
	shared("RSA_PUBLIC_EXPONENT", keymint.TagRsaPublicExponent, keymaster.TagRsaPublicExponent, DomainNone),
	shared("INCLUDE_UNIQUE_ID", keymint.TagIncludeUniqueID, keymaster.TagIncludeUniqueID, DomainNone),
	shared("BOOTLOADER_ONLY", keymint.TagBootloaderOnly, keymaster.TagBootloaderOnly, DomainNone),
	shared("ROLLBACK_RESISTANCE", keymint.TagRollbackResistance, keymaster.TagRollbackResistance, DomainNone),
	shared("HARDWARE_TYPE", keymint.TagHardwareType, keymaster.TagHardwareType, DomainSecurityLevel),
	shared("ACTIVE_DATETIME", keymint.TagActiveDatetime, keymaster.TagActiveDatetime, DomainNone),
	shared("ORIGINATION_EXPIRE_DATETIME", keymint.TagOriginationExpireDatetime, keymaster.TagOriginationExpireDatetime, DomainNone),
	shared("USAGE_EXPIRE_DATETIME", keymint.TagUsageExpireDatetime, keymaster.TagUsageExpireDatetime, DomainNone),
	shared("MIN_SECONDS_BETWEEN_OPS", keymint.TagMinSecondsBetweenOps, keymaster.TagMinSecondsBetweenOps, DomainNone),
	shared("MAX_USES_PER_BOOT", keymint.TagMaxUsesPerBoot, keymaster.TagMaxUsesPerBoot, DomainNone),
	shared("USER_ID", keymint.TagUserID, keymaster.TagUserID, DomainNone),
	shared("USER_SECURE_ID", keymint.TagUserSecureID, keymaster.TagUserSecureID, DomainNone),
	shared("NO_AUTH_REQUIRED", keymint.TagNoAuthRequired, keymaster.TagNoAuthRequired, DomainNone),
	shared("USER_AUTH_TYPE", keymint.TagUserAuthType, keymaster.TagUserAuthType, DomainHardwareAuthenticatorType),
	shared("AUTH_TIMEOUT", keymint.TagAuthTimeout, keymaster.TagAuthTimeout, DomainNone),
	shared("ALLOW_WHILE_ON_BODY", keymint.TagAllowWhileOnBody, keymaster.TagAllowWhileOnBody, DomainNone),
	shared("TRUSTED_USER_PRESENCE_REQUIRED", keymint.TagTrustedUserPresenceRequired, keymaster.TagTrustedUserPresenceRequired, DomainNone),
	shared("TRUSTED_CONFIRMATION_REQUIRED", keymint.TagTrustedConfirmationRequired, keymaster.TagTrustedConfirmationRequired, DomainNone),
	shared("UNLOCKED_DEVICE_REQUIRED", keymint.TagUnlockedDeviceRequired, keymaster.TagUnlockedDeviceRequired, DomainNone),
	shared("APPLICATION_ID", keymint.TagApplicationID, keymaster.TagApplicationID, DomainNone),
	shared("APPLICATION_DATA", keymint.TagApplicationData, keymaster.TagApplicationData, DomainNone),
	shared("CREATION_DATETIME", keymint.TagCreationDatetime, keymaster.TagCreationDatetime, DomainNone),
	shared("ORIGIN", keymint.TagOrigin, keymaster.TagOrigin, DomainKeyOrigin),
	shared("ROOT_OF_TRUST", keymint.TagRootOfTrust, keymaster.TagRootOfTrust, DomainNone),
	shared("OS_VERSION", keymint.TagOsVersion, keymaster.TagOsVersion, DomainNone),
	shared("OS_PATCHLEVEL", keymint.TagOsPatchlevel, keymaster.TagOsPatchlevel, DomainNone),
	shared("UNIQUE_ID", keymint.TagUniqueID, keymaster.TagUniqueID, DomainNone),
	shared("ATTESTATION_CHALLENGE", keymint.TagAttestationChallenge, keymaster.TagAttestationChallenge, DomainNone),
	shared("ATTESTATION_APPLICATION_ID", keymint.TagAttestationApplicationID, keymaster.TagAttestationApplicationID, DomainNone),
	shared("ATTESTATION_ID_BRAND", keymint.TagAttestationIDBrand, keymaster.TagAttestationIDBrand, DomainNone),
	shared("ATTESTATION_ID_DEVICE", keymint.TagAttestationIDDevice, keymaster.TagAttestationIDDevice, DomainNone),
	shared("ATTESTATION_ID_PRODUCT", keymint.TagAttestationIDProduct, keymaster.TagAttestationIDProduct, DomainNone),
	shared("ATTESTATION_ID_MANUFACTURER", keymint.TagAttestationIDManufacturer, keymaster.TagAttestationIDManufacturer, DomainNone),
	shared("ATTESTATION_ID_MODEL", keymint.TagAttestationIDModel, keymaster.TagAttestationIDModel, DomainNone),
	shared("VENDOR_PATCHLEVEL", keymint.TagVendorPatchlevel, keymaster.TagVendorPatchlevel, DomainNone),
	shared("BOOT_PATCHLEVEL", keymint.TagBootPatchlevel, keymaster.TagBootPatchlevel, DomainNone),
	shared("ASSOCIATED_DATA", keymint.TagAssociatedData, keymaster.TagAssociatedData, DomainNone),
	shared("NONCE", keymint.TagNonce, keymaster.TagNonce, DomainNone),
	shared("MAC_LENGTH", keymint.TagMacLength, keymaster.TagMacLength, DomainNone),
	shared("RESET_SINCE_ID_ROTATION", keymint.TagResetSinceIDRotation, keymaster.TagResetSinceIDRotation, DomainNone),
	shared("CONFIRMATION_TOKEN", keymint.TagConfirmationToken, keymaster.TagConfirmationToken, DomainNone),

	// Introduced by the 4.1 legacy interface.
	extension("EARLY_BOOT_ONLY", keymint.TagEarlyBootOnly, keymaster.TagEarlyBootOnly),
	extension("DEVICE_UNIQUE_ATTESTATION", keymint.TagDeviceUniqueAttestation, keymaster.TagDeviceUniqueAttestation),
	extension("IDENTITY_CREDENTIAL_KEY", keymint.TagIdentityCredentialKey, keymaster.TagIdentityCredentialKey),
	extension("STORAGE_KEY", keymint.TagStorageKey, keymaster.TagStorageKey),

	// Not expressible in either legacy revision.
	currentOnlyTag("RSA_OAEP_MGF_DIGEST", keymint.TagRsaOaepMgfDigest, DomainDigest),
	currentOnlyTag("USAGE_COUNT_LIMIT", keymint.TagUsageCountLimit, DomainNone),
	currentOnlyTag("CERTIFICATE_SERIAL", keymint.TagCertificateSerial, DomainNone),
	currentOnlyTag("CERTIFICATE_SUBJECT", keymint.TagCertificateSubject, DomainNone),
	currentOnlyTag("CERTIFICATE_NOT_BEFORE", keymint.TagCertificateNotBefore, DomainNone),
	currentOnlyTag("CERTIFICATE_NOT_AFTER", keymint.TagCertificateNotAfter, DomainNone),
	currentOnlyTag("MAX_BOOT_LEVEL", keymint.TagMaxBootLevel, DomainNone),

	// Device identifiers are gated by device policy and never cross the
	// boundary through this layer. INVALID is never a valid parameter.
	excluded("INVALID", keymint.TagInvalid, keymaster.TagInvalid),
	excluded("ATTESTATION_ID_SERIAL", keymint.TagAttestationIDSerial, keymaster.TagAttestationIDSerial),
	excluded("ATTESTATION_ID_IMEI", keymint.TagAttestationIDImei, keymaster.TagAttestationIDImei),
	excluded("ATTESTATION_ID_MEID", keymint.TagAttestationIDMeid, keymaster.TagAttestationIDMeid),
}

func shared(id TagID, current keymint.Tag, legacy keymaster.Tag, domain Domain) TagDef {
	return TagDef{ID: id, Domain: domain, Current: current, Legacy: legacy, Generations: allGenerations}
}

func extension(id TagID, current keymint.Tag, legacy keymaster.Tag) TagDef {
	return TagDef{ID: id, Current: current, Legacy: legacy, Generations: extensionOnly}
}

func currentOnlyTag(id TagID, current keymint.Tag, domain Domain) TagDef {
	return TagDef{ID: id, Domain: domain, Current: current, Generations: currentOnly}
}

func excluded(id TagID, current keymint.Tag, legacy keymaster.Tag) TagDef {
	return TagDef{ID: id, Current: current, Legacy: legacy, Generations: allGenerations, Excluded: true}
}
