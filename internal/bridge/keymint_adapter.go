package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

// KeyMintAdapter serves current-schema clients from a legacy device.
type KeyMintAdapter struct {
	options
	device   LegacyDevice
	revision compat.Generation
	level    keymint.SecurityLevel
}

var _ KeyMintDevice = (*KeyMintAdapter)(nil)

// NewKeyMintAdapter wraps a legacy device speaking the given revision. The
// device's security level is read once and used to label the
// characteristics it reports as hardware enforced.
func NewKeyMintAdapter(ctx context.Context, device LegacyDevice, revision compat.Generation, opts ...Option) (*KeyMintAdapter, error) {
	if !revision.IsLegacy() {
		return nil, fmt.Errorf("legacy device revision must be %s or %s, got %s", compat.LegacyBase, compat.LegacyExtension, revision)
	}
	a := &KeyMintAdapter{
		options:  newOptions(opts),
		device:   device,
		revision: revision,
	}
	info, err := a.GetHardwareInfo(ctx)
	if err != nil {
		return nil, err
	}
	a.level = info.SecurityLevel
	a.log.Debugf("wrapping %s legacy device %q at %s", a.revision, info.KeyMintName, a.level)
	return a, nil
}

func (a *KeyMintAdapter) Revision() compat.Generation {
	return a.revision
}

func (a *KeyMintAdapter) GetHardwareInfo(ctx context.Context) (keymint.HardwareInfo, error) {
	start := time.Now()
	info, err := a.device.GetHardwareInfo(ctx)
	a.metrics.recordCall("GetHardwareInfo", start, err)
	if err != nil {
		return keymint.HardwareInfo{}, fmt.Errorf("reading legacy hardware info: %w", err)
	}

	level, err := a.converter.ConvertEnum(compat.DomainSecurityLevel, int64(info.SecurityLevel), compat.ToCurrent)
	if err != nil {
		return keymint.HardwareInfo{}, fmt.Errorf("legacy security level: %w", err)
	}
	return keymint.HardwareInfo{
		VersionNumber:     versionNumber(a.revision),
		SecurityLevel:     keymint.SecurityLevel(int32(level)),
		KeyMintName:       info.KeymasterName,
		KeyMintAuthorName: info.KeymasterAuthorName,
	}, nil
}

func (a *KeyMintAdapter) GenerateKey(ctx context.Context, params []keymint.KeyParameter) (keymint.KeyCreationResult, error) {
	legacy, err := a.requestToLegacy(params, a.revision)
	if err != nil {
		return keymint.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}

	start := time.Now()
	res, err := a.device.GenerateKey(ctx, legacy)
	a.metrics.recordCall("GenerateKey", start, err)
	if err != nil {
		return keymint.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}

	chars, err := a.characteristics(res.KeyCharacteristics)
	if err != nil {
		return keymint.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}
	return keymint.KeyCreationResult{
		KeyBlob:            res.KeyBlob,
		KeyCharacteristics: chars,
	}, nil
}

func (a *KeyMintAdapter) GetKeyCharacteristics(ctx context.Context, keyBlob, appID, appData []byte) ([]keymint.KeyCharacteristics, error) {
	start := time.Now()
	kc, err := a.device.GetKeyCharacteristics(ctx, keyBlob, appID, appData)
	a.metrics.recordCall("GetKeyCharacteristics", start, err)
	if err != nil {
		return nil, fmt.Errorf("get key characteristics: %w", err)
	}
	chars, err := a.characteristics(kc)
	if err != nil {
		return nil, fmt.Errorf("get key characteristics: %w", err)
	}
	return chars, nil
}

func (a *KeyMintAdapter) Begin(ctx context.Context, purpose keymint.KeyPurpose, keyBlob []byte, params []keymint.KeyParameter) (uint64, []keymint.KeyParameter, error) {
	lp, err := a.purposeToLegacy(purpose)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}
	legacy, err := a.requestToLegacy(params, a.revision)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}

	start := time.Now()
	handle, out, err := a.device.Begin(ctx, lp, keyBlob, legacy)
	a.metrics.recordCall("Begin", start, err)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}

	current, err := a.toCurrent(out, a.revision)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}
	return handle, current, nil
}

// characteristics labels hardware-enforced authorizations with the device's
// level and software-enforced ones with the keystore level. Empty groups are
// omitted.
func (a *KeyMintAdapter) characteristics(kc keymaster.KeyCharacteristics) ([]keymint.KeyCharacteristics, error) {
	var chars []keymint.KeyCharacteristics
	groups := []struct {
		level  keymint.SecurityLevel
		params []keymaster.KeyParameter
	}{
		{level: a.level, params: kc.HardwareEnforced},
		{level: keymint.SecurityLevelKeystore, params: kc.SoftwareEnforced},
	}
	for _, g := range groups {
		if len(g.params) == 0 {
			continue
		}
		auths, err := a.toCurrent(g.params, a.revision)
		if err != nil {
			return nil, err
		}
		chars = append(chars, keymint.KeyCharacteristics{SecurityLevel: g.level, Authorizations: auths})
	}
	return chars, nil
}

func versionNumber(revision compat.Generation) int32 {
	if revision == compat.LegacyExtension {
		return 41
	}
	return 40
}
