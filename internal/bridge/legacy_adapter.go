package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/samber/lo"
)

// LegacyAdapter serves legacy clients of the given revision from a
// current-schema device.
type LegacyAdapter struct {
	options
	device   KeyMintDevice
	revision compat.Generation
}

var _ LegacyDevice = (*LegacyAdapter)(nil)

func NewLegacyAdapter(device KeyMintDevice, revision compat.Generation, opts ...Option) (*LegacyAdapter, error) {
	if !revision.IsLegacy() {
		return nil, fmt.Errorf("legacy client revision must be %s or %s, got %s", compat.LegacyBase, compat.LegacyExtension, revision)
	}
	return &LegacyAdapter{
		options:  newOptions(opts),
		device:   device,
		revision: revision,
	}, nil
}

func (a *LegacyAdapter) Revision() compat.Generation {
	return a.revision
}

func (a *LegacyAdapter) GetHardwareInfo(ctx context.Context) (keymaster.HardwareInfo, error) {
	start := time.Now()
	info, err := a.device.GetHardwareInfo(ctx)
	a.metrics.recordCall("GetHardwareInfo", start, err)
	if err != nil {
		return keymaster.HardwareInfo{}, fmt.Errorf("reading hardware info: %w", err)
	}

	level, err := a.converter.ConvertEnum(compat.DomainSecurityLevel, int64(info.SecurityLevel), compat.ToLegacy)
	if err != nil {
		return keymaster.HardwareInfo{}, fmt.Errorf("security level: %w", err)
	}
	return keymaster.HardwareInfo{
		SecurityLevel:       keymaster.SecurityLevel(uint32(level)),
		KeymasterName:       info.KeyMintName,
		KeymasterAuthorName: info.KeyMintAuthorName,
	}, nil
}

func (a *LegacyAdapter) GenerateKey(ctx context.Context, params []keymaster.KeyParameter) (keymaster.KeyCreationResult, error) {
	current, err := a.toCurrent(params, a.revision)
	if err != nil {
		return keymaster.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}

	start := time.Now()
	res, err := a.device.GenerateKey(ctx, current)
	a.metrics.recordCall("GenerateKey", start, err)
	if err != nil {
		return keymaster.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}

	kc, err := a.characteristics(res.KeyCharacteristics)
	if err != nil {
		return keymaster.KeyCreationResult{}, fmt.Errorf("generate key: %w", err)
	}
	return keymaster.KeyCreationResult{
		KeyBlob:            res.KeyBlob,
		KeyCharacteristics: kc,
	}, nil
}

func (a *LegacyAdapter) GetKeyCharacteristics(ctx context.Context, keyBlob, appID, appData []byte) (keymaster.KeyCharacteristics, error) {
	start := time.Now()
	chars, err := a.device.GetKeyCharacteristics(ctx, keyBlob, appID, appData)
	a.metrics.recordCall("GetKeyCharacteristics", start, err)
	if err != nil {
		return keymaster.KeyCharacteristics{}, fmt.Errorf("get key characteristics: %w", err)
	}
	kc, err := a.characteristics(chars)
	if err != nil {
		return keymaster.KeyCharacteristics{}, fmt.Errorf("get key characteristics: %w", err)
	}
	return kc, nil
}

func (a *LegacyAdapter) Begin(ctx context.Context, purpose keymaster.KeyPurpose, keyBlob []byte, params []keymaster.KeyParameter) (uint64, []keymaster.KeyParameter, error) {
	cp, err := a.purposeToCurrent(purpose)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}
	current, err := a.toCurrent(params, a.revision)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}

	start := time.Now()
	handle, out, err := a.device.Begin(ctx, cp, keyBlob, current)
	a.metrics.recordCall("Begin", start, err)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}

	legacy, err := a.reportToLegacy(out, a.revision)
	if err != nil {
		return 0, nil, fmt.Errorf("begin %s: %w", purpose, err)
	}
	return handle, legacy, nil
}

// characteristics folds per-level authorizations into the legacy
// hardware/software split. Software and keystore levels are software
// enforced.
func (a *LegacyAdapter) characteristics(chars []keymint.KeyCharacteristics) (keymaster.KeyCharacteristics, error) {
	authorizations := func(kc keymint.KeyCharacteristics, _ int) []keymint.KeyParameter {
		return kc.Authorizations
	}
	software := func(kc keymint.KeyCharacteristics, _ int) bool {
		return kc.SecurityLevel == keymint.SecurityLevelSoftware || kc.SecurityLevel == keymint.SecurityLevelKeystore
	}

	hw, err := a.reportToLegacy(lo.FlatMap(lo.Reject(chars, software), authorizations), a.revision)
	if err != nil {
		return keymaster.KeyCharacteristics{}, err
	}
	sw, err := a.reportToLegacy(lo.FlatMap(lo.Filter(chars, software), authorizations), a.revision)
	if err != nil {
		return keymaster.KeyCharacteristics{}, err
	}
	return keymaster.KeyCharacteristics{
		SoftwareEnforced: sw,
		HardwareEnforced: hw,
	}, nil
}
