package bridge

import (
	"errors"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

const (
	directionToLegacy  = "to_legacy"
	directionToCurrent = "to_current"
)

// requestToLegacy converts parameters a legacy device is asked to enforce.
// Under PolicyDrop only extension-only tags sent to a base revision device
// are dropped. A current-only tag or value always fails the request.
func (o *options) requestToLegacy(params []keymint.KeyParameter, target compat.Generation) ([]keymaster.KeyParameter, error) {
	return o.toLegacy(params, target, func(tag keymint.Tag) bool {
		info, err := o.converter.Registry().LookupCurrent(tag)
		return err == nil && target == compat.LegacyBase &&
			info.Generations.Has(compat.LegacyExtension) && !info.Generations.Has(compat.LegacyBase)
	})
}

// reportToLegacy converts parameters reported back to a legacy caller. Under
// PolicyDrop anything the revision cannot carry is left out of the report.
func (o *options) reportToLegacy(params []keymint.KeyParameter, target compat.Generation) ([]keymaster.KeyParameter, error) {
	return o.toLegacy(params, target, func(keymint.Tag) bool { return true })
}

// toLegacy converts params for a legacy peer at the given revision. Under
// PolicyDrop, parameters the revision cannot carry are dropped when
// droppable allows it.
func (o *options) toLegacy(params []keymint.KeyParameter, target compat.Generation, droppable func(keymint.Tag) bool) ([]keymaster.KeyParameter, error) {
	out := make([]keymaster.KeyParameter, 0, len(params))
	for i, p := range params {
		lp, err := o.converter.ToLegacy(p, target)
		if err != nil {
			if o.policy == PolicyDrop && errors.Is(err, compat.ErrUnsupportedOnRevision) && droppable(p.Tag) {
				o.log.Warnf("dropping parameter %s: %v", p.Tag, err)
				o.metrics.recordDrop(p.Tag.String())
				continue
			}
			err = &compat.ConversionError{Index: i, Tag: p.Tag.String(), Err: err}
			o.metrics.recordConversion(directionToLegacy, err)
			return nil, err
		}
		out = append(out, lp)
	}
	o.metrics.recordConversion(directionToLegacy, nil)
	return out, nil
}

func (o *options) toCurrent(params []keymaster.KeyParameter, source compat.Generation) ([]keymint.KeyParameter, error) {
	out, err := o.converter.ConvertToCurrent(params, source)
	o.metrics.recordConversion(directionToCurrent, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (o *options) purposeToLegacy(purpose keymint.KeyPurpose) (keymaster.KeyPurpose, error) {
	v, err := o.converter.ConvertEnum(compat.DomainKeyPurpose, int64(purpose), compat.ToLegacy)
	if err != nil {
		return 0, err
	}
	return keymaster.KeyPurpose(uint32(v)), nil
}

func (o *options) purposeToCurrent(purpose keymaster.KeyPurpose) (keymint.KeyPurpose, error) {
	v, err := o.converter.ConvertEnum(compat.DomainKeyPurpose, int64(purpose), compat.ToCurrent)
	if err != nil {
		return 0, err
	}
	return keymint.KeyPurpose(int32(v)), nil
}
