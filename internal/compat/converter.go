package compat

import (
	"bytes"
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

// Converter translates key parameters between the current and the legacy
// schema. It holds no mutable state and is safe for concurrent use.
type Converter struct {
	registry *Registry
	enums    *EnumMaps
	versions *VersionAdapter
}

func NewConverter(registry *Registry, enums *EnumMaps) *Converter {
	return &Converter{
		registry: registry,
		enums:    enums,
		versions: NewVersionAdapter(registry),
	}
}

var defaultConverter = NewConverter(DefaultRegistry(), DefaultEnumMaps())

// Default returns the converter over the built-in tag and value tables.
func Default() *Converter {
	return defaultConverter
}

func (c *Converter) Registry() *Registry {
	return c.registry
}

func (c *Converter) Enums() *EnumMaps {
	return c.enums
}

func (c *Converter) Versions() *VersionAdapter {
	return c.versions
}

// ToLegacy converts a current parameter into the legacy container of the
// target revision.
func (c *Converter) ToLegacy(p keymint.KeyParameter, target Generation) (keymaster.KeyParameter, error) {
	if !target.IsLegacy() {
		return keymaster.KeyParameter{}, fmt.Errorf("target %s is not a legacy generation", target)
	}
	info, err := c.registry.LookupCurrent(p.Tag)
	if err != nil {
		return keymaster.KeyParameter{}, err
	}
	if info.Excluded {
		return keymaster.KeyParameter{}, fmt.Errorf("%w: %s", ErrUnsupportedTag, info.ID)
	}
	if err := c.versions.CheckTarget(info.ID, target); err != nil {
		return keymaster.KeyParameter{}, err
	}

	f, blob, err := c.encode(info, p.Value)
	if err != nil {
		return keymaster.KeyParameter{}, err
	}
	return keymaster.KeyParameter{Tag: info.Legacy, F: f, Blob: blob}, nil
}

// encode lays a current payload out in the legacy container.
func (c *Converter) encode(info TagInfo, value keymint.KeyParameterValue) (uint64, []byte, error) {
	switch info.Category {
	case CategoryEnum:
		codec, err := c.enums.codec(info.Domain)
		if err != nil {
			return 0, nil, err
		}
		v, err := codec.legacyValue(value)
		if err != nil {
			return 0, nil, err
		}
		return uint64(v), nil, nil
	case CategoryInteger:
		v, ok := value.(keymint.Integer)
		if !ok {
			return 0, nil, mismatch(info, value)
		}
		return uint64(uint32(v)), nil, nil
	case CategoryLongInteger:
		v, ok := value.(keymint.LongInteger)
		if !ok {
			return 0, nil, mismatch(info, value)
		}
		return uint64(v), nil, nil
	case CategoryBoolean:
		v, ok := value.(keymint.BoolValue)
		if !ok {
			return 0, nil, mismatch(info, value)
		}
		if v {
			return 1, nil, nil
		}
		return 0, nil, nil
	case CategoryDate:
		v, ok := value.(keymint.DateTime)
		if !ok {
			return 0, nil, mismatch(info, value)
		}
		return uint64(v), nil, nil
	case CategoryBytes, CategoryBigNum:
		v, ok := value.(keymint.Blob)
		if !ok {
			return 0, nil, mismatch(info, value)
		}
		return 0, bytes.Clone(v), nil
	default:
		return 0, nil, fmt.Errorf("%w: %s", ErrUnsupportedTag, info.ID)
	}
}

// Check validates a current parameter on its own: the tag must be known and
// convertible, and the payload must match the tag's category and domain.
func (c *Converter) Check(p keymint.KeyParameter) error {
	info, err := c.registry.LookupCurrent(p.Tag)
	if err != nil {
		return err
	}
	if info.Excluded {
		return fmt.Errorf("%w: %s", ErrUnsupportedTag, info.ID)
	}
	var ok bool
	switch info.Category {
	case CategoryEnum:
		codec, err := c.enums.codec(info.Domain)
		if err != nil {
			return err
		}
		return codec.checkCurrent(p.Value)
	case CategoryInteger:
		_, ok = p.Value.(keymint.Integer)
	case CategoryLongInteger:
		_, ok = p.Value.(keymint.LongInteger)
	case CategoryBoolean:
		_, ok = p.Value.(keymint.BoolValue)
	case CategoryDate:
		_, ok = p.Value.(keymint.DateTime)
	case CategoryBytes, CategoryBigNum:
		_, ok = p.Value.(keymint.Blob)
	}
	if !ok {
		return mismatch(info, p.Value)
	}
	return nil
}

// ToCurrent converts a legacy parameter received from a module speaking the
// source revision.
func (c *Converter) ToCurrent(p keymaster.KeyParameter, source Generation) (keymint.KeyParameter, error) {
	if !source.IsLegacy() {
		return keymint.KeyParameter{}, fmt.Errorf("source %s is not a legacy generation", source)
	}
	info, err := c.registry.LookupLegacy(p.Tag)
	if err != nil {
		return keymint.KeyParameter{}, err
	}
	if info.Excluded {
		return keymint.KeyParameter{}, fmt.Errorf("%w: %s", ErrUnsupportedTag, info.ID)
	}
	if err := c.versions.CheckTarget(info.ID, source); err != nil {
		return keymint.KeyParameter{}, err
	}

	if info.Category != CategoryBytes && info.Category != CategoryBigNum && len(p.Blob) != 0 {
		return keymint.KeyParameter{}, fmt.Errorf("%w: %s carries a blob", ErrTypeMismatch, info.ID)
	}

	var value keymint.KeyParameterValue
	switch info.Category {
	case CategoryEnum:
		raw, err := safecast.ToUint32(p.F)
		if err != nil {
			return keymint.KeyParameter{}, fmt.Errorf("%w: %s value %d", ErrUnknownEnumValue, info.ID, p.F)
		}
		codec, err := c.enums.codec(info.Domain)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		if value, err = codec.currentValue(raw); err != nil {
			return keymint.KeyParameter{}, err
		}
	case CategoryInteger:
		v, err := safecast.ToUint32(p.F)
		if err != nil {
			return keymint.KeyParameter{}, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, info.ID, err)
		}
		value = keymint.Integer(int32(v))
	case CategoryLongInteger:
		value = keymint.LongInteger(int64(p.F))
	case CategoryBoolean:
		if p.F > 1 {
			return keymint.KeyParameter{}, fmt.Errorf("%w: %s boolean value %d", ErrTypeMismatch, info.ID, p.F)
		}
		value = keymint.BoolValue(p.F == 1)
	case CategoryDate:
		value = keymint.DateTime(int64(p.F))
	case CategoryBytes, CategoryBigNum:
		if p.F != 0 {
			return keymint.KeyParameter{}, fmt.Errorf("%w: %s carries an integral value", ErrTypeMismatch, info.ID)
		}
		value = keymint.Blob(bytes.Clone(p.Blob))
	default:
		return keymint.KeyParameter{}, fmt.Errorf("%w: %s", ErrUnsupportedTag, info.ID)
	}
	return keymint.KeyParameter{Tag: info.Current, Value: value}, nil
}

// ConvertEnum translates one standalone enumerated value, for example a
// security level reported outside of any parameter.
func (c *Converter) ConvertEnum(d Domain, v int64, dir Direction) (int64, error) {
	return c.enums.Convert(d, v, dir)
}

func mismatch(info TagInfo, v keymint.KeyParameterValue) error {
	return fmt.Errorf("%w: %s expects %s, got %T", ErrTypeMismatch, info.ID, info.Category, v)
}
