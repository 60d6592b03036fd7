package keymaster

import (
	"bytes"
	"fmt"
)

// KeyParameter is the legacy wire container shared by the 4.0 and 4.1
// interfaces. F holds the integral payload of every non-BYTES tag (enum
// values, booleans as 0/1, integers and dates); Blob holds BYTES and BIGNUM
// payloads. Which field is meaningful is decided by the tag type.
type KeyParameter struct {
	Tag  Tag
	F    uint64
	Blob []byte
}

// Enum is satisfied by every enumeration of this package.
type Enum interface {
	~uint32
}

func NewEnum[E Enum](tag Tag, v E) KeyParameter {
	return KeyParameter{Tag: tag, F: uint64(v)}
}

func NewBool(tag Tag, v bool) KeyParameter {
	p := KeyParameter{Tag: tag}
	if v {
		p.F = 1
	}
	return p
}

func NewInteger(tag Tag, v uint32) KeyParameter {
	return KeyParameter{Tag: tag, F: uint64(v)}
}

func NewLongInteger(tag Tag, v uint64) KeyParameter {
	return KeyParameter{Tag: tag, F: v}
}

func NewDateTime(tag Tag, v uint64) KeyParameter {
	return KeyParameter{Tag: tag, F: v}
}

func NewBlob(tag Tag, v []byte) KeyParameter {
	return KeyParameter{Tag: tag, Blob: v}
}

func (p KeyParameter) Bool() bool          { return p.F != 0 }
func (p KeyParameter) Integer() uint32     { return uint32(p.F) }
func (p KeyParameter) LongInteger() uint64 { return p.F }
func (p KeyParameter) DateTime() uint64    { return p.F }

func (p KeyParameter) Equal(o KeyParameter) bool {
	return p.Tag == o.Tag && p.F == o.F && bytes.Equal(p.Blob, o.Blob)
}

func (p KeyParameter) String() string {
	switch p.Tag.Type() {
	case TagTypeBytes, TagTypeBignum:
		return fmt.Sprintf("%s: %x", p.Tag, p.Blob)
	default:
		return fmt.Sprintf("%s: %d", p.Tag, p.F)
	}
}

type KeyCharacteristics struct {
	SoftwareEnforced []KeyParameter
	HardwareEnforced []KeyParameter
}

type KeyCreationResult struct {
	KeyBlob            []byte
	KeyCharacteristics KeyCharacteristics
}

type HardwareInfo struct {
	SecurityLevel       SecurityLevel
	KeymasterName       string
	KeymasterAuthorName string
}
