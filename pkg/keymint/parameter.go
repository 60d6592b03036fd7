package keymint

import (
	"bytes"
	"fmt"
)

// KeyParameterValue is the payload of a KeyParameter. The set of
// implementations is closed: every enumeration type of this package plus
// BoolValue, Integer, LongInteger, DateTime and Blob.
type KeyParameterValue interface {
	isKeyParameterValue()
}

type (
	BoolValue   bool
	Integer     int32
	LongInteger int64
	// DateTime is milliseconds since the Unix epoch.
	DateTime int64
	// Blob carries BYTES payloads and the big-endian magnitude of BIGNUM payloads.
	Blob []byte
)

func (KeyPurpose) isKeyParameterValue()                {}
func (Algorithm) isKeyParameterValue()                 {}
func (Digest) isKeyParameterValue()                    {}
func (EcCurve) isKeyParameterValue()                   {}
func (BlockMode) isKeyParameterValue()                 {}
func (PaddingMode) isKeyParameterValue()               {}
func (HardwareAuthenticatorType) isKeyParameterValue() {}
func (SecurityLevel) isKeyParameterValue()             {}
func (KeyOrigin) isKeyParameterValue()                 {}
func (BoolValue) isKeyParameterValue()                 {}
func (Integer) isKeyParameterValue()                   {}
func (LongInteger) isKeyParameterValue()               {}
func (DateTime) isKeyParameterValue()                  {}
func (Blob) isKeyParameterValue()                      {}

type KeyParameter struct {
	Tag   Tag
	Value KeyParameterValue
}

func NewKeyParameter(tag Tag, value KeyParameterValue) KeyParameter {
	return KeyParameter{Tag: tag, Value: value}
}

// Equal compares tag and payload; Blob payloads are compared by content.
func (p KeyParameter) Equal(o KeyParameter) bool {
	if p.Tag != o.Tag {
		return false
	}
	pb, pIsBlob := p.Value.(Blob)
	ob, oIsBlob := o.Value.(Blob)
	if pIsBlob || oIsBlob {
		return pIsBlob && oIsBlob && bytes.Equal(pb, ob)
	}
	return p.Value == o.Value
}

func (p KeyParameter) String() string {
	switch v := p.Value.(type) {
	case Blob:
		return fmt.Sprintf("%s: %x", p.Tag, []byte(v))
	case nil:
		return fmt.Sprintf("%s: <nil>", p.Tag)
	default:
		return fmt.Sprintf("%s: %v", p.Tag, v)
	}
}

// KeyCharacteristics groups the authorizations enforced at one security level.
type KeyCharacteristics struct {
	SecurityLevel  SecurityLevel
	Authorizations []KeyParameter
}

type KeyCreationResult struct {
	KeyBlob            []byte
	KeyCharacteristics []KeyCharacteristics
}

type HardwareInfo struct {
	VersionNumber     int32
	SecurityLevel     SecurityLevel
	KeyMintName       string
	KeyMintAuthorName string
}

// Find returns the first parameter with the given tag.
func Find(params []KeyParameter, tag Tag) (KeyParameter, bool) {
	for _, p := range params {
		if p.Tag == tag {
			return p, true
		}
	}
	return KeyParameter{}, false
}

// FindAll returns the payloads of every parameter with the given tag, in list order.
func FindAll(params []KeyParameter, tag Tag) []KeyParameterValue {
	var values []KeyParameterValue
	for _, p := range params {
		if p.Tag == tag {
			values = append(values, p.Value)
		}
	}
	return values
}
