// Package paramfile reads and writes key parameter lists as YAML documents.
//
// A document names its schema generation and lists the parameters in order:
//
//	generation: legacy-base
//	parameters:
//	  - tag: ALGORITHM
//	    value: EC
//	  - tag: KEY_SIZE
//	    value: 256
//	  - tag: ATTESTATION_CHALLENGE
//	    value: !!binary Y2hhbGxlbmdl
//	  - tag: ACTIVE_DATETIME
//	    value: 2023-11-14T22:13:20Z
//
// Tag and enum names are matched case-insensitively. Dates may be given as
// milliseconds since the epoch or as RFC 3339 timestamps. Byte payloads are
// either !!binary or plain text.
package paramfile

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"gopkg.in/yaml.v3"
)

const (
	tagBinary    = "!!binary"
	tagBool      = "!!bool"
	tagInt       = "!!int"
	tagStr       = "!!str"
	tagTimestamp = "!!timestamp"
)

// Document is the YAML form of a parameter list. It can be embedded in other
// YAML structures.
type Document struct {
	Generation string  `yaml:"generation"`
	Parameters []Entry `yaml:"parameters"`
}

type Entry struct {
	Tag   string    `yaml:"tag"`
	Value yaml.Node `yaml:"value"`
}

// Codec maps parameter lists to documents using the tag and value tables of a
// converter.
type Codec struct {
	registry *compat.Registry
	enums    *compat.EnumMaps
}

func NewCodec(c *compat.Converter) *Codec {
	return &Codec{registry: c.Registry(), enums: c.Enums()}
}

var defaultCodec = NewCodec(compat.Default())

func Default() *Codec {
	return defaultCodec
}

func Unmarshal(data []byte) (compat.ParameterList, error) {
	return defaultCodec.Unmarshal(data)
}

func Marshal(list compat.ParameterList) ([]byte, error) {
	return defaultCodec.Marshal(list)
}

func (c *Codec) Decode(r io.Reader) (compat.ParameterList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return compat.ParameterList{}, fmt.Errorf("reading parameter document: %w", err)
	}
	return c.Unmarshal(data)
}

func (c *Codec) Encode(w io.Writer, list compat.ParameterList) error {
	data, err := c.Marshal(list)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (c *Codec) Unmarshal(data []byte) (compat.ParameterList, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return compat.ParameterList{}, fmt.Errorf("parsing parameter document: %w", err)
	}
	return c.FromDocument(doc)
}

// FromDocument decodes every entry of doc, failing on the first bad one.
func (c *Codec) FromDocument(doc Document) (compat.ParameterList, error) {
	if doc.Generation == "" {
		return compat.ParameterList{}, fmt.Errorf("parameter document has no generation")
	}
	gen, err := compat.ParseGeneration(doc.Generation)
	if err != nil {
		return compat.ParameterList{}, err
	}

	list := compat.ParameterList{Generation: gen}
	for i, e := range doc.Parameters {
		info, err := c.registry.LookupName(e.Tag)
		if err != nil {
			return compat.ParameterList{}, entryError(i, e.Tag, err)
		}
		if e.Value.Kind == 0 {
			return compat.ParameterList{}, entryError(i, e.Tag, fmt.Errorf("%w: missing value", compat.ErrTypeMismatch))
		}
		if e.Value.Kind != yaml.ScalarNode {
			return compat.ParameterList{}, entryError(i, e.Tag, fmt.Errorf("%w: value must be a scalar", compat.ErrTypeMismatch))
		}

		if gen == compat.Current {
			p, err := c.decodeCurrent(info, &e.Value)
			if err != nil {
				return compat.ParameterList{}, entryError(i, e.Tag, err)
			}
			list.Current = append(list.Current, p)
			continue
		}
		p, err := c.decodeLegacy(info, &e.Value)
		if err != nil {
			return compat.ParameterList{}, entryError(i, e.Tag, err)
		}
		list.Legacy = append(list.Legacy, p)
	}
	return list, nil
}

func (c *Codec) decodeCurrent(info compat.TagInfo, n *yaml.Node) (keymint.KeyParameter, error) {
	if !info.Generations.Has(compat.Current) {
		return keymint.KeyParameter{}, fmt.Errorf("%w: %s is not a current tag", compat.ErrUnsupportedOnRevision, info.ID)
	}
	var value keymint.KeyParameterValue
	switch info.Category {
	case compat.CategoryEnum:
		v, err := c.enums.ParseCurrent(info.Domain, n.Value)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		value = v
	case compat.CategoryInteger:
		v, err := decodeInt(n)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		i, err := safecast.ToInt32(v)
		if err != nil {
			return keymint.KeyParameter{}, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		value = keymint.Integer(i)
	case compat.CategoryLongInteger:
		v, err := decodeInt(n)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		value = keymint.LongInteger(v)
	case compat.CategoryBoolean:
		v, err := decodeBool(n)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		value = keymint.BoolValue(v)
	case compat.CategoryDate:
		v, err := decodeDate(n)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		value = keymint.DateTime(v)
	case compat.CategoryBytes, compat.CategoryBigNum:
		v, err := decodeBytes(n)
		if err != nil {
			return keymint.KeyParameter{}, err
		}
		value = keymint.Blob(v)
	default:
		return keymint.KeyParameter{}, fmt.Errorf("%w: %s", compat.ErrUnsupportedTag, info.ID)
	}
	return keymint.NewKeyParameter(info.Current, value), nil
}

func (c *Codec) decodeLegacy(info compat.TagInfo, n *yaml.Node) (keymaster.KeyParameter, error) {
	if !info.Generations.Has(compat.LegacyBase) && !info.Generations.Has(compat.LegacyExtension) {
		return keymaster.KeyParameter{}, fmt.Errorf("%w: %s has no legacy representation", compat.ErrUnsupportedOnRevision, info.ID)
	}
	p := keymaster.KeyParameter{Tag: info.Legacy}
	switch info.Category {
	case compat.CategoryEnum:
		v, err := c.enums.ParseLegacy(info.Domain, n.Value)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		p.F = uint64(v)
	case compat.CategoryInteger:
		v, err := decodeUint(n)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		u, err := safecast.ToUint32(v)
		if err != nil {
			return keymaster.KeyParameter{}, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		p.F = uint64(u)
	case compat.CategoryLongInteger:
		v, err := decodeUint(n)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		p.F = v
	case compat.CategoryBoolean:
		v, err := decodeBool(n)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		if v {
			p.F = 1
		}
	case compat.CategoryDate:
		v, err := decodeDate(n)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		ms, err := safecast.ToUint64(v)
		if err != nil {
			return keymaster.KeyParameter{}, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		p.F = ms
	case compat.CategoryBytes, compat.CategoryBigNum:
		v, err := decodeBytes(n)
		if err != nil {
			return keymaster.KeyParameter{}, err
		}
		p.Blob = v
	default:
		return keymaster.KeyParameter{}, fmt.Errorf("%w: %s", compat.ErrUnsupportedTag, info.ID)
	}
	return p, nil
}

func decodeInt(n *yaml.Node) (int64, error) {
	var v int64
	if n.Tag != tagInt || n.Decode(&v) != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", compat.ErrTypeMismatch, n.Value)
	}
	return v, nil
}

func decodeUint(n *yaml.Node) (uint64, error) {
	var v uint64
	if n.Tag != tagInt || n.Decode(&v) != nil {
		return 0, fmt.Errorf("%w: %q is not an unsigned integer", compat.ErrTypeMismatch, n.Value)
	}
	return v, nil
}

func decodeBool(n *yaml.Node) (bool, error) {
	var v bool
	if n.Tag != tagBool || n.Decode(&v) != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", compat.ErrTypeMismatch, n.Value)
	}
	return v, nil
}

// decodeDate returns milliseconds since the epoch.
func decodeDate(n *yaml.Node) (int64, error) {
	switch n.Tag {
	case tagInt:
		return decodeInt(n)
	case tagTimestamp:
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return 0, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		return t.UnixMilli(), nil
	case tagStr:
		t, err := time.Parse(time.RFC3339Nano, n.Value)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		return t.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("%w: %q is not a date", compat.ErrTypeMismatch, n.Value)
	}
}

func decodeBytes(n *yaml.Node) ([]byte, error) {
	switch n.Tag {
	case tagBinary:
		var v string
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		return []byte(v), nil
	case tagStr:
		return []byte(n.Value), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a byte string", compat.ErrTypeMismatch, n.Value)
	}
}

func (c *Codec) Marshal(list compat.ParameterList) ([]byte, error) {
	doc, err := c.ToDocument(list)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding parameter document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding parameter document: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) ToDocument(list compat.ParameterList) (Document, error) {
	doc := Document{Generation: list.Generation.String()}
	if list.Generation == compat.Current {
		for i, p := range list.Current {
			info, err := c.registry.LookupCurrent(p.Tag)
			if err != nil {
				return Document{}, entryError(i, p.Tag.String(), err)
			}
			n, err := c.encodeCurrent(info, p.Value)
			if err != nil {
				return Document{}, entryError(i, p.Tag.String(), err)
			}
			doc.Parameters = append(doc.Parameters, Entry{Tag: string(info.ID), Value: *n})
		}
	} else {
		for i, p := range list.Legacy {
			info, err := c.registry.LookupLegacy(p.Tag)
			if err != nil {
				return Document{}, entryError(i, p.Tag.String(), err)
			}
			n, err := c.encodeLegacy(info, p)
			if err != nil {
				return Document{}, entryError(i, p.Tag.String(), err)
			}
			doc.Parameters = append(doc.Parameters, Entry{Tag: string(info.ID), Value: *n})
		}
	}
	return doc, nil
}

func (c *Codec) encodeCurrent(info compat.TagInfo, value keymint.KeyParameterValue) (*yaml.Node, error) {
	var ok bool
	var n *yaml.Node
	switch info.Category {
	case compat.CategoryEnum:
		var name fmt.Stringer
		if name, ok = value.(fmt.Stringer); ok {
			parsed, err := c.enums.ParseCurrent(info.Domain, name.String())
			ok = err == nil && parsed == value
			n = scalar(tagStr, name.String())
		}
	case compat.CategoryInteger:
		var v keymint.Integer
		v, ok = value.(keymint.Integer)
		n = scalar(tagInt, strconv.FormatInt(int64(v), 10))
	case compat.CategoryLongInteger:
		var v keymint.LongInteger
		v, ok = value.(keymint.LongInteger)
		n = scalar(tagInt, strconv.FormatInt(int64(v), 10))
	case compat.CategoryBoolean:
		var v keymint.BoolValue
		v, ok = value.(keymint.BoolValue)
		n = scalar(tagBool, strconv.FormatBool(bool(v)))
	case compat.CategoryDate:
		var v keymint.DateTime
		v, ok = value.(keymint.DateTime)
		n = dateNode(int64(v))
	case compat.CategoryBytes, compat.CategoryBigNum:
		var v keymint.Blob
		v, ok = value.(keymint.Blob)
		n = binaryNode(v)
	default:
		return nil, fmt.Errorf("%w: %s", compat.ErrUnsupportedTag, info.ID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s expects %s, got %T", compat.ErrTypeMismatch, info.ID, info.Category, value)
	}
	return n, nil
}

func (c *Codec) encodeLegacy(info compat.TagInfo, p keymaster.KeyParameter) (*yaml.Node, error) {
	switch info.Category {
	case compat.CategoryEnum:
		raw, err := safecast.ToUint32(p.F)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", compat.ErrUnknownEnumValue, err)
		}
		return scalar(tagStr, c.enums.LegacyName(info.Domain, raw)), nil
	case compat.CategoryInteger, compat.CategoryLongInteger:
		return scalar(tagInt, strconv.FormatUint(p.F, 10)), nil
	case compat.CategoryBoolean:
		return scalar(tagBool, strconv.FormatBool(p.F != 0)), nil
	case compat.CategoryDate:
		ms, err := safecast.ToInt64(p.F)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", compat.ErrTypeMismatch, err)
		}
		return dateNode(ms), nil
	case compat.CategoryBytes, compat.CategoryBigNum:
		return binaryNode(p.Blob), nil
	default:
		return nil, fmt.Errorf("%w: %s", compat.ErrUnsupportedTag, info.ID)
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func dateNode(ms int64) *yaml.Node {
	return scalar(tagTimestamp, time.UnixMilli(ms).UTC().Format(time.RFC3339Nano))
}

func binaryNode(b []byte) *yaml.Node {
	return scalar(tagBinary, base64.StdEncoding.EncodeToString(b))
}

func entryError(index int, tag string, err error) error {
	return &compat.ConversionError{Index: index, Tag: tag, Err: err}
}
