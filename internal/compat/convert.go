package compat

import (
	"bytes"
	"fmt"

	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
)

// ParameterList is a list of parameters in one schema generation. Current is
// populated when Generation is Current, Legacy otherwise.
type ParameterList struct {
	Generation Generation
	Current    []keymint.KeyParameter
	Legacy     []keymaster.KeyParameter
}

func CurrentList(params ...keymint.KeyParameter) ParameterList {
	return ParameterList{Generation: Current, Current: params}
}

func LegacyList(gen Generation, params ...keymaster.KeyParameter) ParameterList {
	return ParameterList{Generation: gen, Legacy: params}
}

func (l ParameterList) Len() int {
	if l.Generation == Current {
		return len(l.Current)
	}
	return len(l.Legacy)
}

// TagIDs resolves the identity of every parameter, in list order.
func (l ParameterList) TagIDs(r *Registry) ([]TagID, error) {
	ids := make([]TagID, 0, l.Len())
	if l.Generation == Current {
		for _, p := range l.Current {
			info, err := r.LookupCurrent(p.Tag)
			if err != nil {
				return nil, err
			}
			ids = append(ids, info.ID)
		}
		return ids, nil
	}
	for _, p := range l.Legacy {
		info, err := r.LookupLegacy(p.Tag)
		if err != nil {
			return nil, err
		}
		ids = append(ids, info.ID)
	}
	return ids, nil
}

// Convert translates a whole list into the target generation. Order and
// multiplicity are preserved. The first parameter that cannot be converted
// fails the call; no partial list is ever returned. Converting between the
// two legacy revisions goes through the current representation so revision
// gating applies in both directions.
func (c *Converter) Convert(list ParameterList, target Generation) (ParameterList, error) {
	if !validGeneration(list.Generation) {
		return ParameterList{}, fmt.Errorf("unknown source generation %s", list.Generation)
	}
	if !validGeneration(target) {
		return ParameterList{}, fmt.Errorf("unknown target generation %s", target)
	}
	switch {
	case list.Generation == target:
		return c.identity(list)
	case target == Current:
		params, err := c.ConvertToCurrent(list.Legacy, list.Generation)
		if err != nil {
			return ParameterList{}, err
		}
		return CurrentList(params...), nil
	case list.Generation == Current:
		params, err := c.ConvertToLegacy(list.Current, target)
		if err != nil {
			return ParameterList{}, err
		}
		return LegacyList(target, params...), nil
	default:
		current, err := c.ConvertToCurrent(list.Legacy, list.Generation)
		if err != nil {
			return ParameterList{}, err
		}
		params, err := c.ConvertToLegacy(current, target)
		if err != nil {
			return ParameterList{}, err
		}
		return LegacyList(target, params...), nil
	}
}

// identity validates a list against its own generation and returns a copy.
func (c *Converter) identity(list ParameterList) (ParameterList, error) {
	if list.Generation == Current {
		out := make([]keymint.KeyParameter, len(list.Current))
		for i, p := range list.Current {
			if err := c.Check(p); err != nil {
				return ParameterList{}, &ConversionError{Index: i, Tag: p.Tag.String(), Err: err}
			}
			if b, ok := p.Value.(keymint.Blob); ok {
				p.Value = keymint.Blob(bytes.Clone(b))
			}
			out[i] = p
		}
		return CurrentList(out...), nil
	}
	current, err := c.ConvertToCurrent(list.Legacy, list.Generation)
	if err != nil {
		return ParameterList{}, err
	}
	params, err := c.ConvertToLegacy(current, list.Generation)
	if err != nil {
		return ParameterList{}, err
	}
	return LegacyList(list.Generation, params...), nil
}

// ConvertToLegacy converts every parameter of a current list, failing on the
// first error.
func (c *Converter) ConvertToLegacy(params []keymint.KeyParameter, target Generation) ([]keymaster.KeyParameter, error) {
	out := make([]keymaster.KeyParameter, 0, len(params))
	for i, p := range params {
		lp, err := c.ToLegacy(p, target)
		if err != nil {
			return nil, &ConversionError{Index: i, Tag: p.Tag.String(), Err: err}
		}
		out = append(out, lp)
	}
	return out, nil
}

// ConvertToCurrent converts every parameter of a legacy list received from a
// module speaking the source revision, failing on the first error.
func (c *Converter) ConvertToCurrent(params []keymaster.KeyParameter, source Generation) ([]keymint.KeyParameter, error) {
	out := make([]keymint.KeyParameter, 0, len(params))
	for i, p := range params {
		cp, err := c.ToCurrent(p, source)
		if err != nil {
			return nil, &ConversionError{Index: i, Tag: p.Tag.String(), Err: err}
		}
		out = append(out, cp)
	}
	return out, nil
}

func validGeneration(g Generation) bool {
	_, ok := generationNames[g]
	return ok
}
