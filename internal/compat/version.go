package compat

import "fmt"

// VersionAdapter decides which legacy revision carries a tag.
type VersionAdapter struct {
	registry *Registry
}

func NewVersionAdapter(registry *Registry) *VersionAdapter {
	return &VersionAdapter{registry: registry}
}

// TargetRevision returns the oldest legacy revision defining the tag:
// LegacyBase for tags of the 4.0 interface and LegacyExtension for tags the
// 4.1 interface introduced. Tags without a legacy representation yield
// ErrUnsupportedOnRevision.
func (a *VersionAdapter) TargetRevision(id TagID) (Generation, error) {
	gens, err := a.registry.ValidGenerations(id)
	if err != nil {
		return 0, err
	}
	switch {
	case gens.Has(LegacyBase):
		return LegacyBase, nil
	case gens.Has(LegacyExtension):
		return LegacyExtension, nil
	default:
		return 0, fmt.Errorf("%w: %s has no legacy representation", ErrUnsupportedOnRevision, id)
	}
}

// CheckTarget reports whether the tag may be emitted toward (or accepted
// from) the given generation.
func (a *VersionAdapter) CheckTarget(id TagID, gen Generation) error {
	gens, err := a.registry.ValidGenerations(id)
	if err != nil {
		return err
	}
	if gens.Has(gen) {
		return nil
	}
	if gen.IsLegacy() {
		if rev, err := a.TargetRevision(id); err == nil {
			return fmt.Errorf("%w: %s requires %s, module speaks %s", ErrUnsupportedOnRevision, id, rev, gen)
		}
	}
	return fmt.Errorf("%w: %s is not defined in %s", ErrUnsupportedOnRevision, id, gen)
}

// MinimumRevision returns the oldest legacy revision able to carry every tag
// of the list.
func (a *VersionAdapter) MinimumRevision(ids []TagID) (Generation, error) {
	lowest := LegacyBase
	for _, id := range ids {
		rev, err := a.TargetRevision(id)
		if err != nil {
			return 0, err
		}
		if rev == LegacyExtension {
			lowest = LegacyExtension
		}
	}
	return lowest, nil
}
