package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=device.go -destination=mock_device.go -package=bridge

// LegacyDevice is a key engine speaking the 4.0/4.1 legacy schema.
type LegacyDevice interface {
	GetHardwareInfo(ctx context.Context) (keymaster.HardwareInfo, error)
	GenerateKey(ctx context.Context, params []keymaster.KeyParameter) (keymaster.KeyCreationResult, error)
	GetKeyCharacteristics(ctx context.Context, keyBlob, appID, appData []byte) (keymaster.KeyCharacteristics, error)
	Begin(ctx context.Context, purpose keymaster.KeyPurpose, keyBlob []byte, params []keymaster.KeyParameter) (uint64, []keymaster.KeyParameter, error)
}

// KeyMintDevice is a key engine speaking the current schema.
type KeyMintDevice interface {
	GetHardwareInfo(ctx context.Context) (keymint.HardwareInfo, error)
	GenerateKey(ctx context.Context, params []keymint.KeyParameter) (keymint.KeyCreationResult, error)
	GetKeyCharacteristics(ctx context.Context, keyBlob, appID, appData []byte) ([]keymint.KeyCharacteristics, error)
	Begin(ctx context.Context, purpose keymint.KeyPurpose, keyBlob []byte, params []keymint.KeyParameter) (uint64, []keymint.KeyParameter, error)
}

// Policy decides what happens to a request parameter the device's revision
// cannot represent.
type Policy string

const (
	// PolicyAbort fails the whole request.
	PolicyAbort Policy = "abort"
	// PolicyDrop removes the parameter, logs it and carries on. Requests only
	// lose extension-only tags bound for a base revision device; reports to a
	// legacy caller lose anything the revision cannot carry.
	PolicyDrop Policy = "drop"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyAbort, PolicyDrop:
		return p, nil
	default:
		return "", fmt.Errorf("unknown unsupported-parameter policy %q (want %q or %q)", s, PolicyAbort, PolicyDrop)
	}
}

type options struct {
	converter *compat.Converter
	policy    Policy
	log       logrus.FieldLogger
	metrics   *Collector
}

// Option configures an adapter.
type Option func(*options)

// WithConverter replaces the default converter.
func WithConverter(c *compat.Converter) Option {
	return func(o *options) {
		o.converter = c
	}
}

// WithPolicy sets what happens to a current-schema parameter the legacy
// revision cannot carry. Current-only tags and values in a request, such as
// USAGE_COUNT_LIMIT or PURPOSE AGREE_KEY, fail the call under either policy,
// as does any other conversion failure.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMetrics records conversion outcomes in the given collector.
func WithMetrics(m *Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func newOptions(opts []Option) options {
	o := options{
		converter: compat.Default(),
		policy:    PolicyAbort,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
