package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flightctl/kmcompat/internal/bridge"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/tpm"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/yaml"
)

const (
	appName = "kmcompat"

	defaultConfigFileName = "config.yaml"
)

type Config struct {
	Log     *logConfig     `json:"log,omitempty"`
	Bridge  *bridgeConfig  `json:"bridge,omitempty"`
	TPM     *tpmConfig     `json:"tpm,omitempty"`
	Metrics *metricsConfig `json:"metrics,omitempty"`
}

type logConfig struct {
	Level string `json:"level,omitempty"`
}

type bridgeConfig struct {
	// Revision is the legacy interface revision spoken by the wrapped device.
	Revision string `json:"revision,omitempty"`
	// Policy is applied to parameters the revision cannot express: abort or drop.
	Policy string `json:"policy,omitempty"`
}

type tpmConfig struct {
	// DevicePath is the TPM character device. Empty means the first TPM 2.0 found.
	DevicePath string `json:"devicePath"`
	Simulator  bool   `json:"simulator,omitempty"`
}

type metricsConfig struct {
	// TextfilePath, when set, receives the bridge counters in node_exporter textfile format.
	TextfilePath string `json:"textfilePath,omitempty"`
}

func ConfigDir() string {
	baseDir, err := os.UserConfigDir()
	if err != nil {
		baseDir = os.TempDir()
	}
	return filepath.Join(baseDir, appName)
}

func ConfigFile() string {
	return filepath.Join(ConfigDir(), defaultConfigFileName)
}

func NewDefault() *Config {
	c := &Config{
		Log: &logConfig{
			Level: logrus.InfoLevel.String(),
		},
		Bridge: &bridgeConfig{
			Revision: compat.LegacyExtension.String(),
			Policy:   string(bridge.PolicyAbort),
		},
		TPM: &tpmConfig{
			DevicePath: tpm.TpmSystemPath,
		},
		Metrics: &metricsConfig{},
	}
	return c
}

func NewFromFile(cfgFile string) (*Config, error) {
	cfg, err := Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault reads cfgFile if it exists and falls back to the defaults otherwise.
func LoadOrDefault(cfgFile string) (*Config, error) {
	if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
		return NewDefault(), nil
	}
	return NewFromFile(cfgFile)
}

// Load decodes cfgFile on top of the defaults, so omitted sections keep their default values.
func Load(cfgFile string) (*Config, error) {
	contents, err := os.ReadFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c := NewDefault()
	if err := yaml.UnmarshalStrict(contents, c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return c, nil
}

func Save(cfg *Config, cfgFile string) error {
	contents, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfgFile), 0755); err != nil {
		return fmt.Errorf("creating directory for config file: %w", err)
	}
	if err := os.WriteFile(cfgFile, contents, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func Validate(cfg *Config) error {
	var errs []error
	if cfg.Log != nil && cfg.Log.Level != "" {
		if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	if cfg.Bridge != nil {
		if cfg.Bridge.Revision != "" {
			if _, err := cfg.Bridge.LegacyRevision(); err != nil {
				errs = append(errs, err)
			}
		}
		if cfg.Bridge.Policy != "" {
			if _, err := bridge.ParsePolicy(cfg.Bridge.Policy); err != nil {
				errs = append(errs, fmt.Errorf("bridge.policy: %w", err))
			}
		}
	}
	if cfg.TPM != nil && cfg.TPM.DevicePath != "" && !filepath.IsAbs(cfg.TPM.DevicePath) {
		errs = append(errs, fmt.Errorf("tpm.devicePath must be absolute: %q", cfg.TPM.DevicePath))
	}
	return errors.Join(errs...)
}

// LogLevel returns the configured level, defaulting to info.
func (cfg *Config) LogLevel() logrus.Level {
	if cfg.Log == nil {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// LegacyRevision parses the configured revision. An empty revision means legacy-extension.
func (b *bridgeConfig) LegacyRevision() (compat.Generation, error) {
	if b == nil || b.Revision == "" {
		return compat.LegacyExtension, nil
	}
	g, err := compat.ParseGeneration(b.Revision)
	if err != nil {
		return 0, fmt.Errorf("bridge.revision: %w", err)
	}
	if !g.IsLegacy() {
		return 0, fmt.Errorf("bridge.revision: %q is not a legacy revision", b.Revision)
	}
	return g, nil
}

// BridgeOptions turns the bridge section into adapter options.
func (cfg *Config) BridgeOptions(log logrus.FieldLogger) ([]bridge.Option, error) {
	opts := []bridge.Option{bridge.WithLogger(log)}
	if cfg.Bridge != nil && cfg.Bridge.Policy != "" {
		p, err := bridge.ParsePolicy(cfg.Bridge.Policy)
		if err != nil {
			return nil, fmt.Errorf("bridge.policy: %w", err)
		}
		opts = append(opts, bridge.WithPolicy(p))
	}
	return opts, nil
}

func (cfg *Config) String() string {
	contents, err := json.Marshal(cfg)
	if err != nil {
		return "<error>"
	}
	return string(contents)
}
