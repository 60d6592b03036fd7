package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require := require.New(t)

	cfg := NewDefault()
	require.NoError(Validate(cfg))
	require.Equal(logrus.InfoLevel, cfg.LogLevel())

	rev, err := cfg.Bridge.LegacyRevision()
	require.NoError(err)
	require.Equal(compat.LegacyExtension, rev)
}

func TestSaveAndLoad(t *testing.T) {
	require := require.New(t)
	cfgFile := filepath.Join(t.TempDir(), "nested", defaultConfigFileName)

	cfg := NewDefault()
	cfg.Log.Level = "debug"
	cfg.Bridge.Revision = "legacy-base"
	cfg.Bridge.Policy = "drop"
	cfg.TPM.Simulator = true
	cfg.Metrics.TextfilePath = "/var/lib/node_exporter/kmcompat.prom"
	require.NoError(Save(cfg, cfgFile))

	info, err := os.Stat(cfgFile)
	require.NoError(err)
	require.Equal(os.FileMode(0600), info.Mode().Perm())

	loaded, err := NewFromFile(cfgFile)
	require.NoError(err)
	require.Equal(cfg, loaded)
	require.Equal(logrus.DebugLevel, loaded.LogLevel())

	opts, err := loaded.BridgeOptions(logrus.New())
	require.NoError(err)
	require.Len(opts, 2)
}

func TestLoadKeepsDefaultsForOmittedSections(t *testing.T) {
	require := require.New(t)
	cfgFile := filepath.Join(t.TempDir(), defaultConfigFileName)
	require.NoError(os.WriteFile(cfgFile, []byte("bridge:\n  policy: drop\n"), 0600))

	cfg, err := Load(cfgFile)
	require.NoError(err)
	require.Equal("drop", cfg.Bridge.Policy)
	require.Equal("legacy-extension", cfg.Bridge.Revision)
	require.Equal("/dev/tpmrm0", cfg.TPM.DevicePath)
	require.Equal("info", cfg.Log.Level)
}

func TestLoadOrDefault(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(err)
	require.Equal(NewDefault(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	require := require.New(t)
	cfgFile := filepath.Join(t.TempDir(), defaultConfigFileName)
	require.NoError(os.WriteFile(cfgFile, []byte("bridge:\n  mode: drop\n"), 0600))

	_, err := Load(cfgFile)
	require.Error(err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "nil sections",
			mutate: func(c *Config) { *c = Config{} },
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
		},
		{
			name:    "current is not a legacy revision",
			mutate:  func(c *Config) { c.Bridge.Revision = "current" },
			wantErr: true,
		},
		{
			name:    "unknown revision",
			mutate:  func(c *Config) { c.Bridge.Revision = "legacy-3" },
			wantErr: true,
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.Bridge.Policy = "ignore" },
			wantErr: true,
		},
		{
			name:   "device discovery",
			mutate: func(c *Config) { c.TPM.DevicePath = "" },
		},
		{
			name:    "relative device path",
			mutate:  func(c *Config) { c.TPM.DevicePath = "dev/tpmrm0" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
