package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flightctl/kmcompat/internal/config"
	kmlog "github.com/flightctl/kmcompat/pkg/log"
	"github.com/google/renameio"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	yamlFormat = "yaml"
	jsonFormat = "json"

	stdio = "-"
)

type GlobalOptions struct {
	ConfigFilePath string
	LogLevel       string

	config *config.Config
	log    *logrus.Logger
	out    io.Writer
	in     io.Reader
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: config.ConfigFile(),
		LogLevel:       "",
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigFilePath, "config", o.ConfigFilePath, "Path to the kmcompat configuration file. A missing file means defaults.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Override the configured log level (trace, debug, info, warn, error).")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(o.ConfigFilePath)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", o.ConfigFilePath, err)
	}
	o.config = cfg
	if o.LogLevel == "" {
		o.LogLevel = cfg.LogLevel().String()
	}
	o.log = kmlog.InitLogsWithLevel(o.LogLevel, cmd.ErrOrStderr())
	if o.out == nil {
		o.out = cmd.OutOrStdout()
	}
	if o.in == nil {
		o.in = cmd.InOrStdin()
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.config == nil {
		return errors.New("options were not completed")
	}
	return nil
}

// readInput reads path, or standard input when path is "-".
func (o *GlobalOptions) readInput(path string) ([]byte, error) {
	if path == stdio || path == "" {
		return io.ReadAll(o.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path atomically, or to standard output when path is "-".
func (o *GlobalOptions) writeOutput(path string, data []byte) error {
	if path == stdio || path == "" {
		_, err := o.out.Write(data)
		return err
	}
	return writeFileAtomically(path, data, 0o600)
}

func writeFileAtomically(fpath string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(fpath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	t, err := renameio.TempFile(dir, fpath)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Cleanup()
	}()
	if err := t.Chmod(mode); err != nil {
		return err
	}
	if _, err := t.Write(b); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
