package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/flightctl/kmcompat/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

type ConfigOptions struct {
	GlobalOptions

	Force bool
}

func DefaultConfigOptions() *ConfigOptions {
	return &ConfigOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdConfig() *cobra.Command {
	o := DefaultConfigOptions()
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kmcompat configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())

	cmd.AddCommand(NewCmdConfigInit())
	cmd.AddCommand(NewCmdConfigView())

	return cmd
}

func (o *ConfigOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
}

// NewCmdConfigInit creates a command that writes the default configuration
func NewCmdConfigInit() *cobra.Command {
	o := DefaultConfigOptions()
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The existing file may be the broken one being replaced, so it is not loaded.
			o.out = cmd.OutOrStdout()
			return o.RunInit(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	cmd.Flags().BoolVar(&o.Force, "force", o.Force, "Overwrite an existing configuration file.")
	return cmd
}

// NewCmdConfigView creates a command that prints the effective configuration
func NewCmdConfigView() *cobra.Command {
	o := DefaultConfigOptions()
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.GlobalOptions.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.GlobalOptions.Validate(args); err != nil {
				return err
			}
			return o.RunView(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConfigOptions) RunInit(ctx context.Context, args []string) error {
	if _, err := os.Stat(o.ConfigFilePath); err == nil && !o.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", o.ConfigFilePath)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.Save(config.NewDefault(), o.ConfigFilePath); err != nil {
		return err
	}
	_, err := fmt.Fprintf(o.out, "wrote %s\n", o.ConfigFilePath)
	return err
}

func (o *ConfigOptions) RunView(ctx context.Context, args []string) error {
	if err := config.Validate(o.config); err != nil {
		return err
	}
	marshalled, err := yaml.Marshal(o.config)
	if err != nil {
		return err
	}
	_, err = o.out.Write(marshalled)
	return err
}
