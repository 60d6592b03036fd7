package main

import (
	"os"

	"github.com/flightctl/kmcompat/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	command := NewKmcompatCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}

func NewKmcompatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kmcompat",
		Short: "kmcompat converts key parameters between the legacy Keymaster and current KeyMint schemas",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdConvert())
	cmd.AddCommand(cli.NewCmdEnum())
	cmd.AddCommand(cli.NewCmdTags())
	cmd.AddCommand(cli.NewCmdTemplate())
	cmd.AddCommand(cli.NewCmdGenerate())
	cmd.AddCommand(cli.NewCmdConfig())
	cmd.AddCommand(cli.NewCmdCompletion())
	cmd.AddCommand(cli.NewCmdVersion())
	return cmd
}
