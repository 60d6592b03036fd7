package cli

import (
	"context"
	"fmt"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/paramfile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ConvertOptions struct {
	GlobalOptions

	Filename string
	Output   string
	To       string

	target compat.Generation
}

func DefaultConvertOptions() *ConvertOptions {
	return &ConvertOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Filename:      stdio,
		Output:        stdio,
		To:            compat.Current.String(),
	}
}

func NewCmdConvert() *cobra.Command {
	o := DefaultConvertOptions()
	cmd := &cobra.Command{
		Use:   "convert [-f FILENAME] --to GENERATION",
		Short: "Convert a key parameter document to another schema generation.",
		Example: `  # Lift a legacy request into the current schema
  kmcompat convert -f request.yaml --to current

  # Lower a current request for a 4.0 device
  kmcompat convert -f request.yaml --to legacy-base -o legacy.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *ConvertOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Filename, "filename", "f", o.Filename, "Parameter document to convert, '-' for stdin.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Where to write the converted document, '-' for stdout.")
	fs.StringVar(&o.To, "to", o.To, "Target generation: current, legacy-base or legacy-extension.")
}

func (o *ConvertOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *ConvertOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	target, err := compat.ParseGeneration(o.To)
	if err != nil {
		return err
	}
	o.target = target
	return nil
}

func (o *ConvertOptions) Run(ctx context.Context, args []string) error {
	data, err := o.readInput(o.Filename)
	if err != nil {
		return err
	}
	list, err := paramfile.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", o.Filename, err)
	}

	converted, err := compat.Default().Convert(list, o.target)
	if err != nil {
		return fmt.Errorf("converting %s to %s: %w", list.Generation, o.target, err)
	}
	o.log.Debugf("converted %d parameters from %s to %s", converted.Len(), list.Generation, o.target)

	out, err := paramfile.Marshal(converted)
	if err != nil {
		return err
	}
	return o.writeOutput(o.Output, out)
}
