package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type EnumOptions struct {
	GlobalOptions

	To string

	domain compat.Domain
	dir    compat.Direction
}

func DefaultEnumOptions() *EnumOptions {
	return &EnumOptions{
		GlobalOptions: DefaultGlobalOptions(),
		To:            "legacy",
	}
}

func NewCmdEnum() *cobra.Command {
	o := DefaultEnumOptions()
	cmd := &cobra.Command{
		Use:   "enum DOMAIN VALUE --to legacy|current",
		Short: "Translate one enumerated value between the two schemas.",
		Example: `  kmcompat enum key-origin RESERVED --to legacy
  kmcompat enum security-level 2 --to current`,
		Args: cobra.ExactArgs(2),
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

func (o *EnumOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.To, "to", o.To, "Direction of the translation: legacy or current.")
}

func (o *EnumOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *EnumOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	domain, err := compat.ParseDomain(args[0])
	if err != nil {
		return err
	}
	o.domain = domain

	switch o.To {
	case "legacy":
		o.dir = compat.ToLegacy
	case "current":
		o.dir = compat.ToCurrent
	default:
		return fmt.Errorf("--to must be one of (legacy, current), got %q", o.To)
	}
	return nil
}

func (o *EnumOptions) Run(ctx context.Context, args []string) error {
	enums := compat.Default().Enums()

	value, err := o.parseValue(enums, args[1])
	if err != nil {
		return err
	}
	converted, err := compat.Default().ConvertEnum(o.domain, value, o.dir)
	if err != nil {
		return err
	}

	var name string
	if o.dir == compat.ToLegacy {
		name = enums.LegacyName(o.domain, uint32(converted))
	} else {
		name = enums.CurrentName(o.domain, int32(converted))
	}
	_, err = fmt.Fprintf(o.out, "%s\t%d\n", name, converted)
	return err
}

// parseValue accepts a number or a symbolic name of the source schema.
func (o *EnumOptions) parseValue(enums *compat.EnumMaps, arg string) (int64, error) {
	if n, err := strconv.ParseInt(arg, 0, 64); err == nil {
		return n, nil
	}
	if o.dir == compat.ToLegacy {
		n, err := enums.ParseCurrentNumber(o.domain, arg)
		return int64(n), err
	}
	n, err := enums.ParseLegacy(o.domain, arg)
	return int64(n), err
}
