package cli

import (
	"context"
	"fmt"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/paramfile"
	"github.com/flightctl/kmcompat/internal/tpm"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-tpm/tpm2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

type TemplateOptions struct {
	GlobalOptions

	Filename string
	Output   string
}

type templateSummary struct {
	Algorithm  string   `json:"algorithm"`
	Type       string   `json:"type"`
	NameAlg    string   `json:"nameAlg"`
	Attributes []string `json:"attributes"`
	// Public is the marshalled TPMT_PUBLIC.
	Public []byte `json:"public"`
}

func DefaultTemplateOptions() *TemplateOptions {
	return &TemplateOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Filename:      stdio,
		Output:        stdio,
	}
}

func NewCmdTemplate() *cobra.Command {
	o := DefaultTemplateOptions()
	cmd := &cobra.Command{
		Use:   "template [-f FILENAME]",
		Short: "Show the TPM public template a key parameter document projects onto.",
		Args:  cobra.NoArgs,
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

func (o *TemplateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Filename, "filename", "f", o.Filename, "Parameter document of the key, '-' for stdin.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Where to write the template, '-' for stdout.")
}

func (o *TemplateOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *TemplateOptions) Validate(args []string) error {
	return o.GlobalOptions.Validate(args)
}

func (o *TemplateOptions) Run(ctx context.Context, args []string) error {
	params, err := o.readCurrent(o.Filename)
	if err != nil {
		return err
	}
	template, err := tpm.KeyTemplate(params)
	if err != nil {
		return err
	}

	summary := templateSummary{
		Type:       fmt.Sprintf("%#04x", uint16(template.Type)),
		NameAlg:    fmt.Sprintf("%#04x", uint16(template.NameAlg)),
		Attributes: objectAttributes(template.ObjectAttributes),
		Public:     tpm2.Marshal(template),
	}
	if p, ok := keymint.Find(params, keymint.TagAlgorithm); ok {
		summary.Algorithm = fmt.Sprint(p.Value)
	}

	out, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}
	return o.writeOutput(o.Output, out)
}

// readCurrent decodes a parameter document of any generation and lifts it into the current schema.
func (o *GlobalOptions) readCurrent(path string) ([]keymint.KeyParameter, error) {
	data, err := o.readInput(path)
	if err != nil {
		return nil, err
	}
	list, err := paramfile.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	current, err := compat.Default().Convert(list, compat.Current)
	if err != nil {
		return nil, err
	}
	return current.Current, nil
}

func objectAttributes(a tpm2.TPMAObject) []string {
	attrs := []lo.Entry[string, bool]{
		{Key: "fixedTPM", Value: a.FixedTPM},
		{Key: "fixedParent", Value: a.FixedParent},
		{Key: "sensitiveDataOrigin", Value: a.SensitiveDataOrigin},
		{Key: "userWithAuth", Value: a.UserWithAuth},
		{Key: "noDA", Value: a.NoDA},
		{Key: "restricted", Value: a.Restricted},
		{Key: "decrypt", Value: a.Decrypt},
		{Key: "sign", Value: a.SignEncrypt},
	}
	return lo.FilterMap(attrs, func(e lo.Entry[string, bool], _ int) (string, bool) {
		return e.Key, e.Value
	})
}
