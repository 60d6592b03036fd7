package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

var legalTagsOutputTypes = []string{jsonFormat, yamlFormat}

type TagsOptions struct {
	GlobalOptions

	Generation string
	Output     string

	filter *compat.Generation
}

type tagRow struct {
	Tag         string `json:"tag"`
	Category    string `json:"category"`
	Domain      string `json:"domain,omitempty"`
	Current     string `json:"current,omitempty"`
	Legacy      string `json:"legacy,omitempty"`
	Generations string `json:"generations"`
	Repeatable  bool   `json:"repeatable"`
	Excluded    bool   `json:"excluded,omitempty"`
}

func DefaultTagsOptions() *TagsOptions {
	return &TagsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdTags() *cobra.Command {
	o := DefaultTagsOptions()
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tag registry.",
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

func (o *TagsOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Generation, "generation", "g", o.Generation, "Only list tags defined in this generation.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s). Default is a table.", strings.Join(legalTagsOutputTypes, ", ")))
}

func (o *TagsOptions) Complete(cmd *cobra.Command, args []string) error {
	return o.GlobalOptions.Complete(cmd, args)
}

func (o *TagsOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if len(o.Output) > 0 && !slices.Contains(legalTagsOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of (%s)", strings.Join(legalTagsOutputTypes, ", "))
	}
	if o.Generation != "" {
		g, err := compat.ParseGeneration(o.Generation)
		if err != nil {
			return err
		}
		o.filter = &g
	}
	return nil
}

func (o *TagsOptions) Run(ctx context.Context, args []string) error {
	tags := compat.Default().Registry().Tags()
	if o.filter != nil {
		tags = lo.Filter(tags, func(info compat.TagInfo, _ int) bool {
			return info.Generations.Has(*o.filter)
		})
	}
	rows := lo.Map(tags, func(info compat.TagInfo, _ int) tagRow {
		return newTagRow(info)
	})

	switch o.Output {
	case "":
		w := tabwriter.NewWriter(o.out, 0, 8, 1, '\t', 0)
		fmt.Fprintln(w, "TAG\tCATEGORY\tDOMAIN\tCURRENT\tLEGACY\tGENERATIONS\tREPEATABLE\tEXCLUDED")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
				r.Tag, r.Category, lo.Ternary(r.Domain == "", "-", r.Domain),
				lo.Ternary(r.Current == "", "-", r.Current), lo.Ternary(r.Legacy == "", "-", r.Legacy),
				r.Generations, r.Repeatable, r.Excluded)
		}
		return w.Flush()
	case yamlFormat:
		marshalled, err := yaml.Marshal(rows)
		if err != nil {
			return err
		}
		_, err = o.out.Write(marshalled)
		return err
	case jsonFormat:
		marshalled, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(o.out, string(marshalled))
		return err
	default:
		return fmt.Errorf("TagsOptions were not validated: --output=%q should have been rejected", o.Output)
	}
}

func newTagRow(info compat.TagInfo) tagRow {
	row := tagRow{
		Tag:         string(info.ID),
		Category:    info.Category.String(),
		Generations: info.Generations.String(),
		Repeatable:  info.Repeatable,
		Excluded:    info.Excluded,
	}
	if info.Domain != compat.DomainNone {
		row.Domain = info.Domain.String()
	}
	if info.Generations.Has(compat.Current) {
		row.Current = fmt.Sprintf("%#x", uint32(info.Current))
	}
	if info.Generations.Has(compat.LegacyBase) || info.Generations.Has(compat.LegacyExtension) {
		row.Legacy = fmt.Sprintf("%#x", uint32(info.Legacy))
	}
	return row
}
