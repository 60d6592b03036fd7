package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/flightctl/kmcompat/internal/bridge"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/config"
	"github.com/flightctl/kmcompat/internal/paramfile"
	"github.com/flightctl/kmcompat/internal/tpm"
	"github.com/flightctl/kmcompat/pkg/keymaster"
	kmlog "github.com/flightctl/kmcompat/pkg/log"
	"github.com/flightctl/kmcompat/pkg/reqid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type GenerateOptions struct {
	GlobalOptions

	Filename    string
	Output      string
	Device      string
	Simulator   bool
	Revision    string
	Policy      string
	MetricsFile string

	revision compat.Generation
}

// generatedKey is the output of generate. Current results list one group per
// security level, legacy results keep the two enforcement groups.
type generatedKey struct {
	Generation       string              `yaml:"generation"`
	SecurityLevel    string              `yaml:"securityLevel"`
	KeyBlob          string              `yaml:"keyBlob"`
	Characteristics  []levelDocument     `yaml:"characteristics,omitempty"`
	HardwareEnforced *paramfile.Document `yaml:"hardwareEnforced,omitempty"`
	SoftwareEnforced *paramfile.Document `yaml:"softwareEnforced,omitempty"`
}

type levelDocument struct {
	SecurityLevel      string `yaml:"securityLevel"`
	paramfile.Document `yaml:",inline"`
}

func DefaultGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Filename:      stdio,
		Output:        stdio,
	}
}

func NewCmdGenerate() *cobra.Command {
	o := DefaultGenerateOptions()
	cmd := &cobra.Command{
		Use:   "generate [-f FILENAME]",
		Short: "Generate a TPM-backed key from a parameter document through the compatibility bridge.",
		Long:  `Generate a key on the TPM engine. A legacy document is served through the
legacy adapter, exactly as a legacy client would see the engine. A current
document additionally passes through a legacy device of the configured
revision, so the request and the returned characteristics are lowered and
lifted again.`,
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

func (o *GenerateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Filename, "filename", "f", o.Filename, "Parameter document of the key, '-' for stdin.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Where to write the generated key, '-' for stdout.")
	fs.StringVar(&o.Device, "device", o.Device, "TPM device path. Overrides tpm.devicePath.")
	fs.BoolVar(&o.Simulator, "simulator", o.Simulator, "Use the in-process TPM simulator. Overrides tpm.simulator.")
	fs.StringVar(&o.Revision, "revision", o.Revision, "Legacy revision of the bridge. Overrides bridge.revision.")
	fs.StringVar(&o.Policy, "policy", o.Policy, "What to do with parameters the revision cannot express: abort or drop. Overrides bridge.policy.")
	fs.StringVar(&o.MetricsFile, "metrics-file", o.MetricsFile, "Write bridge metrics in textfile format. Overrides metrics.textfilePath.")
}

func (o *GenerateOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	cfg := o.config
	if o.Device != "" {
		cfg.TPM.DevicePath = o.Device
	}
	if o.Simulator {
		cfg.TPM.Simulator = true
	}
	if o.Revision != "" {
		cfg.Bridge.Revision = o.Revision
	}
	if o.Policy != "" {
		cfg.Bridge.Policy = o.Policy
	}
	if o.MetricsFile != "" {
		cfg.Metrics.TextfilePath = o.MetricsFile
	}
	return nil
}

func (o *GenerateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if err := config.Validate(o.config); err != nil {
		return err
	}
	revision, err := o.config.Bridge.LegacyRevision()
	if err != nil {
		return err
	}
	o.revision = revision
	return nil
}

func (o *GenerateOptions) Run(ctx context.Context, args []string) (err error) {
	log := kmlog.WithReqID(reqid.NextRequestID(), o.log)

	list, err := o.readList(o.Filename)
	if err != nil {
		return err
	}

	engine, err := o.openEngine(log)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, engine.Close())
	}()

	collector := bridge.NewCollector()
	opts, err := o.config.BridgeOptions(log)
	if err != nil {
		return err
	}
	opts = append(opts, bridge.WithMetrics(collector))

	var key *generatedKey
	if list.Generation.IsLegacy() {
		key, err = generateLegacy(ctx, engine, list, opts)
	} else {
		key, err = generateCurrent(ctx, engine, list, o.revision, opts)
	}
	if metricsErr := o.writeMetrics(collector); metricsErr != nil {
		log.Warnf("writing metrics: %v", metricsErr)
	}
	if err != nil {
		return err
	}
	log.Infof("generated %s key on %s engine", key.Generation, key.SecurityLevel)

	out, err := encodeYAML(key)
	if err != nil {
		return err
	}
	return o.writeOutput(o.Output, out)
}

func (o *GenerateOptions) readList(path string) (compat.ParameterList, error) {
	data, err := o.readInput(path)
	if err != nil {
		return compat.ParameterList{}, err
	}
	list, err := paramfile.Unmarshal(data)
	if err != nil {
		return compat.ParameterList{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return list, nil
}

func (o *GenerateOptions) openEngine(log logrus.FieldLogger) (*tpm.Engine, error) {
	if o.config.TPM.Simulator {
		return tpm.OpenSimulator(log)
	}
	return tpm.Open(o.config.TPM.DevicePath, log)
}

func (o *GenerateOptions) writeMetrics(collector *bridge.Collector) error {
	path := o.config.Metrics.TextfilePath
	if path == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, registry)
}

func generateLegacy(ctx context.Context, engine bridge.KeyMintDevice, list compat.ParameterList, opts []bridge.Option) (*generatedKey, error) {
	device, err := bridge.NewLegacyAdapter(engine, list.Generation, opts...)
	if err != nil {
		return nil, err
	}
	info, err := device.GetHardwareInfo(ctx)
	if err != nil {
		return nil, err
	}
	result, err := device.GenerateKey(ctx, list.Legacy)
	if err != nil {
		return nil, err
	}

	key := &generatedKey{
		Generation:    list.Generation.String(),
		SecurityLevel: info.SecurityLevel.String(),
		KeyBlob:       base64.StdEncoding.EncodeToString(result.KeyBlob),
	}
	groups := []struct {
		params []keymaster.KeyParameter
		dst    **paramfile.Document
	}{
		{result.KeyCharacteristics.HardwareEnforced, &key.HardwareEnforced},
		{result.KeyCharacteristics.SoftwareEnforced, &key.SoftwareEnforced},
	}
	for _, g := range groups {
		if len(g.params) == 0 {
			continue
		}
		doc, err := paramfile.Default().ToDocument(compat.LegacyList(list.Generation, g.params...))
		if err != nil {
			return nil, err
		}
		*g.dst = &doc
	}
	return key, nil
}

func generateCurrent(ctx context.Context, engine bridge.KeyMintDevice, list compat.ParameterList, revision compat.Generation, opts []bridge.Option) (*generatedKey, error) {
	legacy, err := bridge.NewLegacyAdapter(engine, revision, opts...)
	if err != nil {
		return nil, err
	}
	device, err := bridge.NewKeyMintAdapter(ctx, legacy, revision, opts...)
	if err != nil {
		return nil, err
	}
	info, err := device.GetHardwareInfo(ctx)
	if err != nil {
		return nil, err
	}
	result, err := device.GenerateKey(ctx, list.Current)
	if err != nil {
		return nil, err
	}

	key := &generatedKey{
		Generation:    compat.Current.String(),
		SecurityLevel: info.SecurityLevel.String(),
		KeyBlob:       base64.StdEncoding.EncodeToString(result.KeyBlob),
	}
	for _, kc := range result.KeyCharacteristics {
		doc, err := paramfile.Default().ToDocument(compat.CurrentList(kc.Authorizations...))
		if err != nil {
			return nil, err
		}
		key.Characteristics = append(key.Characteristics, levelDocument{
			SecurityLevel: kc.SecurityLevel.String(),
			Document:      doc,
		})
	}
	return key, nil
}

func encodeYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
