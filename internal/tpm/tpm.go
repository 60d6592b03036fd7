package tpm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/go-tpm/tpm2/transport"
	"github.com/google/go-tpm/tpmutil"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	TpmSystemPath = "/dev/tpmrm0"

	// engineVersion is reported as the KeyMint version of the engine.
	engineVersion = 100
	engineName    = "kmcompat TPM engine"
)

var ErrIncompatiblePurpose = errors.New("incompatible purpose")

// hardwareEnforced lists the tags the TPM enforces through the key's public
// area. Everything else is reported at the keystore level.
var hardwareEnforced = []keymint.Tag{
	keymint.TagAlgorithm,
	keymint.TagKeySize,
	keymint.TagEcCurve,
	keymint.TagRsaPublicExponent,
	keymint.TagPurpose,
	keymint.TagDigest,
	keymint.TagPadding,
	keymint.TagNoAuthRequired,
}

// hidden tags are consumed at creation and never reported as characteristics.
var hidden = []keymint.Tag{
	keymint.TagApplicationID,
	keymint.TagApplicationData,
	keymint.TagAttestationChallenge,
	keymint.TagAttestationApplicationID,
	keymint.TagNonce,
	keymint.TagAssociatedData,
	keymint.TagMacLength,
	keymint.TagResetSinceIDRotation,
	keymint.TagUniqueID,
	keymint.TagConfirmationToken,
	keymint.TagCertificateSerial,
	keymint.TagCertificateSubject,
	keymint.TagCertificateNotBefore,
	keymint.TagCertificateNotAfter,
}

// Engine is a current-schema key engine backed by a TPM 2.0. Keys are
// created as children of an ECC storage root key in the owner hierarchy and
// handed out as wrapped blobs.
type Engine struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	tpm    transport.TPM
	srk    *tpm2.NamedHandle
	log    logrus.FieldLogger
	nextOp uint64
	now    func() time.Time
}

// Open connects to the TPM at devicePath, or to the first TPM 2.0 found on
// the host when devicePath is empty.
func Open(devicePath string, log logrus.FieldLogger) (*Engine, error) {
	var (
		device *Device
		err    error
	)
	if devicePath == "" {
		device, err = ResolveDefaultDevice(HostFS(), log)
	} else {
		device, err = ResolveDevice(HostFS(), devicePath)
	}
	if err != nil {
		return nil, err
	}
	conn, err := tpmutil.OpenTPM(device.Path())
	if err != nil {
		return nil, fmt.Errorf("opening TPM %s: %w", device.Path(), err)
	}
	log.Debugf("opened TPM %s", device.Path())
	return newEngine(conn, log)
}

func newEngine(conn io.ReadWriteCloser, log logrus.FieldLogger) (*Engine, error) {
	e := &Engine{
		conn: conn,
		tpm:  transport.FromReadWriter(conn),
		log:  log,
		now:  time.Now,
	}
	if err := e.generateSRKPrimary(); err != nil {
		conn.Close()
		return nil, err
	}
	return e, nil
}

// generateSRKPrimary (re-)creates an ECC Primary Storage Root Key in the Owner/Storage Hierarchy.
// This key is deterministically generated from the Storage Primary Seed + input parameters.
func (e *Engine) generateSRKPrimary() error {
	createPrimaryCmd := tpm2.CreatePrimary{
		PrimaryHandle: tpm2.AuthHandle{
			Handle: tpm2.TPMRHOwner,
			Auth:   tpm2.PasswordAuth(nil),
		},
		InPublic: tpm2.New2B(tpm2.ECCSRKTemplate),
	}
	createPrimaryRsp, err := createPrimaryCmd.Execute(e.tpm)
	if err != nil {
		return fmt.Errorf("creating SRK primary: %w", err)
	}
	e.srk = &tpm2.NamedHandle{
		Handle: createPrimaryRsp.ObjectHandle,
		Name:   createPrimaryRsp.Name,
	}
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.srk != nil {
		if err := e.flush(e.srk.Handle); err != nil {
			errs = append(errs, err)
		}
		e.srk = nil
	}
	if err := e.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing TPM connection: %w", err))
	}
	return errors.Join(errs...)
}

func (e *Engine) GetHardwareInfo(ctx context.Context) (keymint.HardwareInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	manufacturer, err := e.manufacturer()
	if err != nil {
		return keymint.HardwareInfo{}, err
	}
	return keymint.HardwareInfo{
		VersionNumber:     engineVersion,
		SecurityLevel:     keymint.SecurityLevelTrustedEnvironment,
		KeyMintName:       engineName,
		KeyMintAuthorName: manufacturer,
	}, nil
}

// manufacturer reads TPM_PT_MANUFACTURER, four ASCII characters packed into
// a uint32.
func (e *Engine) manufacturer() (string, error) {
	getCapCmd := tpm2.GetCapability{
		Capability:    tpm2.TPMCapTPMProperties,
		Property:      uint32(tpm2.TPMPTManufacturer),
		PropertyCount: 1,
	}
	rsp, err := getCapCmd.Execute(e.tpm)
	if err != nil {
		return "", fmt.Errorf("getting TPM capabilities: %w", err)
	}
	data, err := rsp.CapabilityData.Data.TPMProperties()
	if err != nil {
		return "", fmt.Errorf("parsing properties: %w", err)
	}
	for _, prop := range data.TPMProperty {
		if prop.Property == tpm2.TPMPTManufacturer {
			v := prop.Value
			id := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
			return strings.TrimRight(string(id), "\x00 "), nil
		}
	}
	return "", fmt.Errorf("no manufacturer property found")
}

func (e *Engine) GenerateKey(ctx context.Context, params []keymint.KeyParameter) (keymint.KeyCreationResult, error) {
	template, err := KeyTemplate(params)
	if err != nil {
		return keymint.KeyCreationResult{}, err
	}

	hardware, keystore := e.authorizations(params)
	blob, err := newKeyBlob(
		blobValue(params, keymint.TagApplicationID),
		blobValue(params, keymint.TagApplicationData),
		hardware, keystore,
	)
	if err != nil {
		return keymint.KeyCreationResult{}, err
	}
	binding, err := blob.Binding()
	if err != nil {
		return keymint.KeyCreationResult{}, err
	}
	template.AuthPolicy = tpm2.TPM2BDigest{Buffer: binding}

	e.mu.Lock()
	defer e.mu.Unlock()

	createCmd := tpm2.Create{
		ParentHandle: *e.srk,
		InPublic:     tpm2.New2B(template),
	}
	createRsp, err := createCmd.Execute(e.tpm)
	if err != nil {
		return keymint.KeyCreationResult{}, fmt.Errorf("creating key: %w", err)
	}
	blob.SetKey(createRsp.OutPublic, createRsp.OutPrivate)
	data, err := blob.Marshal()
	if err != nil {
		return keymint.KeyCreationResult{}, err
	}

	e.log.Debugf("created key %s with %d hardware and %d keystore authorizations", blob.ID, len(hardware), len(keystore))
	return keymint.KeyCreationResult{
		KeyBlob:            data,
		KeyCharacteristics: characteristics(hardware, keystore),
	}, nil
}

func (e *Engine) GetKeyCharacteristics(ctx context.Context, keyBlob, appID, appData []byte) ([]keymint.KeyCharacteristics, error) {
	blob, err := parseKeyBlob(keyBlob)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.verify(blob); err != nil {
		return nil, err
	}
	if err := blob.CheckApplication(appID, appData); err != nil {
		return nil, err
	}
	hardware, keystore, err := blob.Authorizations()
	if err != nil {
		return nil, err
	}
	return characteristics(hardware, keystore), nil
}

// Begin checks the key may be used for purpose and returns a fresh
// operation handle. Operation parameters are not echoed back.
func (e *Engine) Begin(ctx context.Context, purpose keymint.KeyPurpose, keyBlob []byte, params []keymint.KeyParameter) (uint64, []keymint.KeyParameter, error) {
	blob, err := parseKeyBlob(keyBlob)
	if err != nil {
		return 0, nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.verify(blob); err != nil {
		return 0, nil, err
	}
	appID := blobValue(params, keymint.TagApplicationID)
	appData := blobValue(params, keymint.TagApplicationData)
	if err := blob.CheckApplication(appID, appData); err != nil {
		return 0, nil, err
	}
	hardware, _, err := blob.Authorizations()
	if err != nil {
		return 0, nil, err
	}
	if !slices.Contains(keymint.FindAll(hardware, keymint.TagPurpose), keymint.KeyParameterValue(purpose)) {
		return 0, nil, fmt.Errorf("%w: key does not allow %s", ErrIncompatiblePurpose, purpose)
	}
	e.nextOp++
	return e.nextOp, []keymint.KeyParameter{}, nil
}

// authorizations splits a creation request into hardware and keystore
// enforced lists, adding the origin and creation time.
func (e *Engine) authorizations(params []keymint.KeyParameter) (hardware, keystore []keymint.KeyParameter) {
	reported := lo.Reject(params, func(p keymint.KeyParameter, _ int) bool {
		return slices.Contains(hidden, p.Tag)
	})
	enforced := func(p keymint.KeyParameter, _ int) bool {
		return slices.Contains(hardwareEnforced, p.Tag)
	}
	hardware = lo.Filter(reported, enforced)
	keystore = lo.Reject(reported, enforced)
	hardware = append(hardware, keymint.NewKeyParameter(keymint.TagOrigin, keymint.KeyOriginGenerated))
	if _, ok := keymint.Find(keystore, keymint.TagCreationDatetime); !ok {
		keystore = append(keystore, keymint.NewKeyParameter(keymint.TagCreationDatetime, keymint.DateTime(e.now().UnixMilli())))
	}
	return hardware, keystore
}

func characteristics(hardware, keystore []keymint.KeyParameter) []keymint.KeyCharacteristics {
	return []keymint.KeyCharacteristics{
		{SecurityLevel: keymint.SecurityLevelTrustedEnvironment, Authorizations: hardware},
		{SecurityLevel: keymint.SecurityLevelKeystore, Authorizations: keystore},
	}
}

// load loads a key blob under the storage root key.
func (e *Engine) load(blob *keyBlob) (*tpm2.NamedHandle, error) {
	public, err := blob.Public()
	if err != nil {
		return nil, err
	}
	private, err := blob.Private()
	if err != nil {
		return nil, err
	}
	loadCmd := tpm2.Load{
		ParentHandle: *e.srk,
		InPrivate:    *private,
		InPublic:     *public,
	}
	loadRsp, err := loadCmd.Execute(e.tpm)
	if err != nil {
		return nil, fmt.Errorf("%w: loading key: %v", ErrInvalidKeyBlob, err)
	}
	return &tpm2.NamedHandle{
		Handle: loadRsp.ObjectHandle,
		Name:   loadRsp.Name,
	}, nil
}

// verify loads the blob under the storage root key, which proves this TPM
// wrapped it and that the public area is intact, then checks the recorded
// authorizations against the public area.
func (e *Engine) verify(blob *keyBlob) error {
	handle, err := e.load(blob)
	if err != nil {
		return err
	}
	if err := e.flush(handle.Handle); err != nil {
		return err
	}
	return blob.CheckBinding()
}

func (e *Engine) flush(handle tpm2.TPMHandle) error {
	flushCmd := tpm2.FlushContext{
		FlushHandle: handle,
	}
	if _, err := flushCmd.Execute(e.tpm); err != nil {
		return fmt.Errorf("flushing context for handle 0x%x: %w", handle, err)
	}
	return nil
}

func blobValue(params []keymint.KeyParameter, tag keymint.Tag) []byte {
	p, ok := keymint.Find(params, tag)
	if !ok {
		return nil
	}
	b, _ := p.Value.(keymint.Blob)
	return b
}
