package tpm

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ccoveille/go-safecast"
	"github.com/flightctl/kmcompat/internal/compat"
	"github.com/flightctl/kmcompat/internal/paramfile"
	"github.com/flightctl/kmcompat/pkg/keymint"
	"github.com/google/go-tpm/tpm2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const keyBlobVersion = 1

var (
	ErrInvalidKeyBlob = errors.New("invalid key blob")
	// ErrInvalidApplication means APPLICATION_ID or APPLICATION_DATA did not
	// match the values the key was bound to.
	ErrInvalidApplication = errors.New("application binding mismatch")
)

// keyBlob is the opaque key handed back to clients. The private area is
// wrapped by the storage root key; the authorizations are recorded so the
// key's characteristics can be reported without the original request, and
// are bound to the key through its authPolicy.
type keyBlob struct {
	Version     int                `yaml:"version"`
	ID          string             `yaml:"id"`
	PublicBlob  string             `yaml:"public_blob"`
	PrivateBlob string             `yaml:"private_blob"`
	AppID       string             `yaml:"app_id,omitempty"`
	AppData     string             `yaml:"app_data,omitempty"`
	Hardware    paramfile.Document `yaml:"hardware"`
	Keystore    paramfile.Document `yaml:"keystore"`
}

// newKeyBlob records the application binding and authorizations of a key.
// The wrapped key areas are attached with SetKey once the TPM has created
// the key under the policy returned by Binding.
func newKeyBlob(appID, appData []byte, hardware, keystore []keymint.KeyParameter) (*keyBlob, error) {
	codec := paramfile.Default()
	hw, err := codec.ToDocument(compat.CurrentList(hardware...))
	if err != nil {
		return nil, fmt.Errorf("encoding hardware authorizations: %w", err)
	}
	ks, err := codec.ToDocument(compat.CurrentList(keystore...))
	if err != nil {
		return nil, fmt.Errorf("encoding keystore authorizations: %w", err)
	}
	return &keyBlob{
		Version:  keyBlobVersion,
		ID:       uuid.NewString(),
		AppID:    bindingDigest(appID),
		AppData:  bindingDigest(appData),
		Hardware: hw,
		Keystore: ks,
	}, nil
}

func (k *keyBlob) SetKey(public tpm2.TPM2BPublic, private tpm2.TPM2BPrivate) {
	k.PublicBlob = base64.StdEncoding.EncodeToString(tpm2.Marshal(public))
	k.PrivateBlob = base64.StdEncoding.EncodeToString(tpm2.Marshal(private))
}

func parseKeyBlob(data []byte) (*keyBlob, error) {
	var k keyBlob
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyBlob, err)
	}
	if k.Version != keyBlobVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidKeyBlob, k.Version)
	}
	return &k, nil
}

func (k *keyBlob) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("marshaling key blob: %w", err)
	}
	return data, nil
}

func (k *keyBlob) Public() (*tpm2.TPM2BPublic, error) {
	if k.PublicBlob == "" {
		return nil, fmt.Errorf("%w: public blob is empty", ErrInvalidKeyBlob)
	}
	data, err := base64.StdEncoding.DecodeString(k.PublicBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode public blob: %v", ErrInvalidKeyBlob, err)
	}
	public, err := tpm2.Unmarshal[tpm2.TPM2BPublic](data)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal public blob as TPM2BPublic: %v", ErrInvalidKeyBlob, err)
	}
	return public, nil
}

func (k *keyBlob) Private() (*tpm2.TPM2BPrivate, error) {
	if k.PrivateBlob == "" {
		return nil, fmt.Errorf("%w: private blob is empty", ErrInvalidKeyBlob)
	}
	data, err := base64.StdEncoding.DecodeString(k.PrivateBlob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode private blob: %v", ErrInvalidKeyBlob, err)
	}
	private, err := tpm2.Unmarshal[tpm2.TPM2BPrivate](data)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal private blob as TPM2BPrivate: %v", ErrInvalidKeyBlob, err)
	}
	return private, nil
}

// Authorizations decodes the recorded hardware and keystore authorizations.
func (k *keyBlob) Authorizations() (hardware, keystore []keymint.KeyParameter, err error) {
	codec := paramfile.Default()
	hw, err := codec.FromDocument(k.Hardware)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: hardware authorizations: %v", ErrInvalidKeyBlob, err)
	}
	ks, err := codec.FromDocument(k.Keystore)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: keystore authorizations: %v", ErrInvalidKeyBlob, err)
	}
	return hw.Current, ks.Current, nil
}

// CheckApplication verifies the application binding of the key.
func (k *keyBlob) CheckApplication(appID, appData []byte) error {
	if !bindingMatches(k.AppID, appID) || !bindingMatches(k.AppData, appData) {
		return ErrInvalidApplication
	}
	return nil
}

// Binding is the SHA-256 digest of the application binding and the recorded
// authorizations. It is the authPolicy of the key's public area, so once the
// TPM has loaded the key any edit to those fields shows up as a mismatch.
func (k *keyBlob) Binding() ([]byte, error) {
	hardware, keystore, err := k.Authorizations()
	if err != nil {
		return nil, err
	}
	hw, err := paramfile.Marshal(compat.CurrentList(hardware...))
	if err != nil {
		return nil, fmt.Errorf("%w: hardware authorizations: %v", ErrInvalidKeyBlob, err)
	}
	ks, err := paramfile.Marshal(compat.CurrentList(keystore...))
	if err != nil {
		return nil, fmt.Errorf("%w: keystore authorizations: %v", ErrInvalidKeyBlob, err)
	}

	h := sha256.New()
	for _, part := range [][]byte{[]byte(k.AppID), []byte(k.AppData), hw, ks} {
		n, err := safecast.ToUint32(len(part))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKeyBlob, err)
		}
		h.Write(binary.BigEndian.AppendUint32(nil, n))
		h.Write(part)
	}
	return h.Sum(nil), nil
}

// CheckBinding compares Binding with the authPolicy of the public area. The
// blob must have been loaded by the TPM first.
func (k *keyBlob) CheckBinding() error {
	public, err := k.Public()
	if err != nil {
		return err
	}
	contents, err := public.Contents()
	if err != nil {
		return fmt.Errorf("%w: public area: %v", ErrInvalidKeyBlob, err)
	}
	want, err := k.Binding()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(contents.AuthPolicy.Buffer, want) != 1 {
		return fmt.Errorf("%w: authorizations do not match the key", ErrInvalidKeyBlob)
	}
	return nil
}

func bindingDigest(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func bindingMatches(recorded string, b []byte) bool {
	return subtle.ConstantTimeCompare([]byte(recorded), []byte(bindingDigest(b))) == 1
}
