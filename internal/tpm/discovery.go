package tpm

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Paths are relative to the root of the discovery file system.
const (
	devicePathTemplate   = "dev/tpm%s"
	deviceRMPathTemplate = "dev/tpmrm%s"
	versionPathTemplate  = "sys/class/tpm/%s/tpm_version_major"
	sysClassPath         = "sys/class/tpm"
)

// tpmIndexRegex matches explicitly tpm (not tpmrm!) and captures the tpm's index
var tpmIndexRegex = regexp.MustCompile(`^tpm(\d+)$`)

// Device is a TPM character device found under /sys/class/tpm.
type Device struct {
	index           string
	path            string
	resourceMgrPath string
	versionPath     string
	fsys            fs.FS
}

// HostFS is the file system devices are discovered on.
func HostFS() fs.FS {
	return os.DirFS("/")
}

func discoverDevices(fsys fs.FS) ([]Device, error) {
	entries, err := fs.ReadDir(fsys, sysClassPath)
	if err != nil {
		return nil, fmt.Errorf("scanning TPM devices: %w", err)
	}

	var devices []Device
	for _, entry := range entries {
		matches := tpmIndexRegex.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}
		deviceNum := matches[1]

		devices = append(devices, Device{
			index:           deviceNum,
			path:            fmt.Sprintf(devicePathTemplate, deviceNum),
			resourceMgrPath: fmt.Sprintf(deviceRMPathTemplate, deviceNum),
			versionPath:     fmt.Sprintf(versionPathTemplate, entry.Name()),
			fsys:            fsys,
		})
	}

	return devices, nil
}

// ResolveDevice returns the TPM at devicePath if it exists and is version 2.
// Either the raw device or its resource manager may be named.
func ResolveDevice(fsys fs.FS, devicePath string) (*Device, error) {
	devices, err := discoverDevices(fsys)
	if err != nil {
		return nil, fmt.Errorf("discovering TPM devices: %w", err)
	}

	rel := strings.TrimPrefix(path.Clean(devicePath), "/")
	for _, d := range devices {
		if d.path == rel || d.resourceMgrPath == rel {
			if err := d.ValidateVersion2(); err != nil {
				return nil, fmt.Errorf("invalid TPM %q: %w", devicePath, err)
			}
			return &d, nil
		}
	}

	return nil, fmt.Errorf("TPM %q not found", devicePath)
}

// ResolveDefaultDevice finds and returns the first available valid TPM 2.0.
func ResolveDefaultDevice(fsys fs.FS, log logrus.FieldLogger) (*Device, error) {
	devices, err := discoverDevices(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to discover TPMs: %w", err)
	}

	log.Debugf("Found %d TPMs", len(devices))

	for _, d := range devices {
		log.Debugf("Trying TPM %q at %q", d.index, d.Path())
		if !d.Exists() {
			log.Debugf("Device %q does not exist", d.index)
			continue
		}
		if err := d.ValidateVersion2(); err != nil {
			log.Debugf("Device %q validation failed: %v", d.index, err)
			continue
		}
		return &d, nil
	}

	return nil, errors.New("no valid TPM 2.0 devices found")
}

// Path is the absolute path of the device's resource manager.
func (d *Device) Path() string {
	return "/" + d.resourceMgrPath
}

func (d *Device) Exists() bool {
	_, err := fs.Stat(d.fsys, d.resourceMgrPath)
	return err == nil
}

func (d *Device) ValidateVersion2() error {
	if !d.Exists() {
		return fmt.Errorf("no TPM detected at %s", d.Path())
	}
	versionBytes, err := fs.ReadFile(d.fsys, d.versionPath)
	if err != nil {
		return fmt.Errorf("reading tpm version file: %w", err)
	}
	versionStr := string(bytes.TrimSpace(versionBytes))
	if versionStr != "2" {
		return fmt.Errorf("TPM is not version 2.0. Found version: %s", versionStr)
	}
	return nil
}
