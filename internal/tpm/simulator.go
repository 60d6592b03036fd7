//go:build amd64 || arm64

package tpm

import (
	"github.com/google/go-tpm-tools/simulator"
	"github.com/sirupsen/logrus"
)

// OpenSimulator starts an in-process TPM simulator. Keys created on it do
// not survive Close.
func OpenSimulator(log logrus.FieldLogger) (*Engine, error) {
	sim, err := simulator.Get()
	if err != nil {
		return nil, err
	}
	return newEngine(sim, log)
}
