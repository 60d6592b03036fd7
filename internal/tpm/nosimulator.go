//go:build !(amd64 || arm64)

package tpm

import (
	"errors"

	"github.com/sirupsen/logrus"
)

func OpenSimulator(log logrus.FieldLogger) (*Engine, error) {
	return nil, errors.New("TPM simulator not supported")
}
