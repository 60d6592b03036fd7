package log

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestInitLogsWithLevel(t *testing.T) {
	require := require.New(t)

	var buf bytes.Buffer
	log := InitLogsWithLevel("debug", &buf)
	require.Equal(logrus.DebugLevel, log.GetLevel())

	WithReqID("abc", log).Debug("converted")
	require.Contains(buf.String(), "request_id=abc")

	buf.Reset()
	log = InitLogsWithLevel("chatty", &buf)
	require.Equal(logrus.InfoLevel, log.GetLevel())
	require.Contains(buf.String(), "invalid log level")
}
