package reqid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextRequestID(t *testing.T) {
	require := require.New(t)

	first := NextRequestID()
	require.Equal(first, GetReqID())
	require.True(strings.HasPrefix(first, prefix+"-"))

	second := NextRequestID()
	require.NotEqual(first, second)
	require.Equal(second, GetReqID())
}
