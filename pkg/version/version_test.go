package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	require := require.New(t)

	info := Get()
	require.Equal(runtime.Version(), info.GoVersion)
	require.Equal(runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	require.Equal(gitVersion, info.String())

	info.GitCommit = "abc123"
	require.Equal(gitVersion+" (abc123)", info.String())
}
