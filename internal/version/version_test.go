package version_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ludo-technologies/pyrefminer/internal/version"
)

func TestShort(t *testing.T) {
	assert.NotEmpty(t, version.Short())
}

func TestInfo(t *testing.T) {
	info := version.Info()

	assert.True(t, strings.HasPrefix(info, "pyrefminer "))
	assert.Contains(t, info, runtime.Version())
	assert.Contains(t, info, runtime.GOOS+"/"+runtime.GOARCH)
	assert.Contains(t, info, "Commit: ")
}

func TestGet_LdflagsWin(t *testing.T) {
	saved := version.Version
	t.Cleanup(func() { version.Version = saved })

	version.Version = "v1.2.3"
	assert.Equal(t, "v1.2.3", version.Get().Version)
	assert.Equal(t, "v1.2.3", version.Short())
}
