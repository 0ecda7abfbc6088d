package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)

	t.Run("dev build", func(t *testing.T) {
		i := Info{Version: "dev", CommitHash: "abc", BuildTime: "now"}
		assert.Equal(t, "uniassoc dev (commit abc, built now)", i.String())
		assert.Equal(t, "abc", i.Short())
	})

	t.Run("tagged build", func(t *testing.T) {
		i := Info{Version: "v1.2.0", CommitHash: "0123456789abcdef", BuildTime: "2024-01-01"}
		assert.Equal(t, "uniassoc v1.2.0 (commit 0123456789abcdef, built 2024-01-01)", i.String())
		assert.Equal(t, "0123456", i.Short())
	})
}
