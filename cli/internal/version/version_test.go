package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, runtime.Version(), info.Go)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestDetails(t *testing.T) {
	info := Info{Commit: "abc123", Go: "go1.24.1", Platform: "linux/amd64"}
	assert.Equal(t, [][2]string{
		{"Commit", "abc123"},
		{"Go Version", "go1.24.1"},
		{"Platform", "linux/amd64"},
		{"Drivers", "none"},
	}, info.Details())

	info.Drivers = []string{"mysql", "sqlite3"}
	assert.Equal(t, [2]string{"Drivers", "mysql, sqlite3"}, info.Details()[3])
}
