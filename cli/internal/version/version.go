package version

import (
	"database/sql"
	"runtime"
	"strings"
)

// Set at build time with -ldflags "-X .../version.Version=..."
var (
	Version = "0.1.0"
	Commit  = "unknown"
)

// Info describes the running binary
type Info struct {
	Version  string
	Commit   string
	Go       string
	Platform string
	// Drivers lists the database/sql drivers linked into the binary
	Drivers []string
}

// Get returns the version information of the running binary
func Get() Info {
	return Info{
		Version:  Version,
		Commit:   Commit,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Drivers:  sql.Drivers(),
	}
}

// Details returns the information as label/value pairs
func (i Info) Details() [][2]string {
	drivers := "none"
	if len(i.Drivers) > 0 {
		drivers = strings.Join(i.Drivers, ", ")
	}
	return [][2]string{
		{"Commit", i.Commit},
		{"Go Version", i.Go},
		{"Platform", i.Platform},
		{"Drivers", drivers},
	}
}
