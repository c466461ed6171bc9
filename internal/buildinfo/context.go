// Package buildinfo holds build-time metadata injected through -ldflags.
package buildinfo

import "fmt"

// Set at build time, e.g.
// go build -ldflags "-X github.com/qualitylab/partclass/internal/buildinfo.version=v1.2.0"
var (
	version   string
	buildDate string
)

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	Version   string
	BuildDate string
}

// Current returns the metadata of the running binary.
func Current() *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version, or "unknown" for development builds.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return "unknown"
	}
	return c.Version
}

// GetBuildDate returns the build date, or "unknown" when not injected.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}

// String renders the metadata for the --version flag.
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.GetVersion(), c.GetBuildDate())
}
