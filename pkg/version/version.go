// Package version records the version of srclist.
package version

import (
	"fmt"
	"runtime"
)

// Version represents the current version of srclist.
type Version struct {
	Major    string
	Minor    string
	Patch    string
	Metadata string
	Build    string
}

// SrclistVersion is the current version of srclist.
var SrclistVersion = Version{
	Major: "0", Minor: "1", Patch: "0", Metadata: "",
	Build: "$Id$",
}

func (v Version) String() string {
	fixBuild(&v)
	ver := fmt.Sprintf("Version: %s.%s.%s", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		ver += "-" + v.Metadata
	}
	return fmt.Sprintf("%s\nBuild: %s", ver, v.Build)
}

// BuildInfo returns the Go version srclist was built with.
func BuildInfo() string {
	return runtime.Version()
}

var fixBuild = func(v *Version) {
	// does nothing, added for compatibility with Go versions before 1.18
}
