package compileinfo

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// CompileInfo identifies the build of a dicomview binary.
type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.Package == "" {
		return "No build information is embedded in this binary."
	}

	commit := c.Commit
	if commit == "" {
		commit = "(unknown)"
	}

	mod := ""
	if c.Modified {
		mod = " (modified)"
	}

	return fmt.Sprintf("%s built with %s at commit %s%s %s", c.Package, c.GoVersion, commit, mod, c.CommitTime)
}

// MarshalZerologObject lets the build be attached to a log event with
// Object("build", compileinfo.Get()).
func (c CompileInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Str("package", c.Package).
		Str("go_version", c.GoVersion).
		Str("commit", c.Commit).
		Str("commit_time", c.CommitTime).
		Bool("modified", c.Modified)
}

func Get() CompileInfo {
	z, ok := debug.ReadBuildInfo()
	if !ok {
		return CompileInfo{}
	}

	return fromBuildInfo(z)
}

func fromBuildInfo(z *debug.BuildInfo) CompileInfo {
	out := CompileInfo{
		GoVersion: z.GoVersion,
		Package:   z.Path,
	}

	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
