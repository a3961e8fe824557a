//go:build !windows
// +build !windows

package cmds

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// getColorableWriter returns a writer that handles ANSI escape codes, or nil
// if stdout does not support them.
func getColorableWriter() io.Writer {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	if strings.ToLower(os.Getenv("TERM")) == "dumb" {
		return nil
	}
	return os.Stdout
}
