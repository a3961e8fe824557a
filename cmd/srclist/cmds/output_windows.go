//go:build windows
// +build windows

package cmds

import (
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// getColorableWriter returns a writer that handles ANSI escape codes, or nil
// if stdout does not support them.
func getColorableWriter() io.Writer {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	if strings.ToLower(os.Getenv("ConEmuANSI")) == "on" {
		// The ConEmu terminal understands ANSI natively.
		return os.Stdout
	}

	const enableVirtualTerminalProcessing = 0x0004

	h, err := syscall.GetStdHandle(syscall.STD_OUTPUT_HANDLE)
	if err != nil {
		return nil
	}
	var m uint32
	if err := syscall.GetConsoleMode(h, &m); err != nil {
		return nil
	}
	if m&enableVirtualTerminalProcessing != 0 {
		return os.Stdout
	}
	return colorable.NewColorableStdout()
}
