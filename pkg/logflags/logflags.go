// Package logflags configures the per-layer debug logging of srclist.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var pdbFlag = false
var objfileFlag = false
var debugLine = false

var logOut io.WriteCloser

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.PanicLevel
	}
	if logOut != nil {
		logger.Logger.Out = logOut
	}
	return logger
}

// PDB returns true if the PDB container reader should log its walk.
func PDB() bool {
	return pdbFlag
}

// PDBLogger returns a logger for the PDB container reader.
func PDBLogger() *logrus.Entry {
	return makeLogger(pdbFlag, logrus.Fields{"layer": "pdb"})
}

// Objfile returns true if object-container parsing should be logged.
func Objfile() bool {
	return objfileFlag
}

// ObjfileLogger returns a logger for object-container parsing.
func ObjfileLogger() *logrus.Entry {
	return makeLogger(objfileFlag, logrus.Fields{"layer": "objfile"})
}

// DebugLine returns true if the line-table parser should log its
// recoverable errors.
func DebugLine() bool {
	return debugLine
}

// DebugLineLogger returns a logger for the line-table parser.
func DebugLineLogger() *logrus.Entry {
	return makeLogger(debugLine, logrus.Fields{"layer": "line"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the logging layers based on the contents of logstr, and
// redirects output to logDest if non-empty. LogDest is either a file
// descriptor number or a file path.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "srclist-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	if !logFlag {
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "pdb,objfile"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "pdb":
			pdbFlag = true
		case "objfile":
			objfileFlag = true
		case "line":
			debugLine = true
		default:
			return fmt.Errorf("unknown log layer %q", logcmd)
		}
	}
	return nil
}

// Close closes the logger output redirection, if one was set up.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}
