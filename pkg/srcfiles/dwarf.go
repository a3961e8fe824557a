package srcfiles

import (
	"bytes"
	"debug/dwarf"
	"fmt"
	"strings"

	"github.com/srclist/srclist/pkg/dwarf/line"
	"github.com/srclist/srclist/pkg/logflags"
	"github.com/srclist/srclist/pkg/objfile"
)

// parseDWARF walks the compile units of a container with embedded DWARF
// sections and collects the file-name table of each unit's line-number
// program. The caller has already confirmed debug symbols are present.
func parseDWARF(f *objfile.File) ([]FileRecord, error) {
	dw, err := f.DWARF()
	if err != nil {
		return nil, &DWARFError{err}
	}
	debugLine, err := f.DebugSection("line")
	if err != nil {
		return nil, &DWARFError{err}
	}
	debugLineStr, err := f.DebugSection("line_str")
	if err != nil {
		return nil, &DWARFError{err}
	}
	debugStr, err := f.DebugSection("str")
	if err != nil {
		return nil, &DWARFError{err}
	}

	var logfn func(string, ...interface{})
	if logflags.DebugLine() {
		logfn = logflags.DebugLineLogger().Debugf
	}

	var files []FileRecord
	rdr := dw.Reader()
	for {
		entry, err := rdr.Next()
		if err != nil {
			return nil, &DWARFError{err}
		}
		if entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			rdr.SkipChildren()
			continue
		}
		compdir, _ := entry.Val(dwarf.AttrCompDir).(string)
		stmtList, hasLineProgram := entry.Val(dwarf.AttrStmtList).(int64)
		rdr.SkipChildren()
		if !hasLineProgram {
			continue
		}
		if stmtList < 0 || stmtList >= int64(len(debugLine)) {
			return nil, &DWARFError{fmt.Errorf("DW_AT_stmt_list %#x out of .debug_line bounds", stmtList)}
		}

		lineInfo, err := line.Parse(compdir, bytes.NewBuffer(debugLine[stmtList:]), debugLineStr, debugStr, logfn, f.ByteOrder)
		if err != nil {
			return nil, &DWARFError{err}
		}

		for _, fe := range lineInfo.FileNames {
			// compiler-synthesized pseudo-files such as "<built-in>"
			if strings.HasPrefix(fe.Name, "<") {
				continue
			}
			rec := FileRecord{Path: fe.Path}
			if lineInfo.HasMTime {
				// 0 is a reserved sentinel meaning not recorded
				rec.Timestamp = fe.LastModTime
			}
			if lineInfo.HasLength {
				rec.Size = fe.Length
			}
			if lineInfo.HasMD5 {
				rec.Checksum = MD5(fe.MD5)
			}
			files = append(files, rec)
		}
	}

	return normalize(files), nil
}
