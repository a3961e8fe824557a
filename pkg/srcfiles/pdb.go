package srcfiles

import (
	"fmt"

	"github.com/srclist/srclist/pkg/logflags"
	"github.com/srclist/srclist/pkg/pdb"
)

// parsePDB walks the modules of an open PDB container and collects the
// entries of each module's file-checksum table. PDB file tables carry no
// size or timestamp fields, so only Path and Checksum are ever populated.
func parsePDB(p *pdb.PDB) ([]FileRecord, error) {
	logger := logflags.PDBLogger()

	dbi, err := p.DebugInformation()
	if err != nil {
		return nil, &PDBError{err}
	}
	strtab, err := p.StringTable()
	if err != nil {
		return nil, &PDBError{err}
	}
	logger.Debugf("enumerating %d modules", len(dbi.Modules))

	var files []FileRecord
	for i := range dbi.Modules {
		mod := &dbi.Modules[i]
		mi, err := p.ModuleInfo(mod)
		if err != nil {
			return nil, &PDBError{err}
		}
		if mi == nil {
			continue
		}
		lp, err := mi.LineProgram()
		if err != nil {
			return nil, &PDBError{err}
		}
		for _, file := range lp.Files() {
			name, err := strtab.StringAt(file.NameOffset)
			if err != nil {
				return nil, &PDBError{err}
			}
			sum, err := convertPDBChecksum(file)
			if err != nil {
				return nil, &PDBError{err}
			}
			files = append(files, FileRecord{Path: name, Checksum: sum})
		}
		logger.Debugf("module %q: %d file entries", mod.Name, len(lp.Files()))
	}

	return normalize(files), nil
}

func convertPDBChecksum(file pdb.FileChecksum) (Checksum, error) {
	switch file.Kind {
	case pdb.ChecksumNone:
		return nil, nil
	case pdb.ChecksumMD5:
		if len(file.Sum) != 16 {
			break
		}
		var sum MD5
		copy(sum[:], file.Sum)
		return sum, nil
	case pdb.ChecksumSHA1:
		if len(file.Sum) != 20 {
			break
		}
		var sum SHA1
		copy(sum[:], file.Sum)
		return sum, nil
	case pdb.ChecksumSHA256:
		if len(file.Sum) != 32 {
			break
		}
		var sum SHA256
		copy(sum[:], file.Sum)
		return sum, nil
	default:
		return nil, fmt.Errorf("unknown checksum kind %d", file.Kind)
	}
	return nil, fmt.Errorf("invalid %v checksum length %d", file.Kind, len(file.Sum))
}
