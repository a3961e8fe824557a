// Package fileindex builds a prefix-searchable index over extracted
// source-file records.
package fileindex

import (
	"sort"

	"github.com/derekparker/trie"

	"github.com/srclist/srclist/pkg/srcfiles"
)

// Index answers prefix queries over a set of file records.
type Index struct {
	t       *trie.Trie
	records []srcfiles.FileRecord
}

// New indexes records by path. The records slice is retained, not copied.
func New(records []srcfiles.FileRecord) *Index {
	ix := &Index{t: trie.New(), records: records}
	for i := range records {
		p := records[i].Path
		if node, ok := ix.t.Find(p); ok {
			ix.t.Add(p, append(node.Meta().([]int), i))
			continue
		}
		ix.t.Add(p, []int{i})
	}
	return ix
}

// All returns every indexed record.
func (ix *Index) All() []srcfiles.FileRecord {
	return ix.records
}

// Under returns the records whose path starts with prefix, sorted by path.
// Records sharing a path keep their relative order.
func (ix *Index) Under(prefix string) []srcfiles.FileRecord {
	keys := ix.t.PrefixSearch(prefix)
	sort.Strings(keys)

	var out []srcfiles.FileRecord
	for _, key := range keys {
		node, ok := ix.t.Find(key)
		if !ok {
			continue
		}
		for _, i := range node.Meta().([]int) {
			out = append(out, ix.records[i])
		}
	}
	return out
}
