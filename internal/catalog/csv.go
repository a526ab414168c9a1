package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// LoadFile builds a catalog from an exported property sheet. The file is
// pipe-delimited with a header row; only the first column (the property
// name) is authoritative. Every name must resolve against the engine's
// effect table — the sheet and the engine versioning together, any drift is
// caught here at startup.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '|'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	c := &Catalog{defs: make(map[string]Definition)}
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}
		def, ok := effectByName[name]
		if !ok {
			return nil, fmt.Errorf("catalog %s line %d: property %q has no engine effect", path, i+1, name)
		}
		if _, dup := c.defs[name]; dup {
			return nil, fmt.Errorf("catalog %s line %d: duplicate property %q", path, i+1, name)
		}
		c.defs[name] = def
	}
	if len(c.defs) == 0 {
		return nil, fmt.Errorf("catalog %s: no properties", path)
	}
	return c, nil
}
