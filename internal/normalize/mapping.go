package normalize

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
)

//go:embed mappings/*.yaml
var embeddedMappings embed.FS

// Mapping binds one native field (or dotted path into nested objects) to a canonical slot.
type Mapping struct {
	Native string         `yaml:"native"`
	Slot   constants.Slot `yaml:"slot"`
}

// Table is the declarative mapping for one source. Entries are tried in
// order and the first non-empty value per slot wins.
type Table struct {
	Source   constants.Source `yaml:"source"`
	Mappings []Mapping        `yaml:"mappings"`
}

// ParseTable decodes and checks a YAML mapping table.
func ParseTable(b []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode mapping table: %w", err)
	}
	src, ok := constants.CanonicalizeSource(string(t.Source))
	if !ok {
		return nil, fmt.Errorf("mapping table: unknown source %q", t.Source)
	}
	t.Source = src
	if len(t.Mappings) == 0 {
		return nil, fmt.Errorf("mapping table %s: no mappings", src)
	}
	for i, m := range t.Mappings {
		if strings.TrimSpace(m.Native) == "" {
			return nil, fmt.Errorf("mapping table %s: entry %d has empty native field", src, i)
		}
		if !constants.IsSlot(string(m.Slot)) {
			return nil, fmt.Errorf("mapping table %s: entry %d (%s): unknown slot %q", src, i, m.Native, m.Slot)
		}
	}
	return &t, nil
}

// LoadTables returns the embedded tables, with any *.yaml file in dir
// replacing the table for its source. An empty dir uses the embedded set only.
func LoadTables(dir string) (map[constants.Source]*Table, error) {
	tables := map[constants.Source]*Table{}
	if err := loadFrom(embeddedMappings, "mappings", tables); err != nil {
		return nil, err
	}
	if dir == "" {
		return tables, nil
	}
	st, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("mappings dir %s does not exist", dir)
		}
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("mappings dir %s is not a directory", dir)
	}
	if err := loadFrom(os.DirFS(dir), ".", tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func loadFrom(fsys fs.FS, root string, into map[constants.Source]*Table) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read mappings: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".yaml") {
			continue
		}
		b, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, e.Name())))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}
		t, err := ParseTable(b)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		into[t.Source] = t
	}
	return nil
}

// lookup resolves a native path in rec. Exact keys win over case-insensitive ones.
func lookup(rec map[string]any, path string) (any, bool) {
	if v, ok := rec[path]; ok {
		return v, true
	}
	cur := rec
	parts := strings.Split(path, ".")
	for i, p := range parts {
		v, ok := getFold(cur, p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func getFold(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v, true
		}
	}
	return nil, false
}

// splitPath splits a mapping path into the top-level native key it reads
// from and the remaining dotted path inside that key, if any.
func splitPath(rec map[string]any, path string) (root, rest string) {
	if _, ok := rec[path]; ok {
		return path, ""
	}
	first, rest, _ := strings.Cut(path, ".")
	for k := range rec {
		if strings.EqualFold(strings.TrimSpace(k), first) {
			return k, rest
		}
	}
	return first, rest
}

// keepUnread copies the members of obj that no path in read reaches into
// extra, keyed by their dotted path under prefix.
func keepUnread(extra map[string]any, prefix string, obj map[string]any, read []string) {
	for k, v := range obj {
		whole := false
		var deeper []string
		for _, p := range read {
			first, rest, nested := strings.Cut(p, ".")
			if !strings.EqualFold(strings.TrimSpace(k), first) {
				continue
			}
			if !nested {
				whole = true
				break
			}
			deeper = append(deeper, rest)
		}
		switch {
		case whole:
		case deeper == nil:
			extra[prefix+"."+k] = v
		default:
			if sub, ok := v.(map[string]any); ok {
				keepUnread(extra, prefix+"."+k, sub, deeper)
			}
		}
	}
}
