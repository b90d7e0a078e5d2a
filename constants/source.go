package constants

import (
	"strings"
)

type Source string

const (
	SourceDOF       Source = "dof"       // Diario Oficial de la Federación (gazette)
	SourceComprasMX Source = "comprasmx" // federal tender portal
	SourceTianguis  Source = "tianguis"  // state/municipal tender portal
)

var allSources = []Source{
	SourceDOF,
	SourceComprasMX,
	SourceTianguis,
}

func Sources() []Source {
	out := make([]Source, len(allSources))
	copy(out, allSources)
	return out
}

// CanonicalizeSource maps a free-form source label (file prefix, CLI flag) to a known Source.
func CanonicalizeSource(input string) (Source, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Source{
		"diario oficial":   SourceDOF,
		"gazette":          SourceDOF,
		"compranet":        SourceComprasMX,
		"compras_mx":       SourceComprasMX,
		"compras-mx":       SourceComprasMX,
		"tianguis_digital": SourceTianguis,
		"tianguisdigital":  SourceTianguis,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}
	for _, s := range allSources {
		if normalized == string(s) {
			return s, true
		}
	}
	return "", false
}

// IsPortal reports whether records from the source arrive as native key/value records.
func (s Source) IsPortal() bool {
	return s == SourceComprasMX || s == SourceTianguis
}

// Edition is the gazette edition tag.
type Edition string

const (
	EditionMatutina   Edition = "matutina"
	EditionVespertina Edition = "vespertina"
)

var allEditions = []Edition{EditionMatutina, EditionVespertina}

func Editions() []Edition {
	out := make([]Edition, len(allEditions))
	copy(out, allEditions)
	return out
}

func CanonicalizeEdition(input string) (Edition, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "matutina", "mat", "morning", "am":
		return EditionMatutina, true
	case "vespertina", "ves", "evening", "pm":
		return EditionVespertina, true
	}
	return "", false
}
