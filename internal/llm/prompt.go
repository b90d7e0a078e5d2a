package llm

import (
	"strings"
)

// field hints shown to the model; unknown fields are listed without a hint
var fieldHints = map[string]string{
	"numero_procedimiento":     "procedure / tender number exactly as printed (e.g. LA-012M7B997-E15-2025)",
	"titulo":                   "short subject of the tender",
	"descripcion":              "one or two sentences describing what is being procured",
	"entidad_compradora":       "buying agency or entity",
	"unidad_compradora":        "buying unit or area inside the entity",
	"tipo_procedimiento":       "licitación pública, invitación a cuando menos tres personas, adjudicación directa",
	"tipo_contratacion":        "adquisiciones, arrendamientos, servicios, obra pública",
	"caracter":                 "nacional, internacional or internacional bajo tratados",
	"estatus":                  "status if stated (vigente, cancelada, desierta)",
	"fecha_publicacion":        "publication date",
	"fecha_junta_aclaraciones": "clarification meeting date",
	"fecha_visita":             "site visit date",
	"fecha_apertura":           "proposal opening date",
	"fecha_fallo":              "award (fallo) date",
	"monto_estimado":           "estimated amount as printed",
	"moneda":                   "currency",
	"proveedor_adjudicado":     "awarded supplier, if any",
	"entidad_federativa":       "state (entidad federativa)",
	"municipio":                "municipality",
}

// BuildSystemPrompt composes the system message with the field list and
// strict formatting rules.
func BuildSystemPrompt(req NoticeRequest) string {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "es"
	}

	var fields strings.Builder
	for _, f := range req.Fields {
		fields.WriteString("- ")
		fields.WriteString(f)
		if h, ok := fieldHints[f]; ok {
			fields.WriteString(": ")
			fields.WriteString(h)
		}
		fields.WriteString("\n")
	}

	parts := []string{
		"You extract fields from Mexican public procurement notices. Return ONLY a JSON object that matches the provided JSON Schema.",
		"The notice is written in language '" + lang + "'. Copy values as they appear; do not translate.",
		"Every key in the schema must be present. Use null when the notice does not state a value. Never invent values.",
		"Dates: copy the date as printed; do not convert time zones.",
		"Fields:\n" + fields.String(),
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the notice text with its origin hints.
func BuildUserPrompt(req NoticeRequest) string {
	var b strings.Builder
	if s := strings.TrimSpace(req.Source); s != "" {
		b.WriteString("Source: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if r := strings.TrimSpace(req.RefTag); r != "" {
		b.WriteString("Reference: ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	b.WriteString("\nNotice text:\n")
	b.WriteString(strings.TrimSpace(req.Text))
	return b.String()
}

// TruncateRunes cuts s to at most max runes. It reports whether it cut.
func TruncateRunes(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
