package extract

import (
	"regexp"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
)

// Rules maps a candidate field to its ordered strategy chain.
type Rules map[string][]Strategy

var (
	// CompraNet / ComprasMX procedure code, e.g. LA-012M7B997-E15-2025
	reProcedureCode = regexp.MustCompile(`\b(?:L[APOS]|I[APO]|A[APO])-[0-9A-Z]{9,11}-[EINT]\d{1,3}-\d{4}\b`)
	reProcedureNo   = regexp.MustCompile(`(?i)(?:licitaci[oó]n|procedimiento|concurso|invitaci[oó]n)[^\n]{0,80}?\b(?:n[uú]mero|n[uú]m\.|no\.)\s*:?\s*([A-Z0-9][A-Z0-9\-/.]{4,})`)

	reTitle       = regexp.MustCompile(`(?im)^\s*(?:objeto\s+de\s+la\s+(?:licitaci[oó]n|invitaci[oó]n|contrataci[oó]n)|descripci[oó]n\s+de\s+la\s+licitaci[oó]n|objeto)\s*:\s*(.+)$`)
	reDescription = regexp.MustCompile(`(?im)^\s*(?:volumen\s+a\s+(?:adquirir|contratar)|descripci[oó]n\s+general|descripci[oó]n\s+de\s+los\s+(?:bienes|servicios|trabajos)|alcance)\s*:\s*(.+)$`)
	reBuyingUnit  = regexp.MustCompile(`(?im)^\s*(?:unidad\s+compradora|[aá]rea\s+(?:contratante|requirente)|convocante)\s*:\s*(.+)$`)

	rePublished     = regexp.MustCompile(`(?im)fecha\s+de\s+publicaci[oó]n[^:\n]*:\s*(.+)$`)
	reSignOffDate   = regexp.MustCompile(`(?i),\s*a\s+(\d{1,2}\s+de\s+[a-záéíóúñ]+\s+del?\s+\d{4})`)
	reClarification = regexp.MustCompile(`(?im)junta\s+(?:p[uú]blica\s+)?de\s+aclaraciones[^:\n]*:\s*(.+)$`)
	reVisit         = regexp.MustCompile(`(?im)visita\s+(?:a\s+)?(?:las\s+|los\s+|el\s+)?(?:instalaciones|sitio|lugar|trabajos)[^:\n]*:\s*(.+)$`)
	reOpening       = regexp.MustCompile(`(?im)(?:presentaci[oó]n\s+y\s+)?apertura\s+de\s+(?:las\s+)?(?:proposiciones|propuestas)[^:\n]*:\s*(.+)$`)
	reAward         = regexp.MustCompile(`(?im)^\s*(?:(?:emisi[oó]n|comunicaci[oó]n|notificaci[oó]n|acto)\s+(?:de\s+|del\s+)?)?fallo[^:\n]*:\s*(.+)$`)

	reAmount   = regexp.MustCompile(`(?i)(?:monto|importe|presupuesto)(?:\s+(?:total|m[aá]ximo|m[ií]nimo|base|estimado|autorizado|asignado))*[^:\n$]{0,40}:?\s*(\$\s*\d[\d.,]*)`)
	reSupplier = regexp.MustCompile(`(?im)(?:proveedor|licitante|empresa|persona)\s+(?:adjudicad[oa]|ganador[a]?)\s*:\s*(.+)$`)

	reStateLabel  = regexp.MustCompile(`(?im)entidad\s+federativa\s*:\s*(.+)$`)
	reSignOffCity = regexp.MustCompile(`(?im)^\s*(?:[^,\n]+,\s*)?([^,\n]+),\s*a\s+\d{1,2}\s+de\s`)
	reMuniLabel   = regexp.MustCompile(`(?im)municipio(?:\s+de)?\s*:\s*(.+)$`)
	reSignOffMuni = regexp.MustCompile(`(?im)^\s*([^,\n]+),\s*[^,\n]+,\s*a\s+\d{1,2}\s+de\s`)

	// upper-case lines that are notice headings, not agency names
	headingLines = []*regexp.Regexp{
		regexp.MustCompile(`^(?:RESUMEN\s+DE\s+)?(?:LA\s+)?CONVOCATORIA`),
		regexp.MustCompile(`^LICITACI[OÓ]N`),
		regexp.MustCompile(`^INVITACI[OÓ]N`),
		regexp.MustCompile(`^AVISO`),
		regexp.MustCompile(`^(?:NOTA\s+)?ACLARACI[OÓ]N|^NOTA\s+ACLARATORIA`),
		regexp.MustCompile(`^ESTADOS\s+UNIDOS\s+MEXICANOS`),
		regexp.MustCompile(`^R[UÚ]BRICA`),
		regexp.MustCompile(`^\(R\.`),
	}
)

// DefaultRules are the strategy chains for Spanish-language DOF notices.
func DefaultRules() Rules {
	return Rules{
		constants.FieldNumeroProcedimiento: {
			Pattern("procedure_code", reProcedureCode),
			Pattern("labeled_number", reProcedureNo),
		},
		constants.FieldTitulo: {
			Pattern("labeled_object", reTitle),
		},
		constants.FieldDescripcion: {
			Pattern("labeled_description", reDescription),
		},
		constants.FieldEntidadCompradora: {
			UpperLine("first_upper_line", 1, headingLines...),
		},
		constants.FieldUnidadCompradora: {
			Pattern("labeled_unit", reBuyingUnit),
			UpperLine("second_upper_line", 2, headingLines...),
		},
		constants.FieldTipoProcedimiento: {
			Keywords("procedure_keywords",
				KeywordRule{regexp.MustCompile(`(?i)licitaci[oó]n\s+p[uú]blica`), "licitacion_publica"},
				KeywordRule{regexp.MustCompile(`(?i)invitaci[oó]n\s+a\s+cuando\s+menos\s+tres`), "invitacion_a_cuando_menos_tres"},
				KeywordRule{regexp.MustCompile(`(?i)adjudicaci[oó]n\s+directa`), "adjudicacion_directa"},
				KeywordRule{regexp.MustCompile(`(?i)concurso\s+abierto`), "concurso_abierto"},
			),
		},
		constants.FieldTipoContratacion: {
			Keywords("contracting_keywords",
				KeywordRule{regexp.MustCompile(`(?i)\bobras?\s+p[uú]blicas?\b`), "obra_publica"},
				KeywordRule{regexp.MustCompile(`(?i)\barrendamientos?\s+de\b`), "arrendamientos"},
				KeywordRule{regexp.MustCompile(`(?i)\b(?:adquisici[oó]n|compra|suministro)\s+de\b`), "adquisiciones"},
				KeywordRule{regexp.MustCompile(`(?i)\bservicios?\s+de\b|\bprestaci[oó]n\s+de\s+servicios\b`), "servicios"},
			),
		},
		constants.FieldCaracter: {
			Keywords("character_keywords",
				KeywordRule{regexp.MustCompile(`(?i)internacional\s+(?:abierta\s+)?bajo\s+(?:la\s+cobertura\s+de\s+)?(?:los\s+)?tratados`), "internacional_tratados"},
				KeywordRule{regexp.MustCompile(`(?i)(?:p[uú]blica|invitaci[oó]n)\s+internacional`), "internacional"},
				KeywordRule{regexp.MustCompile(`(?i)(?:p[uú]blica|invitaci[oó]n)\s+nacional`), "nacional"},
				KeywordRule{regexp.MustCompile(`(?i)car[aá]cter\s*:?\s*nacional`), "nacional"},
			),
		},
		constants.FieldEstatus: {
			Keywords("status_keywords",
				KeywordRule{regexp.MustCompile(`(?i)\bcancelaci[oó]n\b|\bcancelad[oa]\b`), "cancelada"},
				KeywordRule{regexp.MustCompile(`(?i)\bdesiert[oa]\b`), "desierta"},
				KeywordRule{regexp.MustCompile(`(?i)\bnota\s+aclaratoria\b`), "modificada"},
			),
		},
		constants.FieldFechaPublicacion: {
			Pattern("labeled_publication", rePublished),
			Pattern("sign_off_date", reSignOffDate),
		},
		constants.FieldFechaJuntaAclaraciones: {
			Pattern("labeled_clarification", reClarification),
		},
		constants.FieldFechaVisita: {
			Pattern("labeled_visit", reVisit),
		},
		constants.FieldFechaApertura: {
			Pattern("labeled_opening", reOpening),
		},
		constants.FieldFechaFallo: {
			Pattern("labeled_award", reAward),
		},
		constants.FieldMontoEstimado: {
			Pattern("labeled_amount", reAmount),
		},
		constants.FieldMoneda: {
			Keywords("currency_keywords",
				KeywordRule{regexp.MustCompile(`(?i)d[oó]lares|\bUSD\b|\bUS\$`), "USD"},
				KeywordRule{regexp.MustCompile(`(?i)\beuros?\b|\bEUR\b`), "EUR"},
				KeywordRule{regexp.MustCompile(`(?i)\bM\.\s?N\.|moneda\s+nacional|\bpesos\b|\bMXN\b`), "MXN"},
			),
		},
		constants.FieldProveedorAdjudicado: {
			Pattern("labeled_supplier", reSupplier),
		},
		constants.FieldEntidadFederativa: {
			Pattern("labeled_state", reStateLabel),
			Pattern("sign_off_state", reSignOffCity),
		},
		constants.FieldMunicipio: {
			Pattern("labeled_municipality", reMuniLabel),
			Pattern("sign_off_city", reSignOffMuni),
		},
	}
}
