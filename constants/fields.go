package constants

// Gazette candidate fields. These are the keys the rule tier fills and the
// oracle schema requires.
const (
	FieldNumeroProcedimiento    = "numero_procedimiento"
	FieldTitulo                 = "titulo"
	FieldDescripcion            = "descripcion"
	FieldEntidadCompradora      = "entidad_compradora"
	FieldUnidadCompradora       = "unidad_compradora"
	FieldTipoProcedimiento      = "tipo_procedimiento"
	FieldTipoContratacion       = "tipo_contratacion"
	FieldCaracter               = "caracter"
	FieldEstatus                = "estatus"
	FieldFechaPublicacion       = "fecha_publicacion"
	FieldFechaJuntaAclaraciones = "fecha_junta_aclaraciones"
	FieldFechaVisita            = "fecha_visita"
	FieldFechaApertura          = "fecha_apertura"
	FieldFechaFallo             = "fecha_fallo"
	FieldMontoEstimado          = "monto_estimado"
	FieldMoneda                 = "moneda"
	FieldProveedorAdjudicado    = "proveedor_adjudicado"
	FieldEntidadFederativa      = "entidad_federativa"
	FieldMunicipio              = "municipio"
)

var gazetteFields = []string{
	FieldNumeroProcedimiento,
	FieldTitulo,
	FieldDescripcion,
	FieldEntidadCompradora,
	FieldUnidadCompradora,
	FieldTipoProcedimiento,
	FieldTipoContratacion,
	FieldCaracter,
	FieldEstatus,
	FieldFechaPublicacion,
	FieldFechaJuntaAclaraciones,
	FieldFechaVisita,
	FieldFechaApertura,
	FieldFechaFallo,
	FieldMontoEstimado,
	FieldMoneda,
	FieldProveedorAdjudicado,
	FieldEntidadFederativa,
	FieldMunicipio,
}

// GazetteFields returns the fixed candidate field set in display order.
func GazetteFields() []string {
	out := make([]string, len(gazetteFields))
	copy(out, gazetteFields)
	return out
}

// DefaultRequiredFields drive the rule-tier coverage check.
var DefaultRequiredFields = []string{
	FieldNumeroProcedimiento,
	FieldTitulo,
	FieldEntidadCompradora,
	FieldTipoProcedimiento,
	FieldFechaPublicacion,
	FieldFechaApertura,
}

// Slot is a canonical column of the licitaciones table that mapping tables can target.
type Slot string

const (
	SlotProcedureNumber Slot = "procedure_number"
	SlotSourceUUID      Slot = "source_uuid"
	SlotTitle           Slot = "title"
	SlotDescription     Slot = "description"
	SlotBuyingEntity    Slot = "buying_entity"
	SlotBuyingUnit      Slot = "buying_unit"
	SlotProcedureType   Slot = "procedure_type"
	SlotContractingType Slot = "contracting_type"
	SlotCharacter       Slot = "character"
	SlotStatus          Slot = "status"
	SlotPublishedOn     Slot = "published_on"
	SlotOpeningOn       Slot = "opening_on"
	SlotAwardOn         Slot = "award_on"
	SlotClarificationOn Slot = "clarification_on"
	SlotEstimatedAmount Slot = "estimated_amount"
	SlotCurrency        Slot = "currency"
	SlotAwardedSupplier Slot = "awarded_supplier"
	SlotOriginalURL     Slot = "original_url"
	SlotFederalEntity   Slot = "federal_entity"
	SlotMunicipality    Slot = "municipality"
)

var allSlots = map[Slot]struct{}{
	SlotProcedureNumber: {}, SlotSourceUUID: {}, SlotTitle: {}, SlotDescription: {},
	SlotBuyingEntity: {}, SlotBuyingUnit: {}, SlotProcedureType: {}, SlotContractingType: {},
	SlotCharacter: {}, SlotStatus: {}, SlotPublishedOn: {}, SlotOpeningOn: {},
	SlotAwardOn: {}, SlotClarificationOn: {}, SlotEstimatedAmount: {}, SlotCurrency: {},
	SlotAwardedSupplier: {}, SlotOriginalURL: {}, SlotFederalEntity: {}, SlotMunicipality: {},
}

func IsSlot(s string) bool {
	_, ok := allSlots[Slot(s)]
	return ok
}

// IsDateSlot reports slots that go through date normalization.
func (s Slot) IsDateSlot() bool {
	switch s {
	case SlotPublishedOn, SlotOpeningOn, SlotAwardOn, SlotClarificationOn:
		return true
	}
	return false
}

// Side-channel keys the normalizer writes into Licitacion.Extra.
const (
	ExtraRefTag            = "ref_tag"
	ExtraEdition           = "edition"
	ExtraPublishedOnSource = "published_on_source" // "issue_date" when the notice printed no date
	PublishedFromIssue     = "issue_date"
)
