package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Licitacion is the canonical tender record shared by every source.
type Licitacion struct {
	ID              uuid.UUID       `json:"id"`
	Source          string          `json:"source"`
	ContentHash     string          `json:"content_hash"`
	ProcedureNumber *string         `json:"procedure_number,omitempty"`
	SourceUUID      *string         `json:"source_uuid,omitempty"`
	Title           *string         `json:"title,omitempty"`
	Description     *string         `json:"description,omitempty"`
	BuyingEntity    *string         `json:"buying_entity,omitempty"`
	BuyingUnit      *string         `json:"buying_unit,omitempty"`
	ProcedureType   *string         `json:"procedure_type,omitempty"`
	ContractingType *string         `json:"contracting_type,omitempty"`
	Character       *string         `json:"character,omitempty"`
	Status          *string         `json:"status,omitempty"`
	PublishedOn     *string         `json:"published_on,omitempty"`     // YYYY-MM-DD
	OpeningOn       *string         `json:"opening_on,omitempty"`       // YYYY-MM-DD
	AwardOn         *string         `json:"award_on,omitempty"`         // YYYY-MM-DD
	ClarificationOn *string         `json:"clarification_on,omitempty"` // YYYY-MM-DD
	EstimatedAmount *float64        `json:"estimated_amount,omitempty"`
	AmountKnown     bool            `json:"amount_known"`
	Currency        *string         `json:"currency,omitempty"`
	AwardedSupplier *string         `json:"awarded_supplier,omitempty"`
	OriginalURL     *string         `json:"original_url,omitempty"`
	CapturedAt      time.Time       `json:"captured_at"`
	FederalEntity   *string         `json:"federal_entity,omitempty"`
	Municipality    *string         `json:"municipality,omitempty"`
	Raw             json.RawMessage `json:"raw_payload,omitempty"`
	Extra           map[string]any  `json:"extra,omitempty"`
	CreatedAt       time.Time       `json:"created_at,omitzero"`
	UpdatedAt       time.Time       `json:"updated_at,omitzero"`
}

// StrOrEmpty dereferences an optional string column.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
