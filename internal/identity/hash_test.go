package identity

import (
	"encoding/json"
	"testing"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

func str(s string) *string { return &s }

func TestContentHashStable(t *testing.T) {
	a := &entity.Licitacion{Source: "dof", ProcedureNumber: str("LA-012NCD001-E15-2025"), BuyingEntity: str("Secretaría de Salud")}
	b := &entity.Licitacion{Source: "DOF ", ProcedureNumber: str(" la-012ncd001-e15-2025"), BuyingEntity: str("SECRETARIA  DE  SALUD."),
		Title: str("otro titulo"), Raw: json.RawMessage(`{"x":1}`)}
	ha, hb := ContentHash(a), ContentHash(b)
	if ha != hb {
		t.Fatalf("same identity hashed differently: %s vs %s", ha, hb)
	}
	if len(ha) != 64 {
		t.Fatalf("hash length = %d", len(ha))
	}
}

func TestContentHashDistinct(t *testing.T) {
	base := &entity.Licitacion{Source: "dof", ProcedureNumber: str("LA-1"), BuyingEntity: str("IMSS")}
	others := []*entity.Licitacion{
		{Source: "comprasmx", ProcedureNumber: str("LA-1"), BuyingEntity: str("IMSS")},
		{Source: "dof", ProcedureNumber: str("LA-2"), BuyingEntity: str("IMSS")},
		{Source: "dof", ProcedureNumber: str("LA-1"), BuyingEntity: str("ISSSTE")},
	}
	h := ContentHash(base)
	for i, o := range others {
		if ContentHash(o) == h {
			t.Fatalf("record %d collides with base", i)
		}
	}
}

func TestContentHashFallbacks(t *testing.T) {
	a := &entity.Licitacion{Source: "tianguis", Title: str("Obra A"), PublishedOn: str("2025-08-14")}
	b := &entity.Licitacion{Source: "tianguis", Title: str("Obra B"), PublishedOn: str("2025-08-14")}
	if ContentHash(a) == ContentHash(b) {
		t.Fatalf("blank procedure number should fall back to the title")
	}

	r1 := &entity.Licitacion{Source: "tianguis", Raw: json.RawMessage(`{"a":1}`)}
	r2 := &entity.Licitacion{Source: "tianguis", Raw: json.RawMessage(`{"a":2}`)}
	if ContentHash(r1) == ContentHash(r2) {
		t.Fatalf("empty identity should fall back to the raw payload")
	}
	if ContentHash(r1) != ContentHash(&entity.Licitacion{Source: "tianguis", Raw: json.RawMessage(`{"a":1}`)}) {
		t.Fatalf("raw fallback not stable")
	}
}

func TestContentHashGazetteNoticesWithoutNumber(t *testing.T) {
	notice := func(tag string) *entity.Licitacion {
		return &entity.Licitacion{
			Source:       "dof",
			BuyingEntity: str("SECRETARIA DE MARINA"),
			PublishedOn:  str("2025-08-14"),
			Extra: map[string]any{
				constants.ExtraRefTag:            tag,
				constants.ExtraPublishedOnSource: constants.PublishedFromIssue,
			},
		}
	}
	if ContentHash(notice("500001")) == ContentHash(notice("500002")) {
		t.Fatalf("notices with different ref tags must not share an identity")
	}
	if ContentHash(notice("500001")) != ContentHash(notice("500001")) {
		t.Fatalf("ref tag identity not stable")
	}

	// the issue date stands in for a missing publication date and must not split or merge records
	later := notice("500001")
	later.PublishedOn = str("2025-08-21")
	if ContentHash(later) != ContentHash(notice("500001")) {
		t.Fatalf("substituted publication date leaked into the identity")
	}
	printed := notice("500001")
	delete(printed.Extra, constants.ExtraPublishedOnSource)
	if ContentHash(printed) == ContentHash(notice("500001")) {
		t.Fatalf("a printed publication date should be part of the identity")
	}
}

func TestAssign(t *testing.T) {
	rec := &entity.Licitacion{Source: "dof", ProcedureNumber: str("LA-1")}
	h := Assign(rec)
	if rec.ContentHash != h || h == "" {
		t.Fatalf("Assign did not store hash")
	}
}

func TestCanonical(t *testing.T) {
	cases := map[string]string{
		"  Secretaría de   Educación Pública. ": "SECRETARIA DE EDUCACION PUBLICA",
		"LA-012/2025":                           "LA-012/2025",
		"":                                      "",
		"niño, S.A. de C.V.":                    "NINO S A DE C V",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}
