package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// ContentHash returns the dedup identity of rec: a hex sha256 over
// (source, procedure number, buying entity). When the procedure number is
// blank the tuple also carries the source UUID, title, publication date,
// description and the gazette reference tag; when all of those are blank
// too, the raw payload is hashed. A publication date substituted from the
// issue date is not part of the identity.
func ContentHash(rec *entity.Licitacion) string {
	number := Canonical(entity.StrOrEmpty(rec.ProcedureNumber))
	parts := []string{
		"v1",
		strings.ToLower(strings.TrimSpace(rec.Source)),
		number,
		Canonical(entity.StrOrEmpty(rec.BuyingEntity)),
	}
	if number == "" {
		published := strings.TrimSpace(entity.StrOrEmpty(rec.PublishedOn))
		if extraString(rec, constants.ExtraPublishedOnSource) == constants.PublishedFromIssue {
			published = ""
		}
		fallback := []string{
			Canonical(entity.StrOrEmpty(rec.SourceUUID)),
			Canonical(entity.StrOrEmpty(rec.Title)),
			published,
			Canonical(entity.StrOrEmpty(rec.Description)),
			Canonical(extraString(rec, constants.ExtraRefTag)),
		}
		parts = append(parts, fallback...)
		if strings.Join(fallback, "") == "" {
			sum := sha256.Sum256(rec.Raw)
			parts = append(parts, "raw:"+hex.EncodeToString(sum[:]))
		}
	}

	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func extraString(rec *entity.Licitacion, key string) string {
	s, _ := rec.Extra[key].(string)
	return s
}

// Assign computes and stores the hash on rec, returning it.
func Assign(rec *entity.Licitacion) string {
	rec.ContentHash = ContentHash(rec)
	return rec.ContentHash
}

// Canonical folds a value for hashing: accents removed, upper-cased,
// punctuation other than '-' and '/' dropped, whitespace collapsed.
func Canonical(s string) string {
	var b strings.Builder
	space := false
	for _, r := range norm.NFD.String(s) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '/':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			space = true
		}
	}
	return b.String()
}
