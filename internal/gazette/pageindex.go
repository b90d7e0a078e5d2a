package gazette

import (
	"regexp"
	"strconv"
	"strings"
)

var rePageMarker = regexp.MustCompile(`(?i)\[PAGE\s+(\d+)\]`)

// Page is one declared page of a gazette issue. Start/End delimit the page
// in the original text; Text is that span without its marker.
type Page struct {
	Number int
	Start  int
	End    int
	Text   string
}

// PageIndex maps declared page numbers to page text, in document order.
type PageIndex struct {
	pages     []Page
	byNumber  map[int]int
	malformed bool
}

// BuildPageIndex scans text for [PAGE n] markers. It always yields at least
// one page: without markers, or with a marker sequence that is not strictly
// increasing, the whole text becomes page 1.
func BuildPageIndex(text string) *PageIndex {
	locs := rePageMarker.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return singlePage(text, false)
	}

	pages := make([]Page, 0, len(locs))
	prev := 0
	for i, loc := range locs {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil || n <= 0 || n <= prev {
			return singlePage(text, true)
		}
		prev = n

		start := loc[1]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[start:end]
		// preamble before the first marker belongs to the first page
		if i == 0 && loc[0] > 0 {
			start = 0
			body = text[:loc[0]] + body
		}
		pages = append(pages, Page{Number: n, Start: start, End: end, Text: body})
	}
	return newIndex(pages, false)
}

func singlePage(text string, malformed bool) *PageIndex {
	return newIndex([]Page{{Number: 1, Start: 0, End: len(text), Text: text}}, malformed)
}

func newIndex(pages []Page, malformed bool) *PageIndex {
	by := make(map[int]int, len(pages))
	for i, p := range pages {
		by[p.Number] = i
	}
	return &PageIndex{pages: pages, byNumber: by, malformed: malformed}
}

// Pages returns the pages in document order.
func (x *PageIndex) Pages() []Page {
	out := make([]Page, len(x.pages))
	copy(out, x.pages)
	return out
}

func (x *PageIndex) Len() int { return len(x.pages) }

// Malformed reports that markers were present but unusable.
func (x *PageIndex) Malformed() bool { return x.malformed }

func (x *PageIndex) MinPage() int { return x.pages[0].Number }

func (x *PageIndex) MaxPage() int { return x.pages[len(x.pages)-1].Number }

// Has reports whether page n was declared.
func (x *PageIndex) Has(n int) bool {
	_, ok := x.byNumber[n]
	return ok
}

// Text returns the body of page n.
func (x *PageIndex) Text(n int) (string, bool) {
	i, ok := x.byNumber[n]
	if !ok {
		return "", false
	}
	return x.pages[i].Text, true
}

// PageSpan locates one page inside a RangeText result.
type PageSpan struct {
	Number int
	Start  int
	End    int
}

// RangeText joins the bodies of declared pages within [start, end] with a
// newline and returns the joined text with per-page spans.
func (x *PageIndex) RangeText(start, end int) (string, []PageSpan) {
	var b strings.Builder
	var spans []PageSpan
	for _, p := range x.pages {
		if p.Number < start || p.Number > end {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		s := b.Len()
		b.WriteString(p.Text)
		spans = append(spans, PageSpan{Number: p.Number, Start: s, End: b.Len()})
	}
	return b.String(), spans
}
