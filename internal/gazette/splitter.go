package gazette

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/licitaciones-tracker/internal/entity"
)

// DefaultRefMarker matches the reference code that closes each DOF notice, e.g. "(R.- 123456)".
var DefaultRefMarker = regexp.MustCompile(`\(\s*R\.?\s*-\s*(\d+)\s*\)`)

// SplitterConfig tunes block splitting.
type SplitterConfig struct {
	RefMarker     *regexp.Regexp // first capture group is the ref tag
	MinBlockChars int            // default 60, counted after trimming
}

type Splitter struct {
	marker   *regexp.Regexp
	minChars int
}

func NewSplitter(cfg SplitterConfig) *Splitter {
	if cfg.RefMarker == nil {
		cfg.RefMarker = DefaultRefMarker
	}
	if cfg.MinBlockChars <= 0 {
		cfg.MinBlockChars = 60
	}
	return &Splitter{marker: cfg.RefMarker, minChars: cfg.MinBlockChars}
}

// Split cuts the text of rng into notice blocks. Each block runs up to and
// including a reference marker; text after the last marker forms a final
// untagged block. Blocks shorter than the minimum are dropped.
func (s *Splitter) Split(idx *PageIndex, rng SectionRange) []entity.NoticeBlock {
	text, spans := idx.RangeText(rng.Start, rng.End)
	return s.SplitText(text, spans)
}

// SplitText splits already joined section text. spans may be nil.
func (s *Splitter) SplitText(text string, spans []PageSpan) []entity.NoticeBlock {
	var blocks []entity.NoticeBlock
	emit := func(start, end int, tag string) {
		raw := text[start:end]
		body := strings.TrimSpace(raw)
		if utf8.RuneCountInString(body) < s.minChars {
			return
		}
		// offsets of the trimmed body, so stray blank lines do not pull in a neighbouring page
		start += len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
		end = start + len(body)
		blocks = append(blocks, entity.NoticeBlock{
			Index:  len(blocks),
			Pages:  pagesFor(spans, start, end),
			Text:   body,
			RefTag: tag,
			Start:  start,
			End:    end,
		})
	}

	prev := 0
	for _, m := range s.marker.FindAllStringSubmatchIndex(text, -1) {
		tag := ""
		if len(m) >= 4 && m[2] >= 0 {
			tag = text[m[2]:m[3]]
		}
		emit(prev, m[1], tag)
		prev = m[1]
	}
	if prev < len(text) {
		emit(prev, len(text), "")
	}
	return blocks
}

func pagesFor(spans []PageSpan, start, end int) []int {
	var out []int
	for _, sp := range spans {
		if sp.Start < end && start < sp.End {
			out = append(out, sp.Number)
		}
	}
	return out
}
