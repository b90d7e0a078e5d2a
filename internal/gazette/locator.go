package gazette

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/licitaciones-tracker/constants"
)

var (
	// an index entry ends in a page number preceded by dot leaders or blanks
	reEntryPage = regexp.MustCompile(`(?:[.·…_\-]{2,}|\s)\s*(?:p[áa]g(?:ina)?\.?\s*)?(\d{1,4})\s*$`)

	DefaultSectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)convocatorias\s+para\s+concursos`),
		regexp.MustCompile(`(?i)licitaciones\s+p[úu]blicas`),
		regexp.MustCompile(`(?i)tender\s+notices`),
	}
	DefaultNextSectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)avisos\s+judiciales`),
		regexp.MustCompile(`(?i)^\s*avisos\b`),
		regexp.MustCompile(`(?i)other\s+notices`),
	}
)

const maxHeadingLen = 160

// LocatorConfig tunes the section lookup.
type LocatorConfig struct {
	IndexScanPages      int              // default 10
	SectionPatterns     []*regexp.Regexp // tender-notice section names
	NextSectionPatterns []*regexp.Regexp // section that follows the tender notices
}

// SectionRange is an inclusive page range.
type SectionRange struct {
	Start    int
	End      int
	Method   constants.LocateMethod
	Degraded bool
}

type Locator struct {
	cfg    LocatorConfig
	logger *slog.Logger
}

func NewLocator(cfg LocatorConfig, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IndexScanPages <= 0 {
		cfg.IndexScanPages = 10
	}
	if len(cfg.SectionPatterns) == 0 {
		cfg.SectionPatterns = DefaultSectionPatterns
	}
	if len(cfg.NextSectionPatterns) == 0 {
		cfg.NextSectionPatterns = DefaultNextSectionPatterns
	}
	return &Locator{cfg: cfg, logger: logger}
}

// Locate returns the page range holding tender notices. It tries the
// document's own index first, then a heading scan, and finally falls back to
// the whole document with Degraded set. It never fails.
func (l *Locator) Locate(idx *PageIndex) SectionRange {
	minPage, maxPage := idx.MinPage(), idx.MaxPage()

	if r, ok := l.fromIndex(idx); ok {
		l.logger.Info("gazette.locate.index", "start", r.Start, "end", r.End)
		return r
	}
	if r, ok := l.fromContent(idx); ok {
		l.logger.Info("gazette.locate.content_scan", "start", r.Start, "end", r.End)
		return r
	}

	l.logger.Warn("gazette.locate.degraded",
		"reason", "no index entry or section heading found",
		"start", minPage, "end", maxPage, "pages", idx.Len(), "malformed_markers", idx.Malformed())
	return SectionRange{Start: minPage, End: maxPage, Method: constants.LocateWholeDocument, Degraded: true}
}

func (l *Locator) fromIndex(idx *PageIndex) (SectionRange, bool) {
	minPage, maxPage := idx.MinPage(), idx.MaxPage()
	for _, p := range idx.pages {
		if p.Number > l.cfg.IndexScanPages {
			break
		}
		lines := strings.Split(p.Text, "\n")
		start, ok := findEntry(lines, l.cfg.SectionPatterns, func(n int) bool { return n >= minPage && n <= maxPage })
		if !ok {
			continue
		}
		end := maxPage
		if next, ok := findEntry(lines, l.cfg.NextSectionPatterns, func(n int) bool { return n >= start }); ok {
			end = clamp(next-1, start, maxPage)
		}
		return SectionRange{Start: start, End: end, Method: constants.LocateIndex}, true
	}
	return SectionRange{}, false
}

func (l *Locator) fromContent(idx *PageIndex) (SectionRange, bool) {
	maxPage := idx.MaxPage()
	start := -1
	for _, p := range idx.pages {
		if start < 0 {
			if hasHeading(p.Text, l.cfg.SectionPatterns) {
				start = p.Number
			}
			continue
		}
		if hasHeading(p.Text, l.cfg.NextSectionPatterns) {
			return SectionRange{Start: start, End: clamp(p.Number-1, start, maxPage), Method: constants.LocateContentScan}, true
		}
	}
	if start < 0 {
		return SectionRange{}, false
	}
	return SectionRange{Start: start, End: maxPage, Method: constants.LocateContentScan}, true
}

// findEntry returns the page number of the first index line matching any
// pattern whose trailing number passes accept.
func findEntry(lines []string, patterns []*regexp.Regexp, accept func(int) bool) (int, bool) {
	for _, line := range lines {
		if !matchesAny(line, patterns) {
			continue
		}
		m := reEntryPage.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || !accept(n) {
			continue
		}
		return n, true
	}
	return 0, false
}

// hasHeading reports a short line naming a section without an index page number.
func hasHeading(text string, patterns []*regexp.Regexp) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxHeadingLen {
			continue
		}
		if matchesAny(line, patterns) && !reEntryPage.MatchString(line) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
