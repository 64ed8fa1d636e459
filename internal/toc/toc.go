// Package toc finds a printed table of contents in the first pages of a
// document and turns its entries into page-ranged sections.
package toc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/thywilljoshua/chapter-runner/internal/pagerange"
)

// Entry patterns: numeric, roman numerals, alphabetic appendices, and an
// explicit Appendix prefix. Each ends with the page number.
var (
	numRe      = regexp.MustCompile(`^\s*(\d+(?:\.\d+)*)\.?\s+(.+?)\s+(\d+)\s*$`)
	romanRe    = regexp.MustCompile(`^\s*([IVXLCDM]+)(?:\.([0-9]+))?\.?\s+(.+?)\s+(\d+)\s*$`)
	alphaRe    = regexp.MustCompile(`^\s*([A-Z](?:\.[0-9]+)*)\.?\s+(.+?)\s+(\d+)\s*$`)
	appendixRe = regexp.MustCompile(`^\s*(?:Appendix|APPENDIX)\s+([A-Z](?:\.[0-9]+)*)\.?\s+(.+?)\s+(\d+)\s*$`)
	chapterRe  = regexp.MustCompile(`^\s*(?:Chapter|CHAPTER)\s+(\d+|[IVXLCDM]+)[.:]?\s+(.+?)\s+(\d+)\s*$`)

	headerRe  = regexp.MustCompile(`(?im)\btable of contents\b|^\s*contents\s*$`)
	leadersRe = regexp.MustCompile(`(?:\s*\.){3,}\s*`)
)

type Entry struct {
	Number string // as printed: 1.2, IV, A.1
	Title  string
	Page   int
	Depth  int
}

// Section is an entry with the inclusive page span it covers.
type Section struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Start  int    `json:"start_page"`
	End    int    `json:"end_page"`
	Depth  int    `json:"depth"`
}

// Name is the chapter name a section becomes.
func (s Section) Name() string {
	if s.Number == "" {
		return s.Title
	}
	return s.Number + " " + s.Title
}

func (s Section) Range() string {
	return pagerange.Span{Start: s.Start, End: s.End}.String()
}

type Options struct {
	ScanPages int // how many leading pages may hold the ToC
	MaxDepth  int // deepest level kept; 1 keeps top-level entries only
	Offset    int // added to printed page numbers to get PDF pages
	PageCount int // last page of the document, closes the final section
}

// Detect finds ToC lines in pages and builds sections from them. It returns
// nil when no ToC is recognised.
func Detect(pages []string, opt Options) []Section {
	lines := FindLines(pages, opt.ScanPages)
	if len(lines) == 0 {
		return nil
	}
	return Build(ParseLines(lines), opt)
}

// ParseLines returns the recognised entries sorted by page.
func ParseLines(lines []string) []Entry {
	var out []Entry
	for _, line := range lines {
		if e, ok := match(normalizeLeaders(line)); ok {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out
}

func match(line string) (Entry, bool) {
	if m := chapterRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3], 1), true
	}
	if m := appendixRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3], strings.Count(m[1], ".")+1), true
	}
	if m := numRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3], strings.Count(m[1], ".")+1), true
	}
	if m := alphaRe.FindStringSubmatch(line); m != nil {
		return entry(m[1], m[2], m[3], strings.Count(m[1], ".")+1), true
	}
	if m := romanRe.FindStringSubmatch(line); m != nil {
		num, depth := m[1], 1
		if m[2] != "" {
			num += "." + m[2]
			depth = 2
		}
		return entry(num, m[3], m[4], depth), true
	}
	return Entry{}, false
}

func entry(num, title, page string, depth int) Entry {
	p, _ := strconv.Atoi(page)
	return Entry{Number: num, Title: strings.TrimSpace(title), Page: p, Depth: depth}
}

func isLine(s string) bool {
	_, ok := match(normalizeLeaders(s))
	return ok
}

func normalizeLeaders(s string) string {
	s = strings.NewReplacer("•", " ", "·", " ", "…", " ... ").Replace(s)
	s = leadersRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Build closes every entry at the page before the next kept entry; the last
// one runs to PageCount (or its own page when the count is unknown).
func Build(entries []Entry, opt Options) []Section {
	maxDepth := opt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}
	var kept []Entry
	for _, e := range entries {
		if e.Depth <= maxDepth && e.Page > 0 {
			kept = append(kept, e)
		}
	}
	out := make([]Section, 0, len(kept))
	for i, e := range kept {
		start := e.Page + opt.Offset
		end := start
		switch {
		case i < len(kept)-1:
			end = kept[i+1].Page + opt.Offset - 1
		case opt.PageCount > 0:
			end = opt.PageCount
		}
		if opt.PageCount > 0 {
			if start > opt.PageCount {
				continue
			}
			end = min(end, opt.PageCount)
		}
		if end < start {
			end = start
		}
		out = append(out, Section{Number: e.Number, Title: e.Title, Start: start, End: end, Depth: e.Depth})
	}
	return out
}

// FindLines collects ToC lines from the first n pages. A page headed
// "Contents" anchors the search and following pages are read while they keep
// yielding entries; without a header any matching line in range counts.
func FindLines(pages []string, n int) []string {
	if n <= 0 {
		n = 8
	}
	if n > len(pages) {
		n = len(pages)
	}
	anchor := -1
	for i := 0; i < n; i++ {
		if headerRe.MatchString(pages[i]) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		var out []string
		for i := 0; i < n; i++ {
			out = append(out, linesOf(pages[i])...)
		}
		return out
	}
	lines := linesOf(pages[anchor])
	extend := n / 2
	if extend < 2 {
		extend = 2
	}
	for i := anchor + 1; i < len(pages) && i <= anchor+extend; i++ {
		more := linesOf(pages[i])
		if len(more) == 0 {
			break
		}
		lines = append(lines, more...)
	}
	return lines
}

func linesOf(page string) []string {
	var out []string
	for _, ln := range strings.Split(page, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" && isLine(ln) {
			out = append(out, ln)
		}
	}
	return out
}
