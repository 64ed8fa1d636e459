// Package pagerange parses page selections such as "1-3, 5, 9-12" into
// ascending 1-based page lists and formats them back.
package pagerange

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrFormat     = errors.New("malformed page range")
	ErrRangeOrder = errors.New("range start is greater than its end")
	ErrEmpty      = errors.New("page range selects no pages")
)

// ParseError reports which token of an expression was rejected.
type ParseError struct {
	Input string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("page range %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("page range %q: token %q: %v", e.Input, e.Token, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	singleRe = regexp.MustCompile(`^\d+$`)
	spanRe   = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
)

// Parse returns the ascending, deduplicated pages selected by s.
func Parse(s string) ([]int, error) {
	seen := map[int]struct{}{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if singleRe.MatchString(tok) {
			n, err := page(tok)
			if err != nil {
				return nil, &ParseError{Input: s, Token: tok, Err: ErrFormat}
			}
			seen[n] = struct{}{}
			continue
		}
		m := spanRe.FindStringSubmatch(tok)
		if m == nil {
			return nil, &ParseError{Input: s, Token: tok, Err: ErrFormat}
		}
		start, err1 := page(m[1])
		end, err2 := page(m[2])
		if err1 != nil || err2 != nil {
			return nil, &ParseError{Input: s, Token: tok, Err: ErrFormat}
		}
		if start > end {
			return nil, &ParseError{Input: s, Token: tok, Err: ErrRangeOrder}
		}
		for p := start; p <= end; p++ {
			seen[p] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, &ParseError{Input: s, Err: ErrEmpty}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

// page parses a positive page number. Anything above a million pages is
// treated as a typo rather than expanded.
func page(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 1_000_000 {
		return 0, ErrFormat
	}
	return n, nil
}

// Format joins ascending runs of pages back into an expression, e.g.
// [1 2 3 5] -> "1-3,5". Input need not be sorted or unique.
func Format(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	ps := append([]int(nil), pages...)
	sort.Ints(ps)
	var parts []string
	start, prev := ps[0], ps[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, p := range ps[1:] {
		if p == prev {
			continue
		}
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()
	return strings.Join(parts, ",")
}

// Normalize parses s and formats the result.
func Normalize(s string) (string, error) {
	ps, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(ps), nil
}

// Span is an inclusive 1-based interval. A span with Start > End is empty.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start + 1
}

// Pages lists every page of the span.
func (s Span) Pages() []int {
	out := make([]int, 0, s.Len())
	for p := s.Start; p <= s.End; p++ {
		out = append(out, p)
	}
	return out
}

// String renders the span as a range expression: "3-5", or "3" for a single
// page.
func (s Span) String() string {
	switch {
	case s.Len() == 0:
		return ""
	case s.Start == s.End:
		return strconv.Itoa(s.Start)
	}
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Split cuts 1..total into parts contiguous spans whose lengths differ by at
// most one; the longer spans come first. When total < parts the trailing
// spans are empty.
func Split(total, parts int) []Span {
	if parts <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	base, extra := total/parts, total%parts
	out := make([]Span, parts)
	next := 1
	for i := range out {
		n := base
		if i < extra {
			n++
		}
		out[i] = Span{Start: next, End: next + n - 1}
		next += n
	}
	return out
}
