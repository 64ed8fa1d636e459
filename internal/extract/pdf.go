package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	rpdf "rsc.io/pdf"
)

// ErrPageMissing means the page tree claims a page it does not hold.
var ErrPageMissing = errors.New("page object missing from page tree")

// Page tree walk limits; a damaged tree can loop back on itself.
const (
	maxTreeDepth = 32
	maxTreeNodes = 1 << 20
)

// PageCount returns the number of pages of the PDF at path, as declared by
// its page tree.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return 0, &ExtractionError{Path: path, Err: err}
	}
	doc, err := rpdf.NewReader(f, st.Size())
	if err != nil {
		return 0, &ExtractionError{Path: path, Err: err}
	}
	return doc.NumPage(), nil
}

// document is an open PDF with the page objects its tree really contains.
// declared is what /Count claims; leaves may be shorter when the tree is
// damaged.
type document struct {
	path     string
	f        *os.File
	declared int
	leaves   []lpdf.Value
}

func openDocument(path string) (*document, error) {
	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	d := &document{path: path, f: f}
	if err := d.load(r); err != nil {
		f.Close()
		return nil, &ExtractionError{Path: path, Err: err}
	}
	return d, nil
}

func (d *document) Close() error { return d.f.Close() }

func (d *document) load(r *lpdf.Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page tree: %v", rec)
		}
	}()
	d.declared = r.NumPage()
	d.leaves = pageLeaves(r.Trailer().Key("Root").Key("Pages"))
	return nil
}

// pageLeaves walks /Kids and returns the page objects in document order.
func pageLeaves(root lpdf.Value) []lpdf.Value {
	var (
		out   []lpdf.Value
		nodes int
	)
	var walk func(v lpdf.Value, depth int)
	walk = func(v lpdf.Value, depth int) {
		nodes++
		if depth > maxTreeDepth || nodes > maxTreeNodes || v.Kind() != lpdf.Dict {
			return
		}
		kids := v.Key("Kids")
		switch {
		case v.Key("Type").Name() == "Page":
			out = append(out, v)
		case kids.Kind() == lpdf.Array:
			for i := 0; i < kids.Len(); i++ {
				walk(kids.Index(i), depth+1)
			}
		}
	}
	walk(root, 0)
	return out
}

// count is the highest page number a caller may ask for.
func (d *document) count() int { return max(d.declared, len(d.leaves)) }

// text returns the trimmed text of page p (1-based).
func (d *document) text(p int) (text string, err error) {
	if p > len(d.leaves) {
		return "", ErrPageMissing
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page: %v", rec)
		}
	}()
	t, err := lpdf.Page{V: d.leaves[p-1]}.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(t), nil
}

// Pages returns the trimmed text of each requested page, in the given order,
// separated by one blank line. Every page is validated before any text is
// read, so a bad selection fails without partial work. A page the document
// declares but does not contain is a PageExtractionError.
func Pages(path string, pages []int) (string, error) {
	d, err := openDocument(path)
	if err != nil {
		return "", err
	}
	defer d.Close()

	n := d.count()
	for _, p := range pages {
		if p < 1 || p > n {
			return "", &OutOfRangeError{Path: path, Page: p, Count: n}
		}
	}
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		t, err := d.text(p)
		if err != nil {
			return "", &PageExtractionError{Path: path, Page: p, Err: err}
		}
		texts = append(texts, t)
	}
	return strings.Join(texts, "\n\n"), nil
}

// Document returns the text of every declared page.
func Document(path string) (string, error) {
	n, err := PageCount(path)
	if err != nil {
		return "", err
	}
	all := make([]int, n)
	for i := range all {
		all[i] = i + 1
	}
	return Pages(path, all)
}

// LeadingPages returns the text of the first n pages (all pages when n <= 0)
// split one string per page. Pages that cannot be decoded come back empty.
func LeadingPages(path string, n int) ([]string, error) {
	d, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	total := len(d.leaves)
	if n <= 0 || n > total {
		n = total
	}
	out := make([]string, n)
	for i := range out {
		t, err := d.text(i + 1)
		if err != nil {
			continue
		}
		out[i] = t
	}
	return out, nil
}
