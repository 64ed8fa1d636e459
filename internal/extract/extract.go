// Package extract reads the content an item sends: selected PDF pages, whole
// documents, text files and Full Book chunks of either.
package extract

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/pagerange"
)

var (
	ErrMissing   = errors.New("file no longer exists")
	ErrNotFile   = errors.New("not a regular file")
	ErrEmptyPart = errors.New("part has no content")
)

// ExtractionError is an item-scoped failure to read a file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract %s: %v", e.Path, e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }

// OutOfRangeError means a selected page is beyond the end of the document.
type OutOfRangeError struct {
	Path  string
	Page  int
	Count int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: page %d is out of range (document has %d pages)", e.Path, e.Page, e.Count)
}

// PageExtractionError means a page exists but its text could not be decoded.
type PageExtractionError struct {
	Path string
	Page int
	Err  error
}

func (e *PageExtractionError) Error() string {
	return fmt.Sprintf("%s: page %d: %v", e.Path, e.Page, e.Err)
}

func (e *PageExtractionError) Unwrap() error { return e.Err }

// Payload is what a driver delivers: inline text or a reference to a file on
// disk. Exactly one of the fields is set.
type Payload struct {
	Text     string
	FilePath string
}

func (p Payload) IsFile() bool { return p.FilePath != "" }

// Part selects chunk Index (1-based) of Count for Full Book runs.
type Part struct {
	Index int
	Count int
}

// Source describes what to read from one file. Pages applies to PDFs; nil
// means the whole document. Part, when set, takes precedence over Pages.
type Source struct {
	Path  string
	Type  library.FileType
	Pages []int
	Part  *Part
}

// Extractor turns sources into payloads. FileRefs is set when the active
// driver can take a whole text file by reference.
type Extractor struct {
	FileRefs bool
}

// Check verifies the path still exists and is a readable regular file.
func Check(path string) error {
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ExtractionError{Path: path, Err: ErrMissing}
	}
	if err != nil {
		return &ExtractionError{Path: path, Err: err}
	}
	if !st.Mode().IsRegular() {
		return &ExtractionError{Path: path, Err: ErrNotFile}
	}
	f, err := os.Open(path)
	if err != nil {
		return &ExtractionError{Path: path, Err: err}
	}
	return f.Close()
}

func (e Extractor) Extract(src Source) (Payload, error) {
	if err := Check(src.Path); err != nil {
		return Payload{}, err
	}
	switch src.Type {
	case library.PDF:
		return e.extractPDF(src)
	case library.TXT:
		return e.extractTXT(src)
	}
	return Payload{}, &ExtractionError{Path: src.Path, Err: library.ErrUnsupported}
}

func (e Extractor) extractPDF(src Source) (Payload, error) {
	pages := src.Pages
	if src.Part != nil {
		n, err := PageCount(src.Path)
		if err != nil {
			return Payload{}, err
		}
		span, err := partSpan(src.Path, n, *src.Part)
		if err != nil {
			return Payload{}, err
		}
		pages = span.Pages()
	}
	var (
		text string
		err  error
	)
	if pages == nil {
		text, err = Document(src.Path)
	} else {
		text, err = Pages(src.Path, pages)
	}
	if err != nil {
		return Payload{}, err
	}
	log.Debug().Str("file", src.Path).Int("pages", len(pages)).Int("chars", len(text)).Msg("extracted pdf text")
	return Payload{Text: text}, nil
}

func (e Extractor) extractTXT(src Source) (Payload, error) {
	if src.Part == nil && e.FileRefs {
		return Payload{FilePath: src.Path}, nil
	}
	text, err := ReadText(src.Path)
	if err != nil {
		return Payload{}, err
	}
	if src.Part != nil {
		runes := []rune(text)
		span, err := partSpan(src.Path, len(runes), *src.Part)
		if err != nil {
			return Payload{}, err
		}
		text = string(runes[span.Start-1 : span.End])
	}
	return Payload{Text: text}, nil
}

func partSpan(path string, total int, p Part) (pagerange.Span, error) {
	spans := pagerange.Split(total, p.Count)
	if p.Index < 1 || p.Index > len(spans) {
		return pagerange.Span{}, &ExtractionError{Path: path, Err: fmt.Errorf("part %d of %d: %w", p.Index, p.Count, ErrEmptyPart)}
	}
	s := spans[p.Index-1]
	if s.Len() == 0 {
		return s, &ExtractionError{Path: path, Err: fmt.Errorf("part %d of %d: %w", p.Index, p.Count, ErrEmptyPart)}
	}
	return s, nil
}
