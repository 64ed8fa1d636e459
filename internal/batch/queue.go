package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thywilljoshua/chapter-runner/internal/extract"
	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

var ErrNothingToDo = errors.New("nothing to process")

// Item is one queued request: which content of which file, under which
// rendered prompt.
type Item struct {
	File     library.File
	Label    string // substituted for the placeholder and used in logs
	Template string
	Pages    string        // PDF page range; empty means the whole document
	Part     *extract.Part // set for Full Book chunks
}

func (it Item) Prompt() string { return prompt.Render(it.Template, it.Label) }

func (it Item) String() string {
	s := it.File.Filename() + " - " + it.Label
	if it.Pages != "" {
		s += " (pages " + it.Pages + ")"
	}
	return s
}

func chapterItem(f library.File, c library.Chapter, tmpl string) Item {
	label := strings.TrimSpace(c.Name)
	if label == "" {
		label = prompt.Unspecified
	}
	it := Item{File: f, Label: label, Template: tmpl}
	if f.Type == library.PDF {
		it.Pages = c.PageRange
	}
	return it
}

// Single queues one chapter.
func Single(lib *library.Library, chapterRef, slot string) ([]Item, error) {
	tmpl, err := lib.Prompt(slot)
	if err != nil {
		return nil, err
	}
	f, c, err := lib.FindChapter(chapterRef)
	if err != nil {
		return nil, err
	}
	return []Item{chapterItem(f, c, tmpl)}, nil
}

// EntireFile queues a whole file under one template.
func EntireFile(lib *library.Library, fileRef, slot string) ([]Item, error) {
	tmpl, err := lib.Prompt(slot)
	if err != nil {
		return nil, err
	}
	f, err := lib.File(fileRef)
	if err != nil {
		return nil, err
	}
	return []Item{{File: f, Label: prompt.EntireFile, Template: tmpl}}, nil
}

// Batch queues every chapter of every file in view, in display order.
func Batch(lib *library.Library, view, slot string) ([]Item, error) {
	tmpl, err := lib.Prompt(slot)
	if err != nil {
		return nil, err
	}
	var items []Item
	for _, f := range lib.VisibleFiles(view) {
		for _, c := range f.Chapters {
			items = append(items, chapterItem(f, c, tmpl))
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no chapters in %s: %w", lib.ViewName(view), ErrNothingToDo)
	}
	return items, nil
}

// FullBook queues total_chapters parts for each file in view that has a
// target set, or for the single file named by fileRef. Chunk bounds are
// resolved when each part is extracted.
func FullBook(lib *library.Library, view, fileRef, slot string) ([]Item, error) {
	if slot == "" {
		slot = prompt.SlotFullBook
	}
	tmpl, err := lib.Prompt(slot)
	if err != nil {
		return nil, err
	}
	var files []library.File
	if fileRef != "" {
		f, err := lib.File(fileRef)
		if err != nil {
			return nil, err
		}
		if !f.FullBook() {
			return nil, fmt.Errorf("%s has no total chapters set: %w", f.Filename(), library.ErrInvalid)
		}
		files = []library.File{f}
	} else {
		for _, f := range lib.VisibleFiles(view) {
			if f.FullBook() {
				files = append(files, f)
			}
		}
	}
	var items []Item
	for _, f := range files {
		n := f.TotalChapters
		for i := 1; i <= n; i++ {
			items = append(items, Item{
				File:     f,
				Label:    prompt.PartLabel(i, n),
				Template: tmpl,
				Part:     &extract.Part{Index: i, Count: n},
			})
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no files with total chapters in %s: %w", lib.ViewName(view), ErrNothingToDo)
	}
	return items, nil
}
