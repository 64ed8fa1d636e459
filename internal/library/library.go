// Package library holds the in-memory model of folders, files, chapter
// blocks and prompt templates. It performs no I/O; persistence lives in the
// store package.
package library

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/thywilljoshua/chapter-runner/internal/pagerange"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

// New returns an empty library with the default prompt templates.
func New() *Library {
	l := &Library{}
	l.Normalize()
	return l
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Normalize fills in whatever an older or hand-edited state file left out.
func (l *Library) Normalize() {
	if l.Prompts == nil {
		l.Prompts = map[string]string{}
	}
	for slot, text := range prompt.Defaults() {
		if _, ok := l.Prompts[slot]; !ok {
			l.Prompts[slot] = text
		}
	}
	for i := range l.Folders {
		if l.Folders[i].ID == "" {
			l.Folders[i].ID = newID()
		}
	}
	for i := range l.Files {
		f := &l.Files[i]
		if f.ID == "" {
			f.ID = newID()
		}
		if f.Type == "" {
			f.Type, _ = TypeForPath(f.Path)
		}
		if f.TotalChapters < 0 {
			f.TotalChapters = 0
		}
		if f.FolderID != "" {
			if _, ok := l.folderByID(f.FolderID); !ok {
				f.FolderID = ""
			}
		}
		if f.Chapters == nil {
			f.Chapters = []Chapter{}
		}
		for j := range f.Chapters {
			if f.Chapters[j].ID == "" {
				f.Chapters[j].ID = newID()
			}
			if f.Type == TXT {
				f.Chapters[j].PageRange = ""
			}
		}
	}
	if l.View == "" {
		l.View = ViewAll
	}
	if l.View != ViewAll && l.View != ViewUncategorized {
		if _, ok := l.folderByID(l.View); !ok {
			l.View = ViewAll
		}
	}
}

// Clone returns a deep copy so a mutation can be attempted and discarded.
func (l *Library) Clone() *Library {
	c := &Library{
		Folders: append([]Folder(nil), l.Folders...),
		Files:   make([]File, len(l.Files)),
		Prompts: make(map[string]string, len(l.Prompts)),
		View:    l.View,
	}
	for i, f := range l.Files {
		f.Chapters = append(make([]Chapter, 0, len(f.Chapters)), f.Chapters...)
		c.Files[i] = f
	}
	for k, v := range l.Prompts {
		c.Prompts[k] = v
	}
	return c
}

// --- folders ---

func (l *Library) folderByID(id string) (Folder, bool) {
	for _, f := range l.Folders {
		if f.ID == id {
			return f, true
		}
	}
	return Folder{}, false
}

// ResolveFolder finds a folder by exact name or id.
func (l *Library) ResolveFolder(ref string) (Folder, error) {
	ref = strings.TrimSpace(ref)
	for _, f := range l.Folders {
		if f.Name == ref || f.ID == ref {
			return f, nil
		}
	}
	return Folder{}, fmt.Errorf("folder %q: %w", ref, ErrNotFound)
}

// SortedFolders lists folders by name, case-insensitively.
func (l *Library) SortedFolders() []Folder {
	out := append([]Folder(nil), l.Folders...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (l *Library) checkFolderName(name, except string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("folder name cannot be empty: %w", ErrInvalid)
	}
	for _, f := range l.Folders {
		if f.Name == name && f.ID != except {
			return "", fmt.Errorf("folder %q: %w", name, ErrDuplicate)
		}
	}
	return name, nil
}

func (l *Library) AddFolder(name string) (Folder, error) {
	name, err := l.checkFolderName(name, "")
	if err != nil {
		return Folder{}, err
	}
	f := Folder{ID: newID(), Name: name}
	l.Folders = append(l.Folders, f)
	l.Folders = l.SortedFolders()
	return f, nil
}

func (l *Library) RenameFolder(ref, name string) error {
	f, err := l.ResolveFolder(ref)
	if err != nil {
		return err
	}
	name, err = l.checkFolderName(name, f.ID)
	if err != nil {
		return err
	}
	for i := range l.Folders {
		if l.Folders[i].ID == f.ID {
			l.Folders[i].Name = name
		}
	}
	l.Folders = l.SortedFolders()
	return nil
}

// RemoveFolder deletes a folder; its files become uncategorized. It returns
// how many files were moved.
func (l *Library) RemoveFolder(ref string) (int, error) {
	f, err := l.ResolveFolder(ref)
	if err != nil {
		return 0, err
	}
	kept := l.Folders[:0]
	for _, x := range l.Folders {
		if x.ID != f.ID {
			kept = append(kept, x)
		}
	}
	l.Folders = kept
	moved := 0
	for i := range l.Files {
		if l.Files[i].FolderID == f.ID {
			l.Files[i].FolderID = ""
			moved++
		}
	}
	if l.View == f.ID {
		l.View = ViewAll
	}
	return moved, nil
}

// --- views ---

// ResolveView maps "all", "uncategorized" or a folder reference to a view id.
func (l *Library) ResolveView(ref string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(ref)) {
	case "", "all", strings.ToLower(ViewAll):
		return ViewAll, nil
	case "uncategorized", strings.ToLower(ViewUncategorized):
		return ViewUncategorized, nil
	}
	f, err := l.ResolveFolder(ref)
	if err != nil {
		return "", err
	}
	return f.ID, nil
}

func (l *Library) SetView(ref string) error {
	v, err := l.ResolveView(ref)
	if err != nil {
		return err
	}
	l.View = v
	return nil
}

// ViewName is the display name of a view.
func (l *Library) ViewName(view string) string {
	switch view {
	case ViewAll:
		return "All Files"
	case ViewUncategorized:
		return "Uncategorized"
	}
	if f, ok := l.folderByID(view); ok {
		return f.Name
	}
	return view
}

// VisibleFiles returns the files shown by view, in display order.
func (l *Library) VisibleFiles(view string) []File {
	var out []File
	for _, f := range l.Files {
		switch view {
		case ViewAll:
		case ViewUncategorized:
			if f.FolderID != "" {
				continue
			}
		default:
			if f.FolderID != view {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// --- files ---

// AddFile appends a file to the library. The path is stored cleaned, not
// resolved; callers pass absolute paths.
func (l *Library) AddFile(path, folderID string) (File, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	typ, ok := TypeForPath(path)
	if !ok {
		return File{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	for _, f := range l.Files {
		if f.Path == path {
			return File{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrDuplicate)
		}
	}
	if folderID != "" {
		if _, ok := l.folderByID(folderID); !ok {
			return File{}, fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}
	}
	f := File{ID: newID(), Path: path, Type: typ, FolderID: folderID, Chapters: []Chapter{}}
	l.Files = append(l.Files, f)
	return f, nil
}

// ResolveFile finds a file by id, unique id prefix, path or unique filename
// and returns its index.
func (l *Library) ResolveFile(ref string) (int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, fmt.Errorf("empty file reference: %w", ErrInvalid)
	}
	clean := filepath.Clean(ref)
	for i, f := range l.Files {
		if f.ID == ref || f.Path == clean {
			return i, nil
		}
	}
	match := -1
	for i, f := range l.Files {
		if strings.HasPrefix(f.ID, ref) || f.Filename() == ref {
			if match >= 0 {
				return -1, fmt.Errorf("file %q: %w", ref, ErrAmbiguous)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("file %q: %w", ref, ErrNotFound)
	}
	return match, nil
}

func (l *Library) File(ref string) (File, error) {
	i, err := l.ResolveFile(ref)
	if err != nil {
		return File{}, err
	}
	return l.Files[i], nil
}

func (l *Library) RemoveFile(ref string) (File, error) {
	i, err := l.ResolveFile(ref)
	if err != nil {
		return File{}, err
	}
	f := l.Files[i]
	l.Files = append(l.Files[:i], l.Files[i+1:]...)
	return f, nil
}

// MoveFile puts a file into a folder; an empty or "uncategorized" folder
// reference removes it from any folder.
func (l *Library) MoveFile(ref, folderRef string) error {
	i, err := l.ResolveFile(ref)
	if err != nil {
		return err
	}
	folderID := ""
	switch strings.ToLower(strings.TrimSpace(folderRef)) {
	case "", "uncategorized", "-":
	default:
		f, err := l.ResolveFolder(folderRef)
		if err != nil {
			return err
		}
		folderID = f.ID
	}
	l.Files[i].FolderID = folderID
	return nil
}

// ClearVisible removes every file shown by view and returns them.
func (l *Library) ClearVisible(view string) []File {
	gone := map[string]bool{}
	for _, f := range l.VisibleFiles(view) {
		gone[f.ID] = true
	}
	var removed []File
	kept := l.Files[:0]
	for _, f := range l.Files {
		if gone[f.ID] {
			removed = append(removed, f)
			continue
		}
		kept = append(kept, f)
	}
	l.Files = kept
	return removed
}

func (l *Library) SetTotalChapters(ref string, n int) error {
	if n < 0 {
		return fmt.Errorf("total chapters must be >= 0, got %d: %w", n, ErrInvalid)
	}
	i, err := l.ResolveFile(ref)
	if err != nil {
		return err
	}
	l.Files[i].TotalChapters = n
	return nil
}

// --- chapters ---

func checkRange(f File, pageRange string) (string, error) {
	pageRange = strings.TrimSpace(pageRange)
	if pageRange == "" {
		return "", nil
	}
	if f.Type != PDF {
		return "", fmt.Errorf("%s: page ranges apply to PDF files only: %w", f.Filename(), ErrInvalid)
	}
	if _, err := pagerange.Parse(pageRange); err != nil {
		return "", err
	}
	return pageRange, nil
}

func (l *Library) AddChapter(fileRef, name, pageRange string) (Chapter, error) {
	i, err := l.ResolveFile(fileRef)
	if err != nil {
		return Chapter{}, err
	}
	pr, err := checkRange(l.Files[i], pageRange)
	if err != nil {
		return Chapter{}, err
	}
	c := Chapter{ID: newID(), Name: strings.TrimSpace(name), PageRange: pr}
	l.Files[i].Chapters = append(l.Files[i].Chapters, c)
	return c, nil
}

func (l *Library) findChapter(ref string) (int, int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1, -1, fmt.Errorf("empty chapter reference: %w", ErrInvalid)
	}
	fi, ci := -1, -1
	for i, f := range l.Files {
		for j, c := range f.Chapters {
			if c.ID == ref {
				return i, j, nil
			}
			if strings.HasPrefix(c.ID, ref) {
				if fi >= 0 {
					return -1, -1, fmt.Errorf("chapter %q: %w", ref, ErrAmbiguous)
				}
				fi, ci = i, j
			}
		}
	}
	if fi < 0 {
		return -1, -1, fmt.Errorf("chapter %q: %w", ref, ErrNotFound)
	}
	return fi, ci, nil
}

// FindChapter returns a chapter and the file that owns it.
func (l *Library) FindChapter(ref string) (File, Chapter, error) {
	fi, ci, err := l.findChapter(ref)
	if err != nil {
		return File{}, Chapter{}, err
	}
	return l.Files[fi], l.Files[fi].Chapters[ci], nil
}

// EditChapter updates the fields that are non-nil.
func (l *Library) EditChapter(ref string, name, pageRange *string) error {
	fi, ci, err := l.findChapter(ref)
	if err != nil {
		return err
	}
	c := l.Files[fi].Chapters[ci]
	if pageRange != nil {
		pr, err := checkRange(l.Files[fi], *pageRange)
		if err != nil {
			return err
		}
		c.PageRange = pr
	}
	if name != nil {
		c.Name = strings.TrimSpace(*name)
	}
	l.Files[fi].Chapters[ci] = c
	return nil
}

func (l *Library) RemoveChapter(ref string) error {
	fi, ci, err := l.findChapter(ref)
	if err != nil {
		return err
	}
	cs := l.Files[fi].Chapters
	l.Files[fi].Chapters = append(cs[:ci], cs[ci+1:]...)
	return nil
}

// --- prompts ---

func (l *Library) Prompt(slot string) (string, error) {
	t, ok := l.Prompts[slot]
	if !ok || strings.TrimSpace(t) == "" {
		return "", fmt.Errorf("prompt template %q: %w", slot, ErrNotFound)
	}
	return t, nil
}

func (l *Library) SetPrompt(slot, text string) error {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("prompt slot cannot be empty: %w", ErrInvalid)
	}
	l.Prompts[slot] = strings.TrimSpace(text)
	return nil
}

// ResetPrompts drops custom slots and restores the defaults.
func (l *Library) ResetPrompts() {
	l.Prompts = prompt.Defaults()
}

// PromptSlots lists slot names, defaults first.
func (l *Library) PromptSlots() []string {
	order := []string{prompt.Slot1, prompt.Slot2, prompt.Slot3, prompt.SlotFullBook}
	seen := map[string]bool{}
	var out []string
	for _, s := range order {
		if _, ok := l.Prompts[s]; ok {
			out = append(out, s)
			seen[s] = true
		}
	}
	var extra []string
	for s := range l.Prompts {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
