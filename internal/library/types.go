package library

import (
	"path/filepath"
	"strings"
)

type FileType string

const (
	PDF FileType = "pdf"
	TXT FileType = "txt"
)

// Views that are not folders.
const (
	ViewAll           = "__ALL_FILES__"
	ViewUncategorized = "__UNCATEGORIZED__"
)

type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Chapter is a named slice of a file. PageRange is only meaningful for PDFs
// and is empty for TXT chapters; an empty range on a PDF means the whole
// document.
type Chapter struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PageRange string `json:"page_range,omitempty"`
}

type File struct {
	ID            string    `json:"id"`
	Path          string    `json:"path"`
	Type          FileType  `json:"type"`
	FolderID      string    `json:"folder_id,omitempty"`
	TotalChapters int       `json:"total_chapters,omitempty"`
	Chapters      []Chapter `json:"chapters"`
}

func (f File) Filename() string { return filepath.Base(f.Path) }

// FullBook reports whether the file takes part in Full Book runs.
func (f File) FullBook() bool { return f.TotalChapters > 0 }

// Library is the whole persisted state: folders, files in display order,
// prompt templates and the selected view.
type Library struct {
	Folders []Folder          `json:"folders"`
	Files   []File            `json:"files"`
	Prompts map[string]string `json:"prompts"`
	View    string            `json:"view"`
}

// TypeForPath derives the file type from the extension.
func TypeForPath(path string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDF, true
	case ".txt":
		return TXT, true
	}
	return "", false
}
