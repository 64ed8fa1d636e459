package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

// The Tkinter tool kept its templates in a separate file next to the state.
const legacyPromptFile = "file_processor_template_v9.7.json"

// legacyPromptKeys maps template keys of that file to slots.
var legacyPromptKeys = map[string]string{
	"prompt1":          prompt.Slot1,
	"prompt2":          prompt.Slot2,
	"prompt3":          prompt.Slot3,
	"full_book_prompt": prompt.SlotFullBook,
}

// Layout written by the Tkinter tool (file_processor_state_v9.x.json).
type legacyState struct {
	FileItems        []legacyFile     `json:"file_items"`
	PDFItems         []legacyFile     `json:"pdf_items"`
	Folders          []library.Folder `json:"folders"`
	SelectedFolderID *string          `json:"selected_folder_id"`
}

type legacyFile struct {
	Path          string        `json:"path"`
	Type          string        `json:"type"`
	FolderID      *string       `json:"folder_id"`
	TotalChapters int           `json:"total_chapters_for_full_book"`
	Blocks        []legacyBlock `json:"chapter_blocks"`
}

type legacyBlock struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	PageRanges *string `json:"page_ranges_str"`
	PageStart  int     `json:"page_start"`
	PageEnd    int     `json:"page_end"`
}

func migrateLegacy(data []byte) (*library.Library, error) {
	var st legacyState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	items := st.FileItems
	if items == nil {
		items = st.PDFItems
	}
	lib := &library.Library{Folders: st.Folders}
	for _, it := range items {
		typ := library.FileType(it.Type)
		if typ == "" {
			typ, _ = library.TypeForPath(it.Path)
		}
		if typ != library.PDF && typ != library.TXT {
			continue
		}
		f := library.File{
			Path:          it.Path,
			Type:          typ,
			TotalChapters: it.TotalChapters,
			Chapters:      []library.Chapter{},
		}
		if it.FolderID != nil {
			f.FolderID = *it.FolderID
		}
		for _, b := range it.Blocks {
			f.Chapters = append(f.Chapters, library.Chapter{
				ID:        b.ID,
				Name:      b.Text,
				PageRange: legacyRange(b),
			})
		}
		lib.Files = append(lib.Files, f)
	}
	if st.SelectedFolderID != nil {
		lib.View = *st.SelectedFolderID
	}
	return lib, nil
}

// legacyRange converts the oldest page_start/page_end pair when no range
// string was stored.
func legacyRange(b legacyBlock) string {
	if b.PageRanges != nil {
		return *b.PageRanges
	}
	switch {
	case b.PageStart > 0 && b.PageEnd > 0 && b.PageStart != b.PageEnd:
		return fmt.Sprintf("%d-%d", b.PageStart, b.PageEnd)
	case b.PageStart > 0:
		return fmt.Sprintf("%d", b.PageStart)
	}
	return ""
}

// importLegacyPrompts copies templates from the old prompt file into lib.
// A missing file keeps the defaults; an unreadable one is logged and
// ignored, as the old tool did.
func importLegacyPrompts(lib *library.Library, path string) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	var loaded map[string]string
	if err == nil {
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("legacy prompt file ignored")
		return
	}
	n := 0
	for key, slot := range legacyPromptKeys {
		if text, ok := loaded[key]; ok {
			lib.Prompts[slot] = text
			n++
		}
	}
	log.Debug().Str("path", path).Int("templates", n).Msg("imported legacy prompts")
}
