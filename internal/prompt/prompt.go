package prompt

import (
	"fmt"
	"strings"
)

// Placeholder is replaced by the chapter name(s) an item is about.
const Placeholder = "{CHAPTERS}"

const (
	Unspecified = "Unspecified Chapter"
	EntireFile  = "Entire File"
)

// Template slots every library starts with.
const (
	Slot1        = "prompt1"
	Slot2        = "prompt2"
	Slot3        = "prompt3"
	SlotFullBook = "full_book"
)

// Defaults returns the built-in template for each default slot.
func Defaults() map[string]string {
	return map[string]string{
		Slot1:        "Please summarize the '" + Placeholder + "' section from the attached file.",
		Slot2:        "Analyze the key points of the '" + Placeholder + "' section in the attached file.",
		Slot3:        "Extract actionable items from the '" + Placeholder + "' section in the attached file.",
		SlotFullBook: "Please provide a comprehensive summary for the entire attached file, considering the following sections: " + Placeholder + ".",
	}
}

// Render substitutes every placeholder in tmpl with names joined by ", ".
// Blank names become Unspecified. A template without the placeholder is
// returned unchanged.
func Render(tmpl string, names ...string) string {
	if !strings.Contains(tmpl, Placeholder) {
		return tmpl
	}
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			n = Unspecified
		}
		clean = append(clean, n)
	}
	if len(clean) == 0 {
		clean = append(clean, Unspecified)
	}
	return strings.ReplaceAll(tmpl, Placeholder, strings.Join(clean, ", "))
}

// PartLabel names chunk i (1-based) of a Full Book run.
func PartLabel(i, n int) string {
	return fmt.Sprintf("Part %d of %d", i, n)
}

// HasPlaceholder reports whether tmpl references the chapter names at all.
func HasPlaceholder(tmpl string) bool {
	return strings.Contains(tmpl, Placeholder)
}
