package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLines(t *testing.T) {
	tests := []struct {
		line string
		want Entry
	}{
		{"1 Introduction 3", Entry{"1", "Introduction", 3, 1}},
		{"1.2. Scope .......... 5", Entry{"1.2", "Scope", 5, 2}},
		{"Chapter 4: Results 40", Entry{"4", "Results", 40, 1}},
		{"IV Discussion · · · 51", Entry{"IV", "Discussion", 51, 1}},
		{"Appendix B Tables 90", Entry{"B", "Tables", 90, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseLines([]string{tt.line})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
	assert.Empty(t, ParseLines([]string{"Just a sentence without a page"}))
}

func TestBuild(t *testing.T) {
	entries := []Entry{
		{"1", "Intro", 1, 1},
		{"1.1", "Background", 2, 2},
		{"2", "Method", 5, 1},
		{"3", "Results", 9, 1},
	}

	top := Build(entries, Options{MaxDepth: 1, PageCount: 12})
	require.Len(t, top, 3)
	assert.Equal(t, Section{"1", "Intro", 1, 4, 1}, top[0])
	assert.Equal(t, Section{"2", "Method", 5, 8, 1}, top[1])
	assert.Equal(t, Section{"3", "Results", 9, 12, 1}, top[2])
	assert.Equal(t, "1 Intro", top[0].Name())
	assert.Equal(t, "1-4", top[0].Range())

	all := Build(entries, Options{MaxDepth: 2, PageCount: 12})
	require.Len(t, all, 4)
	assert.Equal(t, 1, all[0].End)

	shifted := Build(entries, Options{MaxDepth: 1, Offset: 2, PageCount: 12})
	assert.Equal(t, 3, shifted[0].Start)
	assert.Equal(t, 6, shifted[0].End)
	assert.Equal(t, 12, shifted[2].End)

	// entries past the end of the document are dropped
	short := Build(entries, Options{MaxDepth: 1, PageCount: 6})
	require.Len(t, short, 2)
}

func TestDetect(t *testing.T) {
	pages := []string{
		"A Book\nby Someone",
		"Table of Contents\n1 Getting Started 3\n2 Going Further 6",
		"3 Wrapping Up 9\n4 Index 12",
		"Chapter text mentioning 2 things on page 3",
		"more text",
	}
	got := Detect(pages, Options{ScanPages: 4, MaxDepth: 1, PageCount: 14})
	require.Len(t, got, 4)
	assert.Equal(t, "Getting Started", got[0].Title)
	assert.Equal(t, 3, got[0].Start)
	assert.Equal(t, 5, got[0].End)
	assert.Equal(t, "4 Index", got[3].Name())
	assert.Equal(t, "12-14", got[3].Range())

	assert.Nil(t, Detect([]string{"no contents here"}, Options{}))
}
