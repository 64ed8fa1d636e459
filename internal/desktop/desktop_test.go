package desktop

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	stdin string
	name  string
	args  []string
}

func fakeSystem(goos string, tools ...string) (*System, *[]call) {
	var calls []call
	have := map[string]bool{}
	for _, t := range tools {
		have[t] = true
	}
	s := &System{
		goos: goos,
		run: func(stdin, name string, args ...string) error {
			calls = append(calls, call{stdin, name, args})
			return nil
		},
		lookPath: func(tool string) (string, error) {
			if have[tool] {
				return "/usr/bin/" + tool, nil
			}
			return "", errors.New("not found")
		},
	}
	return s, &calls
}

func TestHotkey(t *testing.T) {
	tests := []struct {
		goos string
		keys []string
		name string
		last string
	}{
		{"linux", []string{"ctrl", "v"}, "xdotool", "ctrl+v"},
		{"linux", []string{"ctrl", "enter"}, "xdotool", "ctrl+Return"},
		{"windows", []string{"ctrl", "enter"}, "powershell", "Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('^{ENTER}')"},
		{"darwin", []string{"ctrl", "v"}, "osascript", `tell application "System Events" to keystroke "v" using {command down}`},
		{"darwin", []string{"ctrl", "enter"}, "osascript", `tell application "System Events" to key code 36 using {command down}`},
	}
	for _, tt := range tests {
		t.Run(tt.goos+" "+strings.Join(tt.keys, "+"), func(t *testing.T) {
			s, calls := fakeSystem(tt.goos)
			require.NoError(t, s.Hotkey(tt.keys...))
			require.Len(t, *calls, 1)
			c := (*calls)[0]
			assert.Equal(t, tt.name, c.name)
			assert.Equal(t, tt.last, c.args[len(c.args)-1])
		})
	}
}

func TestOpen(t *testing.T) {
	for goos, tool := range map[string]string{"linux": "xdg-open", "darwin": "open", "windows": "rundll32"} {
		s, calls := fakeSystem(goos)
		require.NoError(t, s.Open("https://example.com"))
		assert.Equal(t, tool, (*calls)[0].name)
		args := (*calls)[0].args
		assert.Equal(t, "https://example.com", args[len(args)-1])
	}
}

func TestWriteFiles(t *testing.T) {
	s, calls := fakeSystem("linux", "xclip")
	assert.True(t, s.SupportsFiles())
	require.NoError(t, s.WriteFiles("/tmp/a.txt"))
	c := (*calls)[0]
	assert.Equal(t, "xclip", c.name)
	assert.Equal(t, "file:///tmp/a.txt\n", c.stdin)

	s, calls = fakeSystem("windows", "powershell")
	assert.True(t, s.SupportsFiles())
	require.NoError(t, s.WriteFiles(`C:\docs\it's.txt`))
	args := (*calls)[0].args
	assert.Contains(t, args[len(args)-1], "Set-Clipboard -Path '")
	assert.Contains(t, args[len(args)-1], "it''s.txt'")

	s, _ = fakeSystem("linux")
	assert.False(t, s.SupportsFiles())

	s, _ = fakeSystem("plan9")
	assert.ErrorIs(t, s.WriteFiles("/a"), ErrUnsupported)
}

func TestWriteText(t *testing.T) {
	var got string
	orig := clipboardWrite
	t.Cleanup(func() { clipboardWrite = orig })
	clipboardWrite = func(s string) error {
		got = s
		return nil
	}
	s, _ := fakeSystem("linux")
	require.NoError(t, s.WriteText("hello"))
	assert.Equal(t, "hello", got)

	clipboardWrite = func(string) error { return errors.New("no display") }
	assert.ErrorContains(t, s.WriteText("x"), "no display")
}

func TestCheck(t *testing.T) {
	s, _ := fakeSystem("linux", "xdotool")
	err := s.Check()
	require.Error(t, err)
	// clipboard.Unsupported depends on the host; only the tool lookup is ours
	assert.True(t, errors.Is(err, ErrUnsupported) || strings.Contains(err.Error(), "xdg-open"))
	s, _ = fakeSystem("windows", "powershell")
	err = s.Check()
	if err != nil {
		assert.ErrorIs(t, err, ErrUnsupported)
	}
}
