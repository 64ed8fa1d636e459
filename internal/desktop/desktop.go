// Package desktop injects input into the local desktop session: clipboard
// contents, hotkeys and opening a browser tab. Nothing here can observe what
// the receiving application does with the input.
package desktop

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog/log"
)

var ErrUnsupported = errors.New("not supported on this platform")

type Clipboard interface {
	WriteText(s string) error
	// WriteFiles places file objects (not their contents) on the clipboard.
	WriteFiles(paths ...string) error
	SupportsFiles() bool
}

type Keyboard interface {
	// Hotkey presses keys together, e.g. Hotkey("ctrl", "v").
	Hotkey(keys ...string) error
}

type Browser interface {
	Open(url string) error
}

// runner executes an external tool, feeding stdin when non-empty.
type runner func(stdin, name string, args ...string) error

func execRun(stdin, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

var clipboardWrite = clipboard.WriteAll

// System drives the real desktop through the platform's own tools.
type System struct {
	goos     string
	run      runner
	lookPath func(string) (string, error)
}

func New() *System {
	return &System{goos: runtime.GOOS, run: execRun, lookPath: exec.LookPath}
}

func (s *System) has(tool string) bool {
	_, err := s.lookPath(tool)
	return err == nil
}

// Check reports the first missing tool needed for hotkeys and the browser.
func (s *System) Check() error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: %w", ErrUnsupported)
	}
	var need []string
	switch s.goos {
	case "linux", "freebsd", "openbsd":
		need = []string{"xdotool", "xdg-open"}
	case "darwin":
		need = []string{"osascript", "open"}
	case "windows":
		need = []string{"powershell"}
	default:
		return fmt.Errorf("%s: %w", s.goos, ErrUnsupported)
	}
	for _, tool := range need {
		if !s.has(tool) {
			return fmt.Errorf("%s not found in PATH", tool)
		}
	}
	return nil
}

func (s *System) WriteText(text string) error {
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("copy text to clipboard: %w", err)
	}
	log.Debug().Int("chars", len(text)).Msg("text copied to clipboard")
	return nil
}

func (s *System) SupportsFiles() bool {
	switch s.goos {
	case "windows":
		return s.has("powershell")
	case "darwin":
		return s.has("osascript")
	case "linux", "freebsd", "openbsd":
		return s.has("xclip")
	}
	return false
}

func (s *System) WriteFiles(paths ...string) error {
	if len(paths) == 0 {
		return errors.New("no files to copy")
	}
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		abs[i] = a
	}
	var err error
	switch s.goos {
	case "windows":
		quoted := make([]string, len(abs))
		for i, p := range abs {
			quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
		}
		err = s.run("", "powershell", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command",
			"Set-Clipboard -Path "+strings.Join(quoted, ","))
	case "darwin":
		files := make([]string, len(abs))
		for i, p := range abs {
			files[i] = fmt.Sprintf("POSIX file %q", p)
		}
		err = s.run("", "osascript", "-e", "set the clipboard to {"+strings.Join(files, ", ")+"}")
	case "linux", "freebsd", "openbsd":
		uris := make([]string, len(abs))
		for i, p := range abs {
			uris[i] = "file://" + filepath.ToSlash(p)
		}
		err = s.run(strings.Join(uris, "\n")+"\n", "xclip", "-selection", "clipboard", "-t", "text/uri-list")
	default:
		return fmt.Errorf("copy files: %w", ErrUnsupported)
	}
	if err != nil {
		return fmt.Errorf("copy files to clipboard: %w", err)
	}
	log.Debug().Strs("files", abs).Msg("files copied to clipboard")
	return nil
}

func (s *System) Open(url string) error {
	var err error
	switch s.goos {
	case "windows":
		err = s.run("", "rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		err = s.run("", "open", url)
	default:
		err = s.run("", "xdg-open", url)
	}
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

func (s *System) Hotkey(keys ...string) error {
	if len(keys) == 0 {
		return errors.New("no keys given")
	}
	var err error
	switch s.goos {
	case "windows":
		err = s.run("", "powershell", "-NoProfile", "-Command",
			"Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('"+sendKeys(keys)+"')")
	case "darwin":
		err = s.run("", "osascript", "-e", appleScriptKeys(keys))
	default:
		err = s.run("", "xdotool", "key", "--clearmodifiers", xdotoolKeys(keys))
	}
	if err != nil {
		return fmt.Errorf("hotkey %s: %w", strings.Join(keys, "+"), err)
	}
	return nil
}

func xdotoolKeys(keys []string) string {
	out := make([]string, len(keys))
	for i, k := range keys {
		switch strings.ToLower(k) {
		case "enter", "return":
			out[i] = "Return"
		case "tab":
			out[i] = "Tab"
		default:
			out[i] = strings.ToLower(k)
		}
	}
	return strings.Join(out, "+")
}

func sendKeys(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		switch strings.ToLower(k) {
		case "ctrl":
			b.WriteString("^")
		case "shift":
			b.WriteString("+")
		case "alt":
			b.WriteString("%")
		case "enter", "return":
			b.WriteString("{ENTER}")
		case "tab":
			b.WriteString("{TAB}")
		default:
			b.WriteString(strings.ToLower(k))
		}
	}
	return b.String()
}

// appleScriptKeys maps ctrl to the command key, which is what paste and
// submit use on macOS.
func appleScriptKeys(keys []string) string {
	var mods []string
	key := ""
	for _, k := range keys {
		switch strings.ToLower(k) {
		case "ctrl", "cmd", "command":
			mods = append(mods, "command down")
		case "shift":
			mods = append(mods, "shift down")
		case "alt", "option":
			mods = append(mods, "option down")
		default:
			key = strings.ToLower(k)
		}
	}
	stroke := fmt.Sprintf("keystroke %q", key)
	switch key {
	case "enter", "return":
		stroke = "key code 36"
	case "tab":
		stroke = "key code 48"
	}
	if len(mods) > 0 {
		stroke += " using {" + strings.Join(mods, ", ") + "}"
	}
	return `tell application "System Events" to ` + stroke
}
