package utils

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Editor resolves the user's editor: $VISUAL, $EDITOR, then nvim or vi from
// PATH.
func Editor() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if ed := strings.TrimSpace(os.Getenv(env)); ed != "" {
			return ed
		}
	}
	if p, err := exec.LookPath("nvim"); err == nil {
		return p
	}
	if p, err := exec.LookPath("vi"); err == nil {
		return p
	}
	return "ed"
}

// EditorCommand writes initial to a temp file and returns a command that
// opens it in the user's editor, along with the file path. The caller runs
// the command (the TUI hands it to tea.ExecProcess) and then collects the
// result with ReadEdited.
func EditorCommand(initial string) (*exec.Cmd, string, error) {
	tmp, err := os.CreateTemp("", "scribe-note-*.md")
	if err != nil {
		return nil, "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	if _, err := tmp.WriteString(initial); err != nil {
		tmp.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return nil, "", fmt.Errorf("write temp file: %w", err)
	}

	// $EDITOR may carry arguments, e.g. "code --wait".
	fields := strings.Fields(Editor())
	args := append(fields[1:], path)
	return exec.Command(fields[0], args...), path, nil
}

// ReadEdited returns the edited file's content and removes it.
func ReadEdited(path string) (string, error) {
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edited note: %w", err)
	}
	return string(b), nil
}
