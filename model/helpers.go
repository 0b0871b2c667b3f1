package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/electr1fy0/scribe/storage"
)

// exportNotes writes each note to <title>.md under a fresh timestamped
// directory inside base and returns that directory.
func exportNotes(base string, notes []storage.Note, now time.Time) (string, error) {
	dir := filepath.Join(base, fmt.Sprintf("scribe_export_%d", now.Unix()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	used := make(map[string]int)
	for _, n := range notes {
		name := exportName(displayTitle(n.Title, n.Content))
		if c := used[name]; c > 0 {
			used[name]++
			name = fmt.Sprintf("%s_%d", name, c)
		} else {
			used[name] = 1
		}
		path := filepath.Join(dir, name+".md")
		if err := os.WriteFile(path, []byte(n.Content), 0o644); err != nil {
			return "", fmt.Errorf("export %s: %w", n.ID, err)
		}
	}
	return dir, nil
}

func exportName(title string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", ":", "_", "\x00", "")
	name := strings.TrimSpace(r.Replace(title))
	if name == "" || name == "." || name == ".." {
		return "untitled"
	}
	return name
}
