package model

import (
	"unicode"
	"unicode/utf8"
)

// The bubbles inputs sanitize what they are given: tabs and line breaks are
// rewritten and control runes dropped. These report how one draft rune
// shows up in the widget's Value.

func textareaRunes(r rune) []rune {
	switch {
	case r == '\r' || r == '\n':
		return []rune{'\n'}
	case r == '\t':
		return []rune("    ")
	case r == utf8.RuneError || unicode.IsControl(r):
		return nil
	}
	return []rune{r}
}

func textinputRunes(r rune) []rune {
	switch {
	case r == '\r' || r == '\n' || r == '\t':
		return []rune{' '}
	case r == utf8.RuneError || unicode.IsControl(r):
		return nil
	}
	return []rune{r}
}

// applyEdit carries the change a widget made (before to after) over to
// draft, where before is how the widget rendered draft. Runes outside the
// edited span keep their original form, so a tab or CRLF the user never
// touched is not rewritten.
func applyEdit(draft, before, after string, render func(rune) []rune) string {
	d, o, n := []rune(draft), []rune(before), []rune(after)

	// starts[i] is the widget offset of d[i]; starts[len(d)] is the end.
	starts := make([]int, len(d)+1)
	pos := 0
	for i, r := range d {
		starts[i] = pos
		pos += len(render(r))
	}
	starts[len(d)] = pos

	p := 0
	for p < len(o) && p < len(n) && o[p] == n[p] {
		p++
	}
	s := 0
	for s < len(o)-p && s < len(n)-p && o[len(o)-1-s] == n[len(n)-1-s] {
		s++
	}
	lo, hi := p, len(o)-s

	// Widen the span to whole draft runes.
	from := 0
	for i := len(d); i >= 0; i-- {
		if starts[i] <= lo {
			from = i
			break
		}
	}
	to := len(d)
	for j := 0; j <= len(d); j++ {
		if starts[j] >= hi {
			to = j
			break
		}
	}
	if to < from {
		to = from
	}
	// Keep CRLF pairs whole.
	if from > 0 && from < len(d) && d[from-1] == '\r' && d[from] == '\n' {
		from--
	}
	if to > 0 && to < len(d) && d[to-1] == '\r' && d[to] == '\n' {
		to++
	}
	wLo, wHi := starts[from], starts[to]
	if wHi > len(o) {
		wHi = len(o)
	}
	end := len(n) - (len(o) - wHi)

	out := make([]rune, 0, len(d)+len(n)-len(o))
	out = append(out, d[:from]...)
	out = append(out, n[wLo:end]...)
	out = append(out, d[to:]...)
	return string(out)
}
