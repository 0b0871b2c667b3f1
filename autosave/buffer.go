package autosave

import "github.com/electr1fy0/scribe/storage"

// Draft is the editable part of a note.
type Draft struct {
	Title   string
	Content string
}

// Buffer holds the draft shown to the user next to the baseline last
// confirmed as persisted. Only user input touches the draft; only a load or a
// completed save touches the baseline.
type Buffer struct {
	baseline Draft
	draft    Draft
}

func (b *Buffer) Load(n storage.Note) {
	d := Draft{Title: n.Title, Content: n.Content}
	b.baseline = d
	b.draft = d
}

// SetTitle reports whether the title actually changed.
func (b *Buffer) SetTitle(title string) bool {
	if b.draft.Title == title {
		return false
	}
	b.draft.Title = title
	return true
}

// SetContent reports whether the content actually changed.
func (b *Buffer) SetContent(content string) bool {
	if b.draft.Content == content {
		return false
	}
	b.draft.Content = content
	return true
}

func (b *Buffer) Reset() {
	b.baseline = Draft{}
	b.draft = Draft{}
}

func (b *Buffer) Draft() Draft    { return b.draft }
func (b *Buffer) Baseline() Draft { return b.baseline }

// Dirty is derived on every call and never cached.
func (b *Buffer) Dirty() bool { return b.draft != b.baseline }

func (b *Buffer) advance(persisted Draft) { b.baseline = persisted }
