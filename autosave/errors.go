package autosave

import "fmt"

// FailureKind classifies a repository call that failed.
type FailureKind int

const (
	LoadFailure FailureKind = iota + 1
	CreateFailure
	SaveFailure
	DeleteFailure
)

func (k FailureKind) String() string {
	switch k {
	case LoadFailure:
		return "load"
	case CreateFailure:
		return "create"
	case SaveFailure:
		return "save"
	case DeleteFailure:
		return "delete"
	default:
		return "unknown"
	}
}

// Failure is a non-fatal repository error reported for display. State is left
// as it was before the call.
type Failure struct {
	Kind   FailureKind
	NoteID string
	Err    error
}

func NewFailure(kind FailureKind, noteID string, err error) *Failure {
	return &Failure{Kind: kind, NoteID: noteID, Err: err}
}

func (f *Failure) Error() string {
	if f.NoteID == "" {
		return fmt.Sprintf("%s failed: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", f.Kind, f.NoteID, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }
