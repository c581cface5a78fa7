package model

// Bubble Tea message types

// Operation names a catalog request.
type Operation int

const (
	OpLoad Operation = iota
	OpCreate
	OpUpdate
	OpDelete
	OpLookup
)

func (o Operation) String() string {
	switch o {
	case OpLoad:
		return "load"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// ErrorMsg reports a failed catalog request.
type ErrorMsg struct {
	Op  Operation
	Key string // ISBN for keyed operations
	Err error
	// Session is the form session of a create or update.
	Session int
}

// BooksLoadedMsg is sent when the full listing arrives.
type BooksLoadedMsg struct {
	Books []Book
}

// BookCreatedMsg is sent when an add succeeds.
type BookCreatedMsg struct {
	Book    Book
	Session int
}

// BookUpdatedMsg is sent when an update succeeds.
type BookUpdatedMsg struct {
	Book    Book
	Session int
}

// BookDeletedMsg is sent when a delete succeeds.
type BookDeletedMsg struct {
	ISBN string
}

// BookFetchedMsg is sent when a lookup by key succeeds.
type BookFetchedMsg struct {
	Key  string
	Book Book
}

// FormSubmitMsg is sent when the operator submits the entry form.
type FormSubmitMsg struct{}

// FormCancelledMsg is sent when a form is cancelled.
type FormCancelledMsg struct{}

// LookupRequestedMsg is sent when the operator asks for a single entry.
type LookupRequestedMsg struct {
	Key string
}

// Screen represents different app screens.
type Screen int

const (
	ScreenBooks Screen = iota
	ScreenForm
	ScreenLookup
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
