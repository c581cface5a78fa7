package model

import "time"

// Book represents a catalog entry. ISBN is the unique key and never changes once persisted.
type Book struct {
	ISBN   string  `json:"isbn"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Price  float64 `json:"price"`
}

// BookUpdate represents the fields an update may change. The ISBN travels in the request path.
type BookUpdate struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Price  float64 `json:"price"`
}

// Category classifies a notification.
type Category int

const (
	CategorySuccess Category = iota
	CategoryError
	CategoryInfo
)

func (c Category) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryError:
		return "error"
	case CategoryInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Notification is a transient operator message.
type Notification struct {
	Text      string
	Category  Category
	ExpiresAt time.Time
}

// LookupResult holds the outcome of the most recent fetch by key.
// Book is nil when the key was not found.
type LookupResult struct {
	Key  string
	Book *Book
}

// Found reports whether the lookup produced an entry.
func (r LookupResult) Found() bool {
	return r.Book != nil
}
