package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormMode is the mode of the entry form.
type FormMode int

const (
	FormAdd FormMode = iota
	FormEdit
)

func (m FormMode) String() string {
	if m == FormEdit {
		return "edit"
	}
	return "add"
}

// Draft field names, in validation order.
const (
	FieldISBN   = "isbn"
	FieldTitle  = "title"
	FieldAuthor = "author"
	FieldPrice  = "price"
)

// Fields lists the draft fields in validation order.
var Fields = []string{FieldISBN, FieldTitle, FieldAuthor, FieldPrice}

// Draft is the in-progress, possibly invalid form content.
type Draft struct {
	ISBN   string
	Title  string
	Author string
	Price  string
}

// Get returns the value of the named field.
func (d Draft) Get(name string) string {
	switch name {
	case FieldISBN:
		return d.ISBN
	case FieldTitle:
		return d.Title
	case FieldAuthor:
		return d.Author
	case FieldPrice:
		return d.Price
	default:
		return ""
	}
}

// With returns a copy of d with one field replaced. Unknown names leave d unchanged.
func (d Draft) With(name, value string) Draft {
	switch name {
	case FieldISBN:
		d.ISBN = value
	case FieldTitle:
		d.Title = value
	case FieldAuthor:
		d.Author = value
	case FieldPrice:
		d.Price = value
	}
	return d
}

// DraftFromBook fills a draft from a persisted entry.
func DraftFromBook(b Book) Draft {
	return Draft{
		ISBN:   b.ISBN,
		Title:  b.Title,
		Author: b.Author,
		Price:  strconv.FormatFloat(b.Price, 'f', -1, 64),
	}
}

// Validation failure reasons.
const (
	ReasonRequired   = "required"
	ReasonNotNumeric = "not numeric"
)

// ValidationError reports the first draft field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == ReasonNotNumeric {
		return "Price must be a valid number."
	}
	return fmt.Sprintf("Please fill out the %s field.", e.Field)
}

// Validate checks isbn, title, author and price in that order and stops at the first failure.
func Validate(d Draft) error {
	for _, name := range Fields {
		if strings.TrimSpace(d.Get(name)) == "" {
			return &ValidationError{Field: name, Reason: ReasonRequired}
		}
	}
	if _, err := parsePrice(d.Price); err != nil {
		return &ValidationError{Field: FieldPrice, Reason: ReasonNotNumeric}
	}
	return nil
}

func parsePrice(s string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, fmt.Errorf("price out of range: %s", s)
	}
	return p, nil
}

// Submission is a validated form payload. Book is set in add mode, Changes in edit mode.
type Submission struct {
	Mode    FormMode
	ISBN    string
	Book    *Book
	Changes *BookUpdate
}

// BuildSubmission validates d and shapes it for the given mode.
// In edit mode the ISBN only addresses the entry; it is not part of the body and is not trimmed.
func BuildSubmission(mode FormMode, d Draft) (Submission, error) {
	if err := Validate(d); err != nil {
		return Submission{}, err
	}
	price, _ := parsePrice(d.Price)
	isbn := strings.TrimSpace(d.ISBN)
	title := strings.TrimSpace(d.Title)
	author := strings.TrimSpace(d.Author)

	if mode == FormEdit {
		// the stored key is addressed as-is, padding included
		return Submission{
			Mode: mode,
			ISBN: d.ISBN,
			Changes: &BookUpdate{
				Title:  title,
				Author: author,
				Price:  price,
			},
		}, nil
	}
	return Submission{
		Mode: mode,
		ISBN: isbn,
		Book: &Book{
			ISBN:   isbn,
			Title:  title,
			Author: author,
			Price:  price,
		},
	}, nil
}
