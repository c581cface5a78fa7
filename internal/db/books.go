package db

import (
	"database/sql"
	"errors"
	"fmt"

	"bookman/internal/model"
)

var (
	// ErrNotFound is returned when no book has the requested ISBN.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicate is returned when inserting an ISBN that already exists.
	ErrDuplicate = errors.New("book already exists")
)

// ListBooks retrieves every book in insertion order.
func ListBooks(db *sql.DB) ([]model.Book, error) {
	rows, err := db.Query(`SELECT isbn, title, author, price FROM books ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	results := []model.Book{}
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ISBN, &b.Title, &b.Author, &b.Price); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		results = append(results, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating book rows: %w", err)
	}

	return results, nil
}

// GetBook retrieves a single book by ISBN.
func GetBook(db *sql.DB, isbn string) (model.Book, error) {
	var b model.Book
	err := db.QueryRow(`SELECT isbn, title, author, price FROM books WHERE isbn = ?`, isbn).
		Scan(&b.ISBN, &b.Title, &b.Author, &b.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, ErrNotFound
	}
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to get book: %w", err)
	}
	return b, nil
}

// InsertBook inserts a new book.
func InsertBook(db *sql.DB, b model.Book) error {
	res, err := db.Exec(`
		INSERT INTO books (isbn, title, author, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(isbn) DO NOTHING
	`, b.ISBN, b.Title, b.Author, b.Price)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// UpdateBook replaces the title, author and price of an existing book.
func UpdateBook(db *sql.DB, isbn string, u model.BookUpdate) (model.Book, error) {
	res, err := db.Exec(`UPDATE books SET title = ?, author = ?, price = ? WHERE isbn = ?`,
		u.Title, u.Author, u.Price, isbn)
	if err != nil {
		return model.Book{}, fmt.Errorf("failed to update book: %w", err)
	}
	if err := requireRow(res); err != nil {
		return model.Book{}, err
	}
	return model.Book{ISBN: isbn, Title: u.Title, Author: u.Author, Price: u.Price}, nil
}

// DeleteBook deletes a book by ISBN.
func DeleteBook(db *sql.DB, isbn string) error {
	res, err := db.Exec(`DELETE FROM books WHERE isbn = ?`, isbn)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
