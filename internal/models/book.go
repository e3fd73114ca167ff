package models

import "time"

// Book represents a catalog book.
// ImagePath holds the stored file name; services expose it as an absolute URL.
type Book struct {
	ID           string     `json:"id"`
	ISBN         string     `json:"isbn"`
	Title        string     `json:"title"`
	Genre        string     `json:"genre"`
	Description  string     `json:"description"`
	AuthorID     string     `json:"authorId"`
	BorrowedTime *time.Time `json:"borrowedTime,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ImagePath    string     `json:"imagePath,omitempty"`
	IsBorrowed   bool       `json:"isBorrowed"`
}

// CreateBookRequest represents the request body for creating a book
type CreateBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	AuthorID    string `json:"authorId"`
}

// UpdateBookRequest represents the request body for updating a book
type UpdateBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
	AuthorID    string `json:"authorId"`
}

// BorrowBookRequest represents the request body for borrowing a book
type BorrowBookRequest struct {
	DueDate time.Time `json:"dueDate"`
}

// BookPage is a single page of the catalog
type BookPage struct {
	Books      []Book `json:"books"`
	TotalCount int    `json:"totalCount"`
	Page       int    `json:"page"`
	Count      int    `json:"count"`
}
