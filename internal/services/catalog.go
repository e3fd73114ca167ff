package services

import (
	"strings"

	"github.com/fybs47/Library/internal/models"
)

// imageURL turns a stored cover file name into an absolute URL
func imageURL(mediaBaseURL, imagePath string) string {
	if imagePath == "" {
		return ""
	}
	return strings.TrimRight(mediaBaseURL, "/") + "/images/" + imagePath
}

// presentBook returns a copy of the book with its image path exposed as a URL
func presentBook(mediaBaseURL string, book *models.Book) *models.Book {
	presented := *book
	presented.ImagePath = imageURL(mediaBaseURL, book.ImagePath)
	return &presented
}

func presentBooks(mediaBaseURL string, books []models.Book) []models.Book {
	presented := make([]models.Book, 0, len(books))
	for i := range books {
		presented = append(presented, *presentBook(mediaBaseURL, &books[i]))
	}
	return presented
}
