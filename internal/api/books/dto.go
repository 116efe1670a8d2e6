package books

import (
	"visualizar-api/internal/domain/books"
)

type CreateBookRequestInput struct {
	Title      string   `json:"title" binding:"required"`
	AuthorName string   `json:"authorName" binding:"required"`
	Comments   *string  `json:"comments"`
	Animations []string `json:"animations" binding:"required,min=1"`
	CourseIDs  []string `json:"courseIds" binding:"required,min=1"`
}

type UpdateRequestStatusInput struct {
	Status books.RequestStatus `json:"status" binding:"required"`
}

type CreateBookInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
	Animations  []string `json:"animations"`

	CourseID      string `json:"courseId" binding:"required"`
	AuthorID      string `json:"authorId" binding:"required"`
	CategoryID    string `json:"categoryId" binding:"required"`
	BookRequestID string `json:"bookRequestId" binding:"required"`
}

type UpdateBookInput struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ImageURL    *string  `json:"imageUrl"`
	Animations  []string `json:"animations"`

	CourseID   string `json:"courseId" binding:"required"`
	AuthorID   string `json:"authorId" binding:"required"`
	CategoryID string `json:"categoryId" binding:"required"`
}

// BookRequestWithAuthor decorates a request with the Author row matching
// its free-text author name, when one exists.
type BookRequestWithAuthor struct {
	books.BookRequest
	AuthorID *string `json:"authorId,omitempty"`
}
