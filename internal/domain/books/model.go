package books

import (
	"time"

	"visualizar-api/internal/domain/catalog"
	"visualizar-api/internal/domain/courses"
	"visualizar-api/internal/domain/users"

	"gorm.io/datatypes"
)

// BookRequest is a teacher's proposal to publish a book into one or more
// courses. AuthorName is free text; it is linked to an Author record only
// when the book is materialized.
type BookRequest struct {
	ID     string      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID string      `gorm:"type:uuid;not null;index" json:"userId"`
	User   *users.User `json:"user,omitempty"`

	Title      string                     `gorm:"not null" json:"title"`
	AuthorName string                     `gorm:"not null" json:"authorName"`
	Comments   *string                    `json:"comments"`
	Animations datatypes.JSONSlice[string] `json:"animations"`

	Status RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`

	Courses []BookRequestCourse `gorm:"foreignKey:BookRequestID" json:"bookRequestCourse,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type BookRequestCourse struct {
	ID            string          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookRequestID string          `gorm:"type:uuid;not null;index" json:"bookRequestId"`
	CourseID      string          `gorm:"type:uuid;not null;index" json:"courseId"`
	Course        *courses.Course `json:"course,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

// BookRequestStatusAudit is append-only: one row per accepted transition,
// never updated or deleted.
type BookRequestStatusAudit struct {
	ID             string        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         string        `gorm:"type:uuid;not null;index" json:"userId"`
	BookRequestID  string        `gorm:"type:uuid;not null;index" json:"bookRequestId"`
	PreviousStatus RequestStatus `gorm:"type:varchar(20);not null" json:"previousStatus"`
	CurrentStatus  RequestStatus `gorm:"type:varchar(20);not null" json:"currentStatus"`

	CreatedAt time.Time `json:"createdAt"`
}

type Book struct {
	ID          string  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`

	Animations datatypes.JSONSlice[string] `json:"animations"`

	BookRequestID *string `gorm:"type:uuid;index" json:"bookRequestId,omitempty"`

	Courses    []BookCourse   `gorm:"foreignKey:BookID" json:"bookCourse,omitempty"`
	Authors    []BookAuthor   `gorm:"foreignKey:BookID" json:"bookAuthor,omitempty"`
	Categories []BookCategory `gorm:"foreignKey:BookID" json:"bookCategory,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type BookCourse struct {
	ID       string          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookID   string          `gorm:"type:uuid;not null;index" json:"bookId"`
	CourseID string          `gorm:"type:uuid;not null;index" json:"courseId"`
	Course   *courses.Course `json:"course,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type BookAuthor struct {
	ID       string          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookID   string          `gorm:"type:uuid;not null;index" json:"bookId"`
	AuthorID string          `gorm:"type:uuid;not null;index" json:"authorId"`
	Author   *catalog.Author `json:"author,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

type BookCategory struct {
	ID         string            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookID     string            `gorm:"type:uuid;not null;index" json:"bookId"`
	CategoryID string            `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category   *catalog.Category `json:"category,omitempty"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`
}

const (
	AuditActionCreated = "CREATED"
	AuditActionUpdated = "UPDATED"
)

// BookAudit snapshots the book as it looked at create/update time. Author
// and category names are denormalized so the record stays faithful even if
// the referenced rows change later.
type BookAudit struct {
	ID          string  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string  `gorm:"not null" json:"title"`
	Author      string  `gorm:"not null" json:"author"`
	Description string  `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Category    string  `json:"category"`

	Animations datatypes.JSONSlice[string] `json:"animations"`
	CourseIDs  datatypes.JSONSlice[string] `json:"courseIds"`

	UserID        string  `gorm:"type:uuid;not null;index" json:"userId"`
	BookID        string  `gorm:"type:uuid;not null;index" json:"bookId"`
	BookRequestID *string `gorm:"type:uuid;index" json:"bookRequestId,omitempty"`

	Action string `gorm:"type:varchar(20);not null" json:"action"`

	CreatedAt time.Time `json:"createdAt"`
}
