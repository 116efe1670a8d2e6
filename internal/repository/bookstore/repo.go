// Package bookstore is the gorm-backed persistence layer for books, book
// requests and their audit trails. Multi-write operations run inside a
// single transaction; status changes are compare-and-swap updates so a
// concurrent transition loses cleanly instead of overwriting.
package bookstore

import (
	"context"
	"errors"
	"time"

	"visualizar-api/internal/domain/books"
	"visualizar-api/internal/domain/catalog"
	"visualizar-api/internal/domain/courses"
	"visualizar-api/internal/domain/users"

	"gorm.io/gorm"
)

// ErrStatusConflict reports that the request's status changed between the
// caller's read and the transition attempt.
var ErrStatusConflict = errors.New("book request status changed concurrently")

type Repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func withBookRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Courses", "deleted_at IS NULL").
		Preload("Courses.Course").
		Preload("Authors", "deleted_at IS NULL").
		Preload("Authors.Author").
		Preload("Categories", "deleted_at IS NULL").
		Preload("Categories.Category")
}

func withRequestRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "email", "name", "role")
		}).
		Preload("Courses", "deleted_at IS NULL").
		Preload("Courses.Course")
}

func (r *Repo) GetBook(ctx context.Context, id string) (*books.Book, error) {
	var b books.Book
	err := withBookRelations(r.db.WithContext(ctx)).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) ListBooks(ctx context.Context) ([]books.Book, error) {
	var out []books.Book
	err := withBookRelations(r.db.WithContext(ctx)).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// ListBooksByCourseIDs returns books whose live course links intersect ids.
func (r *Repo) ListBooksByCourseIDs(ctx context.Context, ids []string) ([]books.Book, error) {
	var out []books.Book
	err := withBookRelations(r.db.WithContext(ctx)).
		Where("deleted_at IS NULL").
		Where(`id IN (SELECT book_id FROM book_courses
			WHERE course_id IN ? AND deleted_at IS NULL)`, ids).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) ListBooksByCourse(ctx context.Context, courseID string) ([]books.Book, error) {
	return r.ListBooksByCourseIDs(ctx, []string{courseID})
}

func (r *Repo) SoftDeleteBook(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&books.Book{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) CoursesByIDs(ctx context.Context, ids []string) ([]courses.Course, error) {
	var out []courses.Course
	err := r.db.WithContext(ctx).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Find(&out).Error
	return out, err
}

func (r *Repo) GetCourse(ctx context.Context, id string) (*courses.Course, error) {
	var c courses.Course
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetAuthor(ctx context.Context, id string) (*catalog.Author, error) {
	var a catalog.Author
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) GetCategory(ctx context.Context, id string) (*catalog.Category, error) {
	var c catalog.Category
	err := r.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AuthorIDByName resolves a request's free-text author name to an Author
// row when one matches.
func (r *Repo) AuthorIDByName(ctx context.Context, name string) (string, error) {
	var a catalog.Author
	err := r.db.WithContext(ctx).Where("name = ? AND deleted_at IS NULL", name).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

// CreateRequest inserts the request together with its course join rows.
func (r *Repo) CreateRequest(ctx context.Context, req *books.BookRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return err
	}
	loaded, err := r.GetRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	if loaded != nil {
		*req = *loaded
	}
	return nil
}

func (r *Repo) GetRequest(ctx context.Context, id string) (*books.BookRequest, error) {
	var req books.BookRequest
	err := withRequestRelations(r.db.WithContext(ctx)).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repo) ListRequestsByUser(ctx context.Context, userID string) ([]books.BookRequest, error) {
	var out []books.BookRequest
	err := withRequestRelations(r.db.WithContext(ctx)).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *Repo) ListRequests(ctx context.Context) ([]books.BookRequest, error) {
	var out []books.BookRequest
	err := withRequestRelations(r.db.WithContext(ctx)).
		Where("deleted_at IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// TransitionRequest applies prev -> next as a compare-and-swap and appends
// the audit row in the same transaction. Zero rows swapped means someone
// else moved the request first: the whole transaction fails with
// ErrStatusConflict and no audit row is written.
func (r *Repo) TransitionRequest(ctx context.Context, id string, prev, next books.RequestStatus, actorID string) (*books.BookRequest, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&books.BookRequest{}).
			Where("id = ? AND status = ? AND deleted_at IS NULL", id, prev).
			Update("status", next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		audit := books.BookRequestStatusAudit{
			UserID:         actorID,
			BookRequestID:  id,
			PreviousStatus: prev,
			CurrentStatus:  next,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetRequest(ctx, id)
}

// MaterializeBook converts an approved request into a published book: the
// book row, its three join rows, the denormalized audit snapshot, the
// request's CAS move to PUBLISHED and the status audit all commit together
// or not at all.
func (r *Repo) MaterializeBook(ctx context.Context, b *books.Book, courseID, authorID, categoryID, authorName, categoryName, actorID string, prev books.RequestStatus) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}

		if err := tx.Create(&books.BookCourse{BookID: b.ID, CourseID: courseID}).Error; err != nil {
			return err
		}
		if err := tx.Create(&books.BookAuthor{BookID: b.ID, AuthorID: authorID}).Error; err != nil {
			return err
		}
		if err := tx.Create(&books.BookCategory{BookID: b.ID, CategoryID: categoryID}).Error; err != nil {
			return err
		}

		audit := books.BookAudit{
			Title:         b.Name,
			Author:        authorName,
			Description:   b.Description,
			ImageURL:      b.ImageURL,
			Category:      categoryName,
			Animations:    b.Animations,
			CourseIDs:     []string{courseID},
			UserID:        actorID,
			BookID:        b.ID,
			BookRequestID: b.BookRequestID,
			Action:        books.AuditActionCreated,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		res := tx.Model(&books.BookRequest{}).
			Where("id = ? AND status = ? AND deleted_at IS NULL", *b.BookRequestID, prev).
			Update("status", books.StatusPublished)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}

		statusAudit := books.BookRequestStatusAudit{
			UserID:         actorID,
			BookRequestID:  *b.BookRequestID,
			PreviousStatus: prev,
			CurrentStatus:  books.StatusPublished,
		}
		return tx.Create(&statusAudit).Error
	})
}

// UpdateBook rewrites the book row, replaces all live join rows with the
// new references and appends an UPDATED audit snapshot. Replacing rather
// than editing the first join row means stale extra links cannot survive
// an update.
func (r *Repo) UpdateBook(ctx context.Context, b *books.Book, courseID, authorID, categoryID, authorName, categoryName, actorID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&books.Book{}).
			Where("id = ? AND deleted_at IS NULL", b.ID).
			Updates(map[string]any{
				"name":        b.Name,
				"description": b.Description,
				"image_url":   b.ImageURL,
				"animations":  b.Animations,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		for _, model := range []any{&books.BookCourse{}, &books.BookAuthor{}, &books.BookCategory{}} {
			if err := tx.Model(model).
				Where("book_id = ? AND deleted_at IS NULL", b.ID).
				Update("deleted_at", now).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&books.BookCourse{BookID: b.ID, CourseID: courseID}).Error; err != nil {
			return err
		}
		if err := tx.Create(&books.BookAuthor{BookID: b.ID, AuthorID: authorID}).Error; err != nil {
			return err
		}
		if err := tx.Create(&books.BookCategory{BookID: b.ID, CategoryID: categoryID}).Error; err != nil {
			return err
		}

		audit := books.BookAudit{
			Title:       b.Name,
			Author:      authorName,
			Description: b.Description,
			ImageURL:    b.ImageURL,
			Category:    categoryName,
			Animations:  b.Animations,
			CourseIDs:   []string{courseID},
			UserID:      actorID,
			BookID:      b.ID,
			Action:      books.AuditActionUpdated,
		}
		return tx.Create(&audit).Error
	})
}

// TeacherCourseIDs returns the caller's live course assignments. The bool
// reports whether a teacher profile exists at all.
func (r *Repo) TeacherCourseIDs(ctx context.Context, userID string) ([]string, bool, error) {
	var teacher users.Teacher
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		First(&teacher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ids []string
	err = r.db.WithContext(ctx).Model(&users.TeacherCourse{}).
		Where("teacher_id = ? AND deleted_at IS NULL", teacher.ID).
		Pluck("course_id", &ids).Error
	return ids, true, err
}

// StudentCourseIDs is the enrollment counterpart of TeacherCourseIDs.
func (r *Repo) StudentCourseIDs(ctx context.Context, userID string) ([]string, bool, error) {
	var student users.Student
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted_at IS NULL", userID).
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ids []string
	err = r.db.WithContext(ctx).Model(&users.StudentCourse{}).
		Where("student_id = ? AND deleted_at IS NULL", student.ID).
		Pluck("course_id", &ids).Error
	return ids, true, err
}

func (r *Repo) AdminEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.db.WithContext(ctx).Model(&users.User{}).
		Where("role = ? AND deleted_at IS NULL", users.RoleAdmin).
		Pluck("email", &emails).Error
	return emails, err
}
