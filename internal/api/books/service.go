package books

import (
	"context"
	"fmt"
	"strings"

	"visualizar-api/internal/apperr"
	"visualizar-api/internal/domain/books"
	"visualizar-api/internal/domain/catalog"
	"visualizar-api/internal/domain/courses"
	"visualizar-api/internal/domain/users"
	"visualizar-api/internal/infra/email"
	"visualizar-api/internal/repository/bookstore"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Store is the persistence surface the book flows depend on. The
// transactional operations (TransitionRequest, MaterializeBook,
// UpdateBook) are all-or-nothing.
type Store interface {
	GetBook(ctx context.Context, id string) (*books.Book, error)
	ListBooks(ctx context.Context) ([]books.Book, error)
	ListBooksByCourseIDs(ctx context.Context, ids []string) ([]books.Book, error)
	ListBooksByCourse(ctx context.Context, courseID string) ([]books.Book, error)
	SoftDeleteBook(ctx context.Context, id string) error

	CoursesByIDs(ctx context.Context, ids []string) ([]courses.Course, error)
	GetCourse(ctx context.Context, id string) (*courses.Course, error)
	GetAuthor(ctx context.Context, id string) (*catalog.Author, error)
	GetCategory(ctx context.Context, id string) (*catalog.Category, error)
	AuthorIDByName(ctx context.Context, name string) (string, error)

	CreateRequest(ctx context.Context, req *books.BookRequest) error
	GetRequest(ctx context.Context, id string) (*books.BookRequest, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]books.BookRequest, error)
	ListRequests(ctx context.Context) ([]books.BookRequest, error)
	TransitionRequest(ctx context.Context, id string, prev, next books.RequestStatus, actorID string) (*books.BookRequest, error)

	MaterializeBook(ctx context.Context, b *books.Book, courseID, authorID, categoryID, authorName, categoryName, actorID string, prev books.RequestStatus) error
	UpdateBook(ctx context.Context, b *books.Book, courseID, authorID, categoryID, authorName, categoryName, actorID string) error

	TeacherCourseIDs(ctx context.Context, userID string) ([]string, bool, error)
	StudentCourseIDs(ctx context.Context, userID string) ([]string, bool, error)

	AdminEmails(ctx context.Context) ([]string, error)
}

// Notifier delivers book-request mail. Callers never block on it and
// never fail because of it.
type Notifier interface {
	NotifyAdminsOfBookRequest(adminEmails []string, req email.BookRequestMail) error
	ConfirmBookRequestToTeacher(req email.BookRequestMail) error
}

type Service struct {
	store    Store
	notifier Notifier
	log      *logrus.Logger
}

func NewService(store Store, notifier Notifier, log *logrus.Logger) *Service {
	return &Service{store: store, notifier: notifier, log: log}
}

func (s *Service) GetBook(ctx context.Context, id string) (*books.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to load book", err)
	}
	if book == nil {
		return nil, apperr.NotFound("Book not found")
	}
	return book, nil
}

// ListBooks applies the role-scoped visibility filter: admins see all
// books, teachers and students only those linked to their courses. An
// absent profile or empty course list is an empty result, not an error.
func (s *Service) ListBooks(ctx context.Context, actor users.AuthenticatedUser) ([]books.Book, error) {
	switch actor.Role {
	case users.RoleAdmin:
		out, err := s.store.ListBooks(ctx)
		if err != nil {
			return nil, apperr.Internal("Failed to load books", err)
		}
		return out, nil

	case users.RoleTeacher:
		return s.listForCourses(ctx, s.store.TeacherCourseIDs, actor.ID)

	case users.RoleStudent:
		return s.listForCourses(ctx, s.store.StudentCourseIDs, actor.ID)

	default:
		return []books.Book{}, nil
	}
}

func (s *Service) listForCourses(ctx context.Context, courseIDs func(context.Context, string) ([]string, bool, error), userID string) ([]books.Book, error) {
	ids, found, err := courseIDs(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to load course assignments", err)
	}
	if !found || len(ids) == 0 {
		return []books.Book{}, nil
	}

	out, err := s.store.ListBooksByCourseIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("Failed to load books", err)
	}
	return out, nil
}

// ListBooksByCourse returns a course's books, with the same access rule:
// a teacher or student outside the course gets an empty result even for a
// valid course id.
func (s *Service) ListBooksByCourse(ctx context.Context, courseID string, actor users.AuthenticatedUser) ([]books.Book, error) {
	switch actor.Role {
	case users.RoleTeacher:
		ids, found, err := s.store.TeacherCourseIDs(ctx, actor.ID)
		if err != nil {
			return nil, apperr.Internal("Failed to load course assignments", err)
		}
		if !found || !contains(ids, courseID) {
			return []books.Book{}, nil
		}

	case users.RoleStudent:
		ids, found, err := s.store.StudentCourseIDs(ctx, actor.ID)
		if err != nil {
			return nil, apperr.Internal("Failed to load course enrollments", err)
		}
		if !found || !contains(ids, courseID) {
			return []books.Book{}, nil
		}
	}

	out, err := s.store.ListBooksByCourse(ctx, courseID)
	if err != nil {
		return nil, apperr.Internal("Failed to load books", err)
	}
	return out, nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// CreateRequest opens a book request in PENDING for a teacher and
// notifies administrators out of band.
func (s *Service) CreateRequest(ctx context.Context, input CreateBookRequestInput, actor users.AuthenticatedUser) (*books.BookRequest, error) {
	if actor.Role != users.RoleTeacher {
		return nil, apperr.BadRequest("Only teachers can create book requests")
	}

	if len(input.Animations) == 0 {
		return nil, apperr.BadRequest("At least one animation type is required")
	}

	found, err := s.store.CoursesByIDs(ctx, input.CourseIDs)
	if err != nil {
		return nil, apperr.Internal("Failed to validate courses", err)
	}
	if len(found) != len(input.CourseIDs) {
		missing := missingIDs(input.CourseIDs, found)
		return nil, apperr.BadRequest(fmt.Sprintf("Courses not found: %s", strings.Join(missing, ", ")))
	}

	request := books.BookRequest{
		UserID:     actor.ID,
		Title:      input.Title,
		AuthorName: input.AuthorName,
		Comments:   input.Comments,
		Animations: datatypes.JSONSlice[string](input.Animations),
		Status:     books.StatusPending,
	}
	for _, courseID := range input.CourseIDs {
		request.Courses = append(request.Courses, books.BookRequestCourse{CourseID: courseID})
	}

	if err := s.store.CreateRequest(ctx, &request); err != nil {
		return nil, apperr.Internal("Failed to create book request", err)
	}

	s.log.WithFields(logrus.Fields{"requestId": request.ID, "userId": actor.ID}).Info("book request created")

	// Fire-and-forget: mail failures are logged, never surfaced.
	go s.sendRequestEmails(request, actor)

	return &request, nil
}

func missingIDs(wanted []string, found []courses.Course) []string {
	present := make(map[string]struct{}, len(found))
	for _, c := range found {
		present[c.ID] = struct{}{}
	}
	var missing []string
	for _, id := range wanted {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *Service) sendRequestEmails(request books.BookRequest, actor users.AuthenticatedUser) {
	ctx := context.Background()

	courseNames := make([]string, 0, len(request.Courses))
	for _, rc := range request.Courses {
		if rc.Course != nil {
			courseNames = append(courseNames, rc.Course.Name)
		}
	}

	teacherName := ""
	if actor.Name != nil {
		teacherName = *actor.Name
	}
	comments := ""
	if request.Comments != nil {
		comments = *request.Comments
	}

	mail := email.BookRequestMail{
		ID:           request.ID,
		Title:        request.Title,
		AuthorName:   request.AuthorName,
		TeacherName:  teacherName,
		TeacherEmail: actor.Email,
		CourseNames:  courseNames,
		Comments:     comments,
		Animations:   []string(request.Animations),
		CreatedAt:    request.CreatedAt,
	}

	adminEmails, err := s.store.AdminEmails(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to load admin emails for book request notification")
	} else if len(adminEmails) > 0 {
		if err := s.notifier.NotifyAdminsOfBookRequest(adminEmails, mail); err != nil {
			s.log.WithError(err).Error("failed to notify admins of book request")
		}
	}

	if err := s.notifier.ConfirmBookRequestToTeacher(mail); err != nil {
		s.log.WithError(err).Error("failed to send book request confirmation")
	}
}

func (s *Service) ListMyRequests(ctx context.Context, actor users.AuthenticatedUser) ([]books.BookRequest, error) {
	out, err := s.store.ListRequestsByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch book requests", err)
	}
	if out == nil {
		out = []books.BookRequest{}
	}
	return out, nil
}

func (s *Service) ListAllRequests(ctx context.Context, actor users.AuthenticatedUser) ([]books.BookRequest, error) {
	if actor.Role != users.RoleAdmin {
		return nil, apperr.BadRequest("Only admins can get all book requests")
	}

	out, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch book requests", err)
	}
	if out == nil {
		out = []books.BookRequest{}
	}
	return out, nil
}

// GetRequest returns the request, with the author id resolved when the
// free-text author name matches an Author row.
func (s *Service) GetRequest(ctx context.Context, id string) (*BookRequestWithAuthor, error) {
	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch book request", err)
	}
	if request == nil {
		return nil, apperr.NotFound(fmt.Sprintf("Book request with id %s not found", id))
	}

	out := BookRequestWithAuthor{BookRequest: *request}
	authorID, err := s.store.AuthorIDByName(ctx, request.AuthorName)
	if err != nil {
		return nil, apperr.Internal("Failed to resolve author", err)
	}
	if authorID != "" {
		out.AuthorID = &authorID
	}
	return &out, nil
}

// UpdateRequestStatus moves a request through the lifecycle:
//
//	PENDING -> APPROVED | DENIED, APPROVED -> PUBLISHED.
//
// The swap and its audit row commit together; a concurrent transition
// makes the swap fail and produces no audit row.
func (s *Service) UpdateRequestStatus(ctx context.Context, id string, target books.RequestStatus, actor users.AuthenticatedUser) (*books.BookRequest, error) {
	if actor.Role != users.RoleAdmin {
		return nil, apperr.BadRequest("Only admins can update book request status")
	}

	if !books.IsValidStatus(target) {
		return nil, apperr.BadRequest(fmt.Sprintf("Unknown status: %s", target))
	}

	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch book request", err)
	}
	if request == nil {
		return nil, apperr.NotFound(fmt.Sprintf("Book request with id %s not found", id))
	}

	if !books.CanTransition(request.Status, target) {
		return nil, apperr.BadRequest(invalidTransitionMessage(request.Status, target))
	}

	updated, err := s.store.TransitionRequest(ctx, id, request.Status, target, actor.ID)
	if err != nil {
		if err == bookstore.ErrStatusConflict {
			return nil, apperr.BadRequest("Book request status changed concurrently, please retry")
		}
		return nil, apperr.Internal("Failed to update book request status", err)
	}

	s.log.WithFields(logrus.Fields{
		"requestId": id,
		"from":      request.Status,
		"to":        target,
		"userId":    actor.ID,
	}).Info("book request status updated")

	return updated, nil
}

func invalidTransitionMessage(from, to books.RequestStatus) string {
	allowed := books.AllowedTransitions(from)
	targets := "none (terminal state)"
	if len(allowed) > 0 {
		names := make([]string, len(allowed))
		for i, t := range allowed {
			names[i] = string(t)
		}
		targets = strings.Join(names, ", ")
	}
	return fmt.Sprintf("Invalid status transition from %s to %s. Allowed transitions: %s", from, to, targets)
}

// CreateBook materializes an approved request into a published book. All
// writes happen in one transaction: a book never exists without its
// request in PUBLISHED, and vice versa.
func (s *Service) CreateBook(ctx context.Context, input CreateBookInput, actor users.AuthenticatedUser) (*books.Book, error) {
	request, err := s.store.GetRequest(ctx, input.BookRequestID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch book request", err)
	}
	if request == nil {
		return nil, apperr.NotFound("Book Request not found")
	}

	if !books.CanTransition(request.Status, books.StatusPublished) {
		return nil, apperr.BadRequest(invalidTransitionMessage(request.Status, books.StatusPublished))
	}

	_, author, category, err := s.resolveReferences(ctx, input.CourseID, input.AuthorID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	book := books.Book{
		Name:          input.Name,
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		Animations:    datatypes.JSONSlice[string](input.Animations),
		BookRequestID: &input.BookRequestID,
	}

	err = s.store.MaterializeBook(ctx, &book, input.CourseID, input.AuthorID, input.CategoryID,
		author.Name, category.Name, actor.ID, request.Status)
	if err != nil {
		if err == bookstore.ErrStatusConflict {
			return nil, apperr.BadRequest("Book request status changed concurrently, please retry")
		}
		return nil, apperr.Internal("Failed to create book", err)
	}

	s.log.WithFields(logrus.Fields{"bookId": book.ID, "requestId": input.BookRequestID}).Info("book published")

	return s.GetBook(ctx, book.ID)
}

// UpdateBook rewrites the book and replaces its course/author/category
// links with the new references.
func (s *Service) UpdateBook(ctx context.Context, id string, input UpdateBookInput, actor users.AuthenticatedUser) (*books.Book, error) {
	_, author, category, err := s.resolveReferences(ctx, input.CourseID, input.AuthorID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	book := books.Book{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		Animations:  datatypes.JSONSlice[string](input.Animations),
	}

	err = s.store.UpdateBook(ctx, &book, input.CourseID, input.AuthorID, input.CategoryID,
		author.Name, category.Name, actor.ID)
	if err != nil {
		return nil, apperr.Internal("Failed to update book", err)
	}

	return s.GetBook(ctx, id)
}

func (s *Service) resolveReferences(ctx context.Context, courseID, authorID, categoryID string) (*courses.Course, *catalog.Author, *catalog.Category, error) {
	if courseID == "" {
		return nil, nil, nil, apperr.BadRequest("Course ID is required")
	}
	if authorID == "" {
		return nil, nil, nil, apperr.BadRequest("Author ID is required")
	}
	if categoryID == "" {
		return nil, nil, nil, apperr.BadRequest("Category ID is required")
	}

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, nil, nil, apperr.Internal("Failed to load course", err)
	}
	if course == nil {
		return nil, nil, nil, apperr.NotFound("Course not found")
	}

	author, err := s.store.GetAuthor(ctx, authorID)
	if err != nil {
		return nil, nil, nil, apperr.Internal("Failed to load author", err)
	}
	if author == nil {
		return nil, nil, nil, apperr.NotFound("Author not found")
	}

	category, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, nil, apperr.Internal("Failed to load category", err)
	}
	if category == nil {
		return nil, nil, nil, apperr.NotFound("Category not found")
	}

	return course, author, category, nil
}

func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if err := s.store.SoftDeleteBook(ctx, id); err != nil {
		return apperr.NotFound("Book not found")
	}
	return nil
}
