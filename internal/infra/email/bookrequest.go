package email

import (
	"fmt"
	"strings"
	"time"
)

// BookRequestMail is the slice of a book request that shows up in
// notification mail.
type BookRequestMail struct {
	ID           string
	Title        string
	AuthorName   string
	TeacherName  string
	TeacherEmail string
	CourseNames  []string
	Comments     string
	Animations   []string
	CreatedAt    time.Time
}

// NotifyAdminsOfBookRequest tells every administrator a new request is
// waiting for review.
func (m *Mailer) NotifyAdminsOfBookRequest(adminEmails []string, req BookRequestMail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "A new book request is awaiting review.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Author: %s\n", req.AuthorName)
	fmt.Fprintf(&b, "Requested by: %s <%s>\n", req.TeacherName, req.TeacherEmail)
	fmt.Fprintf(&b, "Courses: %s\n", strings.Join(req.CourseNames, ", "))
	if req.Comments != "" {
		fmt.Fprintf(&b, "Comments: %s\n", req.Comments)
	}
	if len(req.Animations) > 0 {
		fmt.Fprintf(&b, "Animations: %s\n", strings.Join(req.Animations, ", "))
	}
	fmt.Fprintf(&b, "Submitted: %s\n", req.CreatedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "\nRequest ID: %s\n", req.ID)

	subject := fmt.Sprintf("New book request: %s", req.Title)
	return m.Send(adminEmails, subject, b.String())
}

// ConfirmBookRequestToTeacher acknowledges the submission to its author.
func (m *Mailer) ConfirmBookRequestToTeacher(req BookRequestMail) error {
	name := req.TeacherName
	if name == "" {
		name = "Teacher"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "We received your book request and it is now pending review.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Author: %s\n", req.AuthorName)
	fmt.Fprintf(&b, "Courses: %s\n", strings.Join(req.CourseNames, ", "))
	fmt.Fprintf(&b, "Submitted: %s\n", req.CreatedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "\nYou will be notified once an administrator reviews it.\n")

	subject := fmt.Sprintf("Book request received: %s", req.Title)
	return m.Send([]string{req.TeacherEmail}, subject, b.String())
}
