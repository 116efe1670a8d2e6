// Package students manages student profiles and their course enrollments.
package students

import (
	"errors"
	"net/http"
	"time"

	"visualizar-api/internal/domain/courses"
	"visualizar-api/internal/domain/users"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type createStudentRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type assignCourseRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

func (h *Handler) List(c *gin.Context) {
	var out []users.Student
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Preload("User", "deleted_at IS NULL").
		Preload("Courses", "deleted_at IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load students"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	student, err := h.find(c, c.Param("id"))
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, student)
}

// Create attaches a student profile to an existing STUDENT account.
func (h *Handler) Create(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var user users.User
	err := h.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", req.UserID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user.Role != users.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User does not have the STUDENT role"})
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&users.Student{}).
		Where("user_id = ? AND deleted_at IS NULL", req.UserID).
		Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up student"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student profile already exists for this user"})
		return
	}

	student := users.Student{UserID: req.UserID}
	if err := h.db.WithContext(ctx).Create(&student).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create student"})
		return
	}
	c.JSON(http.StatusCreated, student)
}

// Update re-parents the profile onto a different account.
func (h *Handler) Update(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&users.Student{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("user_id", req.UserID)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update student"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student updated successfully"})
}

func (h *Handler) Delete(c *gin.Context) {
	now := time.Now()
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&users.Student{}).
			Where("id = ? AND deleted_at IS NULL", c.Param("id")).
			Update("deleted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&users.StudentCourse{}).
			Where("student_id = ? AND deleted_at IS NULL", c.Param("id")).
			Update("deleted_at", now).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete student"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

// AssignCourse enrolls the student in a course, idempotently.
func (h *Handler) AssignCourse(c *gin.Context) {
	var req assignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	studentID := c.Param("id")
	if _, err := h.find(c, studentID); err != nil {
		return
	}

	var courseCount int64
	if err := h.db.WithContext(ctx).Model(&courses.Course{}).
		Where("id = ? AND deleted_at IS NULL", req.CourseID).
		Count(&courseCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate course"})
		return
	}
	if courseCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&users.StudentCourse{}).
		Where("student_id = ? AND course_id = ? AND deleted_at IS NULL", studentID, req.CourseID).
		Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up enrollment"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Student already enrolled in this course"})
		return
	}

	enrollment := users.StudentCourse{StudentID: studentID, CourseID: req.CourseID}
	if err := h.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll student"})
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// Courses lists the courses the student is enrolled in.
func (h *Handler) Courses(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.find(c, c.Param("id")); err != nil {
		return
	}

	var out []courses.Course
	err := h.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Where("id IN (?)", h.db.Model(&users.StudentCourse{}).
			Select("course_id").
			Where("student_id = ? AND deleted_at IS NULL", c.Param("id"))).
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// UnassignCourse removes an enrollment.
func (h *Handler) UnassignCourse(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&users.StudentCourse{}).
		Where("student_id = ? AND course_id = ? AND deleted_at IS NULL", c.Param("id"), c.Param("courseId")).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unenroll student"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Enrollment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student unenrolled successfully"})
}

// find loads an active student or writes the error response itself.
func (h *Handler) find(c *gin.Context, id string) (*users.Student, error) {
	var student users.Student
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", id).
		Preload("User", "deleted_at IS NULL").
		Preload("Courses", "deleted_at IS NULL").
		First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return nil, err
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load student"})
		return nil, err
	}
	return &student, nil
}
