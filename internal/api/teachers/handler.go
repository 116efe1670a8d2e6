// Package teachers manages teacher profiles and their course assignments.
package teachers

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

type createTeacherRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type assignCourseRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

func (h *Handler) List(c *gin.Context) {
	var out []users.Teacher
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Preload("User", "deleted_at IS NULL").
		Preload("Courses", "deleted_at IS NULL").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load teachers"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	teacher, err := h.find(c, c.Param("id"))
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, teacher)
}

// Create attaches a teacher profile to an existing TEACHER account.
func (h *Handler) Create(c *gin.Context) {
	var req createTeacherRequest
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
	if user.Role != users.RoleTeacher {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User does not have the TEACHER role"})
		return
	}

	var existing int64
	if err := h.db.WithContext(ctx).Model(&users.Teacher{}).
		Where("user_id = ? AND deleted_at IS NULL", req.UserID).
		Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up teacher"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Teacher profile already exists for this user"})
		return
	}

	teacher := users.Teacher{UserID: req.UserID}
	if err := h.db.WithContext(ctx).Create(&teacher).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create teacher"})
		return
	}
	c.JSON(http.StatusCreated, teacher)
}

// Update re-parents the profile onto a different account.
func (h *Handler) Update(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&users.Teacher{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("user_id", req.UserID)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update teacher"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Teacher not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Teacher updated successfully"})
}

func (h *Handler) Delete(c *gin.Context) {
	now := time.Now()
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&users.Teacher{}).
			Where("id = ? AND deleted_at IS NULL", c.Param("id")).
			Update("deleted_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&users.TeacherCourse{}).
			Where("teacher_id = ? AND deleted_at IS NULL", c.Param("id")).
			Update("deleted_at", now).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Teacher not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete teacher"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Teacher deleted successfully"})
}

// AssignCourse links the teacher to a course, idempotently.
func (h *Handler) AssignCourse(c *gin.Context) {
	var req assignCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	teacherID := c.Param("id")
	if _, err := h.find(c, teacherID); err != nil {
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
	if err := h.db.WithContext(ctx).Model(&users.TeacherCourse{}).
		Where("teacher_id = ? AND course_id = ? AND deleted_at IS NULL", teacherID, req.CourseID).
		Count(&existing).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up assignment"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Teacher already assigned to this course"})
		return
	}

	assignment := users.TeacherCourse{TeacherID: teacherID, CourseID: req.CourseID}
	if err := h.db.WithContext(ctx).Create(&assignment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign teacher"})
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

// find loads an active teacher or writes the error response itself.
func (h *Handler) find(c *gin.Context, id string) (*users.Teacher, error) {
	var teacher users.Teacher
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", id).
		Preload("User", "deleted_at IS NULL").
		Preload("Courses", "deleted_at IS NULL").
		First(&teacher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Teacher not found"})
		return nil, err
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load teacher"})
		return nil, err
	}
	return &teacher, nil
}
