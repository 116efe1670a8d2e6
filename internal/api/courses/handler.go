package courses

import (
	"errors"
	"net/http"
	"time"

	"visualizar-api/internal/domain/catalog"
	"visualizar-api/internal/domain/courses"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type courseRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	InstitutionID *string `json:"institutionId"`
}

func (h *Handler) List(c *gin.Context) {
	var out []courses.Course
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load courses"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	var course courses.Course
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) Create(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.InstitutionID != nil {
		var count int64
		err := h.db.WithContext(ctx).Model(&catalog.Institution{}).
			Where("id = ? AND deleted_at IS NULL", *req.InstitutionID).
			Count(&count).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate institution"})
			return
		}
		if count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Institution not found"})
			return
		}
	}

	course := courses.Course{
		Name:          req.Name,
		Description:   req.Description,
		InstitutionID: req.InstitutionID,
	}
	if err := h.db.WithContext(ctx).Create(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create course"})
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) Update(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var course courses.Course
	err := h.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load course"})
		return
	}

	course.Name = req.Name
	course.Description = req.Description
	course.InstitutionID = req.InstitutionID
	if err := h.db.WithContext(ctx).Save(&course).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update course"})
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) Delete(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&courses.Course{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete course"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully"})
}
