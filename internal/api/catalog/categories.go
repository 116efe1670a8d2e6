package catalog

import (
	"errors"
	"net/http"
	"time"

	"visualizar-api/internal/domain/catalog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CategoriesHandler struct {
	db *gorm.DB
}

func NewCategoriesHandler(db *gorm.DB) *CategoriesHandler {
	return &CategoriesHandler{db: db}
}

func (h *CategoriesHandler) List(c *gin.Context) {
	var out []catalog.Category
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load categories"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *CategoriesHandler) Get(c *gin.Context) {
	var category catalog.Category
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load category"})
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoriesHandler) Create(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := catalog.Category{Name: req.Name}
	if err := h.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoriesHandler) Update(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&catalog.Category{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("name", req.Name)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully"})
}

func (h *CategoriesHandler) Delete(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&catalog.Category{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}
