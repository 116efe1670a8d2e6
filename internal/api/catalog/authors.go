// Package catalog exposes CRUD over the reference entities books link to:
// authors, categories and institutions.
package catalog

import (
	"errors"
	"net/http"
	"time"

	"visualizar-api/internal/domain/catalog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthorsHandler struct {
	db *gorm.DB
}

func NewAuthorsHandler(db *gorm.DB) *AuthorsHandler {
	return &AuthorsHandler{db: db}
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *AuthorsHandler) List(c *gin.Context) {
	var out []catalog.Author
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load authors"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AuthorsHandler) Get(c *gin.Context) {
	var author catalog.Author
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&author).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load author"})
		return
	}
	c.JSON(http.StatusOK, author)
}

func (h *AuthorsHandler) Create(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	author := catalog.Author{Name: req.Name}
	if err := h.db.WithContext(c.Request.Context()).Create(&author).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create author"})
		return
	}
	c.JSON(http.StatusCreated, author)
}

func (h *AuthorsHandler) Update(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&catalog.Author{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("name", req.Name)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update author"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Author updated successfully"})
}

func (h *AuthorsHandler) Delete(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&catalog.Author{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete author"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Author not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Author deleted successfully"})
}
