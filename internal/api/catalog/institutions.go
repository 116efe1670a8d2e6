package catalog

import (
	"errors"
	"net/http"
	"time"

	"visualizar-api/internal/domain/catalog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type InstitutionsHandler struct {
	db *gorm.DB
}

func NewInstitutionsHandler(db *gorm.DB) *InstitutionsHandler {
	return &InstitutionsHandler{db: db}
}

type institutionRequest struct {
	Name    string  `json:"name" binding:"required"`
	Address *string `json:"address"`
}

func (h *InstitutionsHandler) List(c *gin.Context) {
	var out []catalog.Institution
	err := h.db.WithContext(c.Request.Context()).
		Where("deleted_at IS NULL").
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load institutions"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *InstitutionsHandler) Get(c *gin.Context) {
	var institution catalog.Institution
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&institution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Institution not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load institution"})
		return
	}
	c.JSON(http.StatusOK, institution)
}

func (h *InstitutionsHandler) Create(c *gin.Context) {
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	institution := catalog.Institution{Name: req.Name, Address: req.Address}
	if err := h.db.WithContext(c.Request.Context()).Create(&institution).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create institution"})
		return
	}
	c.JSON(http.StatusCreated, institution)
}

func (h *InstitutionsHandler) Update(c *gin.Context) {
	var req institutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var institution catalog.Institution
	err := h.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		First(&institution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Institution not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load institution"})
		return
	}

	institution.Name = req.Name
	institution.Address = req.Address
	if err := h.db.WithContext(ctx).Save(&institution).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update institution"})
		return
	}
	c.JSON(http.StatusOK, institution)
}

func (h *InstitutionsHandler) Delete(c *gin.Context) {
	res := h.db.WithContext(c.Request.Context()).Model(&catalog.Institution{}).
		Where("id = ? AND deleted_at IS NULL", c.Param("id")).
		Update("deleted_at", time.Now())
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete institution"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Institution not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Institution deleted successfully"})
}
