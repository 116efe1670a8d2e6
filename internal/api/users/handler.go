package users

import (
	"net/http"
	"strings"

	"visualizar-api/internal/domain/users"
	"visualizar-api/internal/repository/userstore"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *userstore.Repo
}

func NewHandler(repo *userstore.Repo) *Handler {
	return &Handler{repo: repo}
}

type createUserRequest struct {
	Email string     `json:"email" binding:"required,email"`
	DNI   string     `json:"dni" binding:"required"`
	Role  users.Role `json:"role" binding:"required"`
	Name  *string    `json:"name"`
}

type updateUserRequest struct {
	Email *string     `json:"email"`
	DNI   *string     `json:"dni"`
	Name  *string     `json:"name"`
	Role  *users.Role `json:"role"`
}

func (h *Handler) List(c *gin.Context) {
	out, err := h.repo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Search matches email, DNI or name against the q parameter.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	out, err := h.repo.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Create provisions a local account and its role profile. Provider-side
// provisioning lives in the auth create-user flow; this endpoint backfills
// accounts that authenticate later.
func (h *Handler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !validRole(req.Role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	// Emails are stored lowercase; the OTP flow lowercases on lookup.
	email := strings.ToLower(req.Email)

	ctx := c.Request.Context()
	if existing, err := h.repo.GetByEmail(ctx, email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	} else if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists in the database"})
		return
	}
	if existing, err := h.repo.GetByDNI(ctx, req.DNI); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	} else if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this DNI already exists in the database"})
		return
	}

	user := users.User{
		Email: email,
		DNI:   req.DNI,
		Role:  req.Role,
		Name:  req.Name,
	}
	if err := h.repo.Create(ctx, &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	switch req.Role {
	case users.RoleTeacher:
		if err := h.repo.CreateTeacher(ctx, &users.Teacher{UserID: user.ID}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create teacher profile"})
			return
		}
	case users.RoleStudent:
		if err := h.repo.CreateStudent(ctx, &users.Student{UserID: user.ID}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create student profile"})
			return
		}
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetByID(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if req.Email != nil {
		user.Email = strings.ToLower(*req.Email)
	}
	if req.DNI != nil {
		user.DNI = *req.DNI
	}
	if req.Name != nil {
		user.Name = req.Name
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}
		user.Role = *req.Role
	}

	if err := h.repo.Update(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func validRole(r users.Role) bool {
	switch r {
	case users.RoleAdmin, users.RoleTeacher, users.RoleStudent, users.RoleInstitution:
		return true
	}
	return false
}
